package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"squadreg/models"
)

// ResolveSubject returns the member row bound to the verified subject, or
// nil when the identity holds no slot. Owner-path mutations may only ever
// touch the row this resolves to.
func (s *Service) ResolveSubject(ctx context.Context, subject string) (*models.Member, error) {
	var member models.Member
	err := s.DB.WithContext(ctx).First(&member, "external_subject_id = ?", subject).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// subjectTaken reports whether another row (excluding excludeID) already
// carries the subject. One identity, one slot, system-wide.
func (s *Service) subjectTaken(ctx context.Context, subject string, excludeID uint) (bool, error) {
	var count int64
	q := s.DB.WithContext(ctx).Model(&models.Member{}).Where("external_subject_id = ?", subject)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// accountTaken reports whether another row (excluding excludeID) already
// uses the game account id.
func (s *Service) accountTaken(ctx context.Context, gameAccountID string, excludeID uint) (bool, error) {
	var count int64
	q := s.DB.WithContext(ctx).Model(&models.Member{}).Where("game_account_id = ?", gameAccountID)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
