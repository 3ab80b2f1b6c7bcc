package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"squadreg/models"
)

// teamCapacity is fixed: one slot per color, one per job, three of each.
const teamCapacity = 3

// checkSlot decides whether the (color, job) pair is available in the given
// team, ignoring the row identified by excludeID (zero for joins). The
// reporting order is part of the contract: team existence, then capacity,
// then color, then job. enforceCapacity is false when the member is already
// counted among the team's occupants, i.e. an in-place edit.
//
// This is a courtesy check for precise error messages; the composite unique
// indexes on (team_code, color) and (team_code, job) remain the arbiter when
// two writers race past it.
func (s *Service) checkSlot(ctx context.Context, teamCode string, color models.MemberColor, job models.MemberJob, excludeID uint, enforceCapacity bool) error {
	var team models.Team
	if err := s.DB.WithContext(ctx).First(&team, "code = ?", teamCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundf("team %s not found", teamCode)
		}
		return err
	}

	var occupants []models.Member
	q := s.DB.WithContext(ctx).Where("team_code = ?", teamCode)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Find(&occupants).Error; err != nil {
		return err
	}

	if enforceCapacity && len(occupants) >= teamCapacity {
		return conflictf("team_code", "team %s is full", teamCode)
	}
	for _, m := range occupants {
		if m.Color == color {
			return conflictf("color", "color %s already taken", color)
		}
	}
	for _, m := range occupants {
		if m.Job == job {
			return conflictf("job", "job %s already taken", job)
		}
	}
	return nil
}
