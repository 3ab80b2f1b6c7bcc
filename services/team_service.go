package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"squadreg/models"
	"squadreg/utils"
)

// CreateTeamInput is the explicit team-creation request. Joining never
// creates a team implicitly; an unused code must be claimed here first.
type CreateTeamInput struct {
	Code string `validate:"required,len=4,numeric"`
	Name string `validate:"required,min=1,max=50"`
}

// CreateTeam claims a team code. Creation is not idempotent: a second call
// for the same code reports a conflict.
func (s *Service) CreateTeam(ctx context.Context, in CreateTeamInput) (*models.Team, error) {
	if ferr := utils.ValidateStruct(in); ferr != nil {
		return nil, invalidf(ferr.Field, "%s", ferr.Message)
	}

	team := models.Team{Code: in.Code, Name: in.Name}
	if err := s.DB.WithContext(ctx).Create(&team).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflictf("code", "team code %s already in use", in.Code)
		}
		return nil, err
	}
	return &team, nil
}

// CheckTeam returns the team and its current roster.
func (s *Service) CheckTeam(ctx context.Context, code string) (*models.Team, error) {
	var team models.Team
	err := s.DB.WithContext(ctx).Preload("Members").First(&team, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("team %s not found", code)
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// DeleteTeamIfEmpty removes the team row only if its member count is still
// zero at delete time. The NOT EXISTS guard keeps a join that lands between
// check and delete from losing its team. Called only from the cleanup
// worker, never on a request path.
func (s *Service) DeleteTeamIfEmpty(ctx context.Context, code string) (bool, error) {
	res := s.DB.WithContext(ctx).
		Where("code = ? AND NOT EXISTS (SELECT 1 FROM members WHERE members.team_code = teams.code)", code).
		Delete(&models.Team{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
