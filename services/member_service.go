package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"squadreg/models"
	"squadreg/utils"
)

// JoinInput carries one join (or privileged add) request. Subject is the
// caller's verified identity and is optional only on the privileged path,
// where a row may be created unbound.
type JoinInput struct {
	TeamCode      string `validate:"required,len=4,numeric"`
	Color         string `validate:"required,slotcolor"`
	Job           string `validate:"required,slotjob"`
	GameAccountID string `validate:"required,min=1,max=13"`
	Nickname      string `validate:"required,min=1,max=50"`
	ContactID     string `validate:"required,contactid"`

	Subject string

	Avatar     []byte
	AvatarType string
}

// MemberPatch is a partial update. Nil pointers mean "leave unchanged".
// TeamCode, GameAccountID and ExternalSubjectID are accepted only on the
// privileged path; an ExternalSubjectID of "" unbinds the row.
type MemberPatch struct {
	Nickname  *string
	ContactID *string
	Color     *string
	Job       *string

	TeamCode          *string
	GameAccountID     *string
	ExternalSubjectID *string

	Avatar      []byte
	AvatarType  string
	ClearAvatar bool
}

// Join registers a member into a team slot. The team must already exist;
// joining never creates one. The avatar, when supplied, is stored before the
// row is written so a join can never commit pointing at media that failed to
// persist.
func (s *Service) Join(ctx context.Context, in JoinInput) (*models.Member, error) {
	if ferr := utils.ValidateStruct(in); ferr != nil {
		return nil, invalidf(ferr.Field, "%s", ferr.Message)
	}

	var team models.Team
	if err := s.DB.WithContext(ctx).First(&team, "code = ?", in.TeamCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("team %s not found", in.TeamCode)
		}
		return nil, err
	}

	if in.Subject != "" {
		taken, err := s.subjectTaken(ctx, in.Subject, 0)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, conflictf("external_subject_id", "this identity already holds a slot")
		}
	}

	taken, err := s.accountTaken(ctx, in.GameAccountID, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, conflictf("game_account_id", "game account %s already registered", in.GameAccountID)
	}

	if err := s.checkSlot(ctx, in.TeamCode, models.MemberColor(in.Color), models.MemberJob(in.Job), 0, true); err != nil {
		return nil, err
	}

	var locator *string
	if len(in.Avatar) > 0 {
		loc, err := s.Media.Save(in.Avatar, in.AvatarType)
		if err != nil {
			return nil, mapMediaError(err)
		}
		locator = &loc
	}

	member := models.Member{
		TeamCode:      in.TeamCode,
		Color:         models.MemberColor(in.Color),
		Job:           models.MemberJob(in.Job),
		GameAccountID: in.GameAccountID,
		Nickname:      in.Nickname,
		ContactID:     in.ContactID,
		MediaLocator:  locator,
		IsPrivileged:  false,
		JoinedAt:      time.Now(),
	}
	if in.Subject != "" {
		subject := in.Subject
		member.ExternalSubjectID = &subject
	}

	if err := s.DB.WithContext(ctx).Create(&member).Error; err != nil {
		// The stored avatar has no row referencing it now; let the worker
		// reclaim it.
		if locator != nil {
			s.Cleanup.MediaRemove(*locator)
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflictf("", "slot or account no longer available")
		}
		return nil, err
	}

	return &member, nil
}

// Me returns the caller's own registration.
func (s *Service) Me(ctx context.Context, subject string) (*models.Member, error) {
	m, err := s.ResolveSubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, notFoundf("no registration for this identity")
	}
	return m, nil
}

// EditOwn applies a patch to the caller's own row. Privileged-only fields in
// the patch are refused outright.
func (s *Service) EditOwn(ctx context.Context, subject string, p MemberPatch) (*models.Member, bool, error) {
	if p.TeamCode != nil || p.GameAccountID != nil || p.ExternalSubjectID != nil {
		return nil, false, forbiddenf("field requires privileged access")
	}
	m, err := s.ResolveSubject(ctx, subject)
	if err != nil {
		return nil, false, err
	}
	if m == nil {
		return nil, false, notFoundf("no registration for this identity")
	}
	return s.edit(ctx, m, p)
}

// EditByID applies a patch to an arbitrary row; callers must have gated on
// privilege already.
func (s *Service) EditByID(ctx context.Context, id uint, p MemberPatch) (*models.Member, bool, error) {
	var m models.Member
	if err := s.DB.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, notFoundf("member %d not found", id)
		}
		return nil, false, err
	}
	return s.edit(ctx, &m, p)
}

// edit validates the changed fields, applies them in a single write, and
// hands the leftover cleanup (previous avatar, possibly emptied team) to the
// worker. The returned bool is false when the patch changed nothing and no
// write was performed.
func (s *Service) edit(ctx context.Context, m *models.Member, p MemberPatch) (*models.Member, bool, error) {
	updates := map[string]interface{}{}

	if p.Nickname != nil && *p.Nickname != m.Nickname {
		if ferr := utils.ValidateVar("nickname", *p.Nickname, "required,min=1,max=50"); ferr != nil {
			return nil, false, invalidf(ferr.Field, "%s", ferr.Message)
		}
		updates["nickname"] = *p.Nickname
	}
	if p.ContactID != nil && *p.ContactID != m.ContactID {
		if ferr := utils.ValidateVar("contact_id", *p.ContactID, "required,contactid"); ferr != nil {
			return nil, false, invalidf(ferr.Field, "%s", ferr.Message)
		}
		updates["contact_id"] = *p.ContactID
	}

	targetTeam := m.TeamCode
	teamChanged := false
	if p.TeamCode != nil && *p.TeamCode != m.TeamCode {
		if ferr := utils.ValidateVar("team_code", *p.TeamCode, "required,len=4,numeric"); ferr != nil {
			return nil, false, invalidf(ferr.Field, "%s", ferr.Message)
		}
		targetTeam = *p.TeamCode
		teamChanged = true
		updates["team_code"] = targetTeam
	}

	targetColor := m.Color
	colorChanged := false
	if p.Color != nil && models.MemberColor(*p.Color) != m.Color {
		if !models.ValidColor(*p.Color) {
			return nil, false, invalidf("color", "color must be one of red, green, blue")
		}
		targetColor = models.MemberColor(*p.Color)
		colorChanged = true
		updates["color"] = targetColor
	}

	targetJob := m.Job
	jobChanged := false
	if p.Job != nil && models.MemberJob(*p.Job) != m.Job {
		if !models.ValidJob(*p.Job) {
			return nil, false, invalidf("job", "job must be one of attacker, defender, supporter")
		}
		targetJob = models.MemberJob(*p.Job)
		jobChanged = true
		updates["job"] = targetJob
	}

	if teamChanged || colorChanged || jobChanged {
		// The slot check excludes the row being edited; capacity only
		// matters when moving into a team the member is not counted in.
		if err := s.checkSlot(ctx, targetTeam, targetColor, targetJob, m.ID, teamChanged); err != nil {
			return nil, false, err
		}
	}

	if p.GameAccountID != nil && *p.GameAccountID != m.GameAccountID {
		if ferr := utils.ValidateVar("game_account_id", *p.GameAccountID, "required,min=1,max=13"); ferr != nil {
			return nil, false, invalidf(ferr.Field, "%s", ferr.Message)
		}
		taken, err := s.accountTaken(ctx, *p.GameAccountID, m.ID)
		if err != nil {
			return nil, false, err
		}
		if taken {
			return nil, false, conflictf("game_account_id", "game account %s already registered", *p.GameAccountID)
		}
		updates["game_account_id"] = *p.GameAccountID
	}

	if p.ExternalSubjectID != nil {
		if *p.ExternalSubjectID == "" {
			if m.ExternalSubjectID != nil {
				updates["external_subject_id"] = nil
			}
		} else if m.ExternalSubjectID == nil || *m.ExternalSubjectID != *p.ExternalSubjectID {
			taken, err := s.subjectTaken(ctx, *p.ExternalSubjectID, m.ID)
			if err != nil {
				return nil, false, err
			}
			if taken {
				return nil, false, conflictf("external_subject_id", "identity already bound to another member")
			}
			updates["external_subject_id"] = *p.ExternalSubjectID
		}
	}

	oldLocator := m.MediaLocator
	var newLocator *string
	avatarChanged := false
	if len(p.Avatar) > 0 {
		loc, err := s.Media.Save(p.Avatar, p.AvatarType)
		if err != nil {
			// No field change may survive a failed upload.
			return nil, false, mapMediaError(err)
		}
		newLocator = &loc
		updates["media_locator"] = loc
		avatarChanged = true
	} else if p.ClearAvatar && m.MediaLocator != nil {
		updates["media_locator"] = nil
		avatarChanged = true
	}

	if len(updates) == 0 {
		return m, false, nil
	}
	updates["updated_at"] = time.Now()

	err := s.DB.WithContext(ctx).Model(&models.Member{}).Where("id = ?", m.ID).Updates(updates).Error
	if err != nil {
		if newLocator != nil {
			s.Cleanup.MediaRemove(*newLocator)
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, conflictf("", "conflicting value already registered")
		}
		return nil, false, err
	}

	var fresh models.Member
	if err := s.DB.WithContext(ctx).First(&fresh, m.ID).Error; err != nil {
		return nil, false, err
	}

	if teamChanged {
		s.Cleanup.TeamSweep(m.TeamCode)
	}
	if avatarChanged && oldLocator != nil {
		s.Cleanup.MediaRemove(*oldLocator)
	}

	return &fresh, true, nil
}

// DeleteOwn removes the caller's own registration.
func (s *Service) DeleteOwn(ctx context.Context, subject string) error {
	m, err := s.ResolveSubject(ctx, subject)
	if err != nil {
		return err
	}
	if m == nil {
		return notFoundf("no registration for this identity")
	}
	return s.deleteMember(ctx, m)
}

// DeleteByID removes an arbitrary row; privilege is the caller's problem.
func (s *Service) DeleteByID(ctx context.Context, id uint) error {
	var m models.Member
	if err := s.DB.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundf("member %d not found", id)
		}
		return err
	}
	return s.deleteMember(ctx, &m)
}

func (s *Service) deleteMember(ctx context.Context, m *models.Member) error {
	teamCode := m.TeamCode
	locator := m.MediaLocator

	res := s.DB.WithContext(ctx).Delete(&models.Member{}, m.ID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Lost a race with a concurrent delete.
		return notFoundf("member %d not found", m.ID)
	}

	if locator != nil {
		s.Cleanup.MediaRemove(*locator)
	}
	s.Cleanup.TeamSweep(teamCode)
	return nil
}

// mapMediaError classifies avatar-store failures: local rejections are the
// caller's fault, anything else is the store's.
func mapMediaError(err error) error {
	if errors.Is(err, utils.ErrMediaFormat) {
		return invalidf("avatar", "avatar must be a png, jpeg or webp image")
	}
	if errors.Is(err, utils.ErrMediaTooLarge) {
		return invalidf("avatar", "avatar exceeds the size limit")
	}
	return upstreamf("storing avatar failed: %v", err)
}
