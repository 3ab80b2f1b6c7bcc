package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"squadreg/services"
)

type MemberController struct {
	Service *services.Service
	Logger  *logrus.Logger
}

func NewMemberController(svc *services.Service, logger *logrus.Logger) *MemberController {
	return &MemberController{Service: svc, Logger: logger}
}

// Join registers the caller into a slot of the team in the path. Multipart
// form; the avatar part is optional.
func (mc *MemberController) Join(c *fiber.Ctx) error {
	subject, _ := c.Locals("subject").(string)

	avatar, avatarType, err := formAvatar(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Malformed upload",
		})
	}

	member, err := mc.Service.Join(c.UserContext(), services.JoinInput{
		TeamCode:      c.Params("code"),
		Color:         c.FormValue("color"),
		Job:           c.FormValue("job"),
		GameAccountID: c.FormValue("game_account_id"),
		Nickname:      c.FormValue("nickname"),
		ContactID:     c.FormValue("contact_id"),
		Subject:       subject,
		Avatar:        avatar,
		AvatarType:    avatarType,
	})
	if err != nil {
		return respondError(c, mc.Logger, err)
	}

	mc.Logger.WithFields(logrus.Fields{
		"team_code": member.TeamCode,
		"member_id": member.ID,
		"color":     member.Color,
		"job":       member.Job,
	}).Info("Member joined")

	return c.Status(fiber.StatusCreated).JSON(member)
}

// Me returns the caller's own registration.
func (mc *MemberController) Me(c *fiber.Ctx) error {
	subject, _ := c.Locals("subject").(string)

	member, err := mc.Service.Me(c.UserContext(), subject)
	if err != nil {
		return respondError(c, mc.Logger, err)
	}
	return c.JSON(member)
}

// EditMe applies a partial update to the caller's own row. Fields absent
// from the form stay untouched; a patch that changes nothing is a no-op.
func (mc *MemberController) EditMe(c *fiber.Ctx) error {
	subject, _ := c.Locals("subject").(string)

	patch, err := readPatch(c, false)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Malformed upload",
		})
	}

	member, changed, err := mc.Service.EditOwn(c.UserContext(), subject, patch)
	if err != nil {
		return respondError(c, mc.Logger, err)
	}
	if !changed {
		return c.JSON(fiber.Map{
			"message": "no changes",
			"member":  member,
		})
	}
	return c.JSON(member)
}

// DeleteMe removes the caller's own registration.
func (mc *MemberController) DeleteMe(c *fiber.Ctx) error {
	subject, _ := c.Locals("subject").(string)

	if err := mc.Service.DeleteOwn(c.UserContext(), subject); err != nil {
		return respondError(c, mc.Logger, err)
	}

	mc.Logger.WithField("subject", subject).Info("Member left")
	return c.JSON(fiber.Map{
		"message": "Member deleted",
	})
}

// readPatch collects present form fields into a partial update. Privileged
// fields are only picked up when the caller came through the admin surface.
func readPatch(c *fiber.Ctx, privileged bool) (services.MemberPatch, error) {
	patch := services.MemberPatch{
		Nickname:  formValue(c, "nickname"),
		ContactID: formValue(c, "contact_id"),
		Color:     formValue(c, "color"),
		Job:       formValue(c, "job"),
	}

	if privileged {
		patch.TeamCode = formValue(c, "team_code")
		patch.GameAccountID = formValue(c, "game_account_id")
		patch.ExternalSubjectID = formValue(c, "external_subject_id")
	}

	if v := formValue(c, "avatar_clear"); v != nil && (*v == "true" || *v == "1") {
		patch.ClearAvatar = true
	}

	avatar, avatarType, err := formAvatar(c)
	if err != nil {
		return patch, err
	}
	patch.Avatar = avatar
	patch.AvatarType = avatarType

	return patch, nil
}
