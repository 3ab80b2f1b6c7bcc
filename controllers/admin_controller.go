package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"squadreg/models"
	"squadreg/services"
)

// AdminController serves the privileged surface: adding members on behalf of
// players, editing arbitrary rows (including team moves, account-id fixes
// and identity rebinding) and removing rows by id. The privileged flag
// itself is never writable here.
type AdminController struct {
	Service *services.Service
	Logger  *logrus.Logger
}

func NewAdminController(svc *services.Service, logger *logrus.Logger) *AdminController {
	return &AdminController{Service: svc, Logger: logger}
}

// AddMember registers a member without requiring the target identity to be
// present. The subject binding is optional; an unbound row can be claimed
// later by rebinding.
func (ac *AdminController) AddMember(c *fiber.Ctx) error {
	avatar, avatarType, err := formAvatar(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Malformed upload",
		})
	}

	member, err := ac.Service.Join(c.UserContext(), services.JoinInput{
		TeamCode:      c.FormValue("team_code"),
		Color:         c.FormValue("color"),
		Job:           c.FormValue("job"),
		GameAccountID: c.FormValue("game_account_id"),
		Nickname:      c.FormValue("nickname"),
		ContactID:     c.FormValue("contact_id"),
		Subject:       c.FormValue("external_subject_id"),
		Avatar:        avatar,
		AvatarType:    avatarType,
	})
	if err != nil {
		return respondError(c, ac.Logger, err)
	}

	ac.logAction(c, "admin add", member.ID)
	return c.Status(fiber.StatusCreated).JSON(member)
}

// EditMember patches an arbitrary row, privileged fields included.
func (ac *AdminController) EditMember(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid member ID",
		})
	}

	patch, err := readPatch(c, true)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Malformed upload",
		})
	}

	member, changed, err := ac.Service.EditByID(c.UserContext(), uint(id), patch)
	if err != nil {
		return respondError(c, ac.Logger, err)
	}
	if !changed {
		return c.JSON(fiber.Map{
			"message": "no changes",
			"member":  member,
		})
	}

	ac.logAction(c, "admin edit", member.ID)
	return c.JSON(member)
}

// DeleteMember removes an arbitrary row by id.
func (ac *AdminController) DeleteMember(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid member ID",
		})
	}

	if err := ac.Service.DeleteByID(c.UserContext(), uint(id)); err != nil {
		return respondError(c, ac.Logger, err)
	}

	ac.logAction(c, "admin delete", uint(id))
	return c.JSON(fiber.Map{
		"message": "Member deleted",
	})
}

func (ac *AdminController) logAction(c *fiber.Ctx, action string, memberID uint) {
	fields := logrus.Fields{
		"action":    action,
		"member_id": memberID,
	}
	if actor, ok := c.Locals("actor").(*models.Member); ok {
		fields["actor_id"] = actor.ID
	}
	ac.Logger.WithFields(fields).Info("Privileged action")
}
