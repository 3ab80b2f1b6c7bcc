package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"squadreg/services"
)

type TeamController struct {
	Service *services.Service
	Logger  *logrus.Logger
}

func NewTeamController(svc *services.Service, logger *logrus.Logger) *TeamController {
	return &TeamController{Service: svc, Logger: logger}
}

// CreateTeam claims a team code before anyone joins it. Joining an unused
// code is a 404, not an implicit create.
func (tc *TeamController) CreateTeam(c *fiber.Ctx) error {
	var req struct {
		Code string `json:"code" form:"code"`
		Name string `json:"name" form:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	team, err := tc.Service.CreateTeam(c.UserContext(), services.CreateTeamInput{
		Code: req.Code,
		Name: req.Name,
	})
	if err != nil {
		return respondError(c, tc.Logger, err)
	}

	tc.Logger.WithFields(logrus.Fields{
		"team_code": team.Code,
		"name":      team.Name,
	}).Info("Team created")

	return c.Status(fiber.StatusCreated).JSON(team)
}

// CheckTeam returns the team and its roster.
func (tc *TeamController) CheckTeam(c *fiber.Ctx) error {
	team, err := tc.Service.CheckTeam(c.UserContext(), c.Params("code"))
	if err != nil {
		return respondError(c, tc.Logger, err)
	}

	return c.JSON(fiber.Map{
		"team":    team,
		"members": team.Members,
	})
}
