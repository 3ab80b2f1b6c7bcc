package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"

	controller "squadreg/controllers"
	"squadreg/middleware"
	"squadreg/services"
)

func SetupRoutes(app *fiber.App, svc *services.Service, log *logrus.Logger) {
	teamController := controller.NewTeamController(svc, log)
	memberController := controller.NewMemberController(svc, log)
	adminController := controller.NewAdminController(svc, log)

	requestLog := logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	})

	// Public endpoints
	app.Get("/teams/:code", requestLog, teamController.CheckTeam)

	// Authenticated endpoints: a verified identity, not necessarily one
	// holding a slot yet.
	api := app.Group("", requestLog, middleware.Protected())
	api.Post("/teams", teamController.CreateTeam)
	api.Post("/teams/:code/members", memberController.Join)
	api.Get("/members/me", memberController.Me)
	api.Patch("/members/me", memberController.EditMe)
	api.Delete("/members/me", memberController.DeleteMe)

	// Privileged endpoints
	admin := app.Group("/admin", requestLog, middleware.Protected(), middleware.Privileged())
	admin.Post("/members", adminController.AddMember)
	admin.Patch("/members/:id", adminController.EditMember)
	admin.Delete("/members/:id", adminController.DeleteMember)

	log.Info("Routes initialized successfully")
}
