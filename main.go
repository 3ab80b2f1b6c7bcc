package main

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"squadreg/config"
	"squadreg/middleware"
	"squadreg/routes"
	"squadreg/services"
	"squadreg/utils"
	"squadreg/worker"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Fatalf("Failed to initialize sentry: %v", err)
		}
	}

	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	avatarStore, err := utils.NewAvatarStore(
		config.AppConfig.UploadDir,
		config.AppConfig.UploadBaseURL,
		config.AppConfig.MaxAvatarBytes,
		logger,
	)
	if err != nil {
		logger.Fatalf("Failed to initialize avatar store: %v", err)
	}

	// The cleanup worker consumes the deferred obligations the service
	// emits; the service in turn performs the worker's team sweeps.
	cleanupWorker := worker.NewCleanupWorker(avatarStore, config.AppConfig.CleanupQueueSize, logger)
	svc := services.NewService(config.DB, avatarStore, cleanupWorker, logger)
	cleanupWorker.Sweeper = svc

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cleanupWorker.Start(ctx)

	app := fiber.New(fiber.Config{
		BodyLimit: config.AppConfig.MaxAvatarBytes + 1<<20,
	})

	app.Use(middleware.CORS())
	app.Static(config.AppConfig.UploadBaseURL, config.AppConfig.UploadDir)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "running",
		})
	})

	routes.SetupRoutes(app, svc, logger)

	logger.Infof("Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
