package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"

	controller "mailpilot/controllers"
	"mailpilot/engine"
	"mailpilot/middleware"
	"mailpilot/store"
)

func SetupRoutes(app *fiber.App, st *store.Store, eng *engine.Engine) {
	emailController := controller.NewEmailController(st, eng, log.New(os.Stdout, "EMAIL: ", log.LstdFlags))
	ruleController := controller.NewRuleController(st, log.New(os.Stdout, "RULE: ", log.LstdFlags))
	notificationController := controller.NewNotificationController(st, log.New(os.Stdout, "NOTIFY: ", log.LstdFlags))
	logController := controller.NewLogController(st, log.New(os.Stdout, "LOG: ", log.LstdFlags))

	// Every appended processing log entry is fanned out to stream clients
	st.SetLogHook(logController.Publish)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Email intake and state
	emails := api.Group("/emails")
	emails.Post("/", middleware.IntakeRateLimiter(), emailController.IngestEmail)
	emails.Get("/:id/state", emailController.GetEmailState)

	// Routing rules
	rules := api.Group("/rules")
	rules.Post("/", ruleController.CreateRule)
	rules.Get("/", ruleController.ListRules)
	rules.Get("/:id", ruleController.GetRule)
	rules.Put("/:id", ruleController.UpdateRule)
	rules.Delete("/:id", ruleController.DeleteRule)

	// Notification rules and settings
	notifications := api.Group("/notifications")
	notifications.Post("/rules", notificationController.CreateNotificationRule)
	notifications.Get("/rules", notificationController.ListNotificationRules)
	notifications.Put("/rules/:id", notificationController.UpdateNotificationRule)
	notifications.Delete("/rules/:id", notificationController.DeleteNotificationRule)
	notifications.Get("/settings", notificationController.GetSettings)
	notifications.Put("/settings", notificationController.UpdateSettings)

	// Processing log
	api.Get("/logs", logController.ListLogs)
	app.Get("/api/v1/logs/stream", websocket.New(func(c *websocket.Conn) {
		logController.HandleLogStreamWS(c)
	}))

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})

	log.Println("API routes initialized successfully")
}
