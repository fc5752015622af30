package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"

	"mailpilot/config"
	"mailpilot/engine"
	"mailpilot/middleware"
	"mailpilot/routes"
	"mailpilot/store"
	"mailpilot/utils"
	"mailpilot/worker"
)

func main() {
	logger := log.New(os.Stdout, "MAILPILOT: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize error reporting
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("Sentry initialization failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	st := store.New(config.DB)

	// Wire the engine: store-backed persistence, SMTP/webhook transport,
	// notifier observing processed emails for arrival rules
	transport := utils.NewMailTransport(log.New(os.Stdout, "TRANSPORT: ", log.LstdFlags))
	dispatcher := engine.NewDispatcher(st, st, st, transport, log.New(os.Stdout, "DISPATCH: ", log.LstdFlags))
	notifier := worker.NewNotifier(st, transport, log.New(os.Stdout, "NOTIFY: ", log.LstdFlags), config.AppConfig.SchedulerTick)
	eng := engine.NewEngine(st, dispatcher, notifier, log.New(os.Stdout, "ENGINE: ", log.LstdFlags))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go notifier.Start(ctx)

	if config.AppConfig.IMAP.Enabled {
		imapWorker := worker.NewIMAPWorker(st, eng, log.New(os.Stdout, "IMAP: ", log.LstdFlags))
		go imapWorker.Start(ctx)
	}

	// Create Fiber app
	app := fiber.New()
	app.Use(middleware.CORS())

	routes.SetupRoutes(app, st, eng)

	go func() {
		<-ctx.Done()
		logger.Println("Shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Printf("Server shutdown error: %v", err)
		}
	}()

	logger.Printf("Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
