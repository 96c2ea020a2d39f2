package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/joho/godotenv"

	"github.com/pairworks/tpsflow/internal/calendar"
	"github.com/pairworks/tpsflow/internal/config"
	"github.com/pairworks/tpsflow/internal/database"
	"github.com/pairworks/tpsflow/internal/handlers"
	"github.com/pairworks/tpsflow/internal/middleware"
	"github.com/pairworks/tpsflow/internal/notify"
	"github.com/pairworks/tpsflow/internal/pdfform"
	"github.com/pairworks/tpsflow/internal/snapshot"
	"github.com/pairworks/tpsflow/internal/store"
	"github.com/pairworks/tpsflow/internal/template"
	"github.com/pairworks/tpsflow/internal/types"
	"github.com/pairworks/tpsflow/internal/workflow"

	_ "github.com/pairworks/tpsflow/docs/api" // Swagger docs
)

// @title tpsflow API
// @version 1.0.0
// @description Two-party TPS report workflow service
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/pairworks/tpsflow

// @license.name MIT

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	// Load .env when present; the container sets real env vars instead
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Parse the canonical template once; the machine validates every
	// mutating payload against this field set.
	templates := template.NewSource(cfg.TemplateDir)
	templateBytes, err := templates.Get(template.CanonicalKey)
	if err != nil {
		log.Fatalf("Failed to load template %q: %v", template.CanonicalKey, err)
	}
	doc, err := pdfform.Parse(templateBytes)
	if err != nil {
		log.Fatalf("Failed to parse template %q: %v", template.CanonicalKey, err)
	}

	// Wire the workflow machine and its side-effect collaborators
	reportStore := store.New(db)

	var notifier workflow.Notifier = notify.LogOnly{}
	if cfg.NotifyWebhookURL != "" {
		notifier = notify.NewWebhook(cfg.NotifyWebhookURL)
	}
	scheduler := calendar.New(reportStore)
	snapshots := snapshot.NewDiskStore(cfg.SnapshotDir)
	machine := workflow.New(reportStore, doc.FieldSet(), notifier, scheduler, snapshot.NewRenderer(), snapshots)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: false,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("tpsflow")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Create handlers
	reportsHandler := &handlers.ReportsHandler{Machine: machine, Store: reportStore, Snapshots: snapshots}
	templatesHandler := &handlers.TemplatesHandler{Source: templates, Machine: machine}
	calendarHandler := &handlers.CalendarHandler{Scheduler: scheduler}
	healthHandler := &handlers.HealthHandler{Cfg: cfg, DB: db}

	// API routes under /api
	api := app.Group("/api")
	api.Get("/health", healthHandler.Check)

	auth := middleware.AuthUser(cfg)

	// Static routes before :id routes
	api.Get("/reports/counts", auth, reportsHandler.GetCounts)
	api.Post("/reports", auth, reportsHandler.CreateReport)
	api.Get("/reports", auth, reportsHandler.ListReports)
	api.Get("/reports/:id", auth, reportsHandler.GetReport)
	api.Post("/reports/:id/transition", auth, reportsHandler.Transition)
	api.Post("/reports/:id/replicate", auth, reportsHandler.Replicate)
	api.Get("/reports/:id/logs", auth, reportsHandler.GetLogs)
	api.Get("/reports/:id/snapshot", auth, reportsHandler.GetSnapshot)
	api.Get("/reports/:id/overlay", auth, templatesHandler.GetOverlay)

	api.Get("/templates/:key", auth, templatesHandler.GetTemplate)
	api.Get("/templates/:key/fields", auth, templatesHandler.GetTemplateFields)

	api.Get("/calendar", auth, calendarHandler.ListEvents)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	log.Printf("Starting server on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}
	if ce, ok := err.(*types.CustomError); ok {
		code = ce.Code
		message = ce.Message
		errorType = ce.Type
	}

	statusError := code == fiber.StatusConflict

	return c.Status(code).JSON(fiber.Map{
		"status":      code,
		"message":     message,
		"ok":          false,
		"statusError": statusError,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"url":         c.OriginalURL(),
		"type":        errorType,
	})
}
