package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"churninsight/dashboard/internal/config"
	"churninsight/dashboard/internal/handlers"
	"churninsight/dashboard/internal/metrics"
	"churninsight/dashboard/internal/models"
	"churninsight/dashboard/internal/repositories"
	"churninsight/dashboard/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Println("✅ Config loaded successfully")

	zlog, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	collector := metrics.NewCollector()

	// Job history is optional; the dashboard works without a database.
	var jobs repositories.BatchJobRepository
	if cfg.Database.Enabled {
		db, err := config.InitDatabase(cfg, zlog)
		if err != nil {
			zlog.Fatal("failed to initialize database", zap.Error(err))
		}
		jobs = repositories.NewBatchJobRepository(db)
		log.Println("✅ Repositories initialized successfully")
	} else {
		zlog.Warn("database disabled, batch history will not be recorded")
	}

	// Initialize services
	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		zlog.Fatal("failed to create upload directory", zap.Error(err))
	}

	backend := services.NewBackendClient(cfg.Backend, nil, collector, zlog.Named("backend"))
	dashboard := services.NewDashboardService(backend, cfg.Dashboard, zlog.Named("dashboard"))
	log.Println("✅ Services initialized successfully")

	newSession := func(id string) *services.Session {
		batch := services.NewBatchController(backend, services.BatchOptions{
			PollInterval: cfg.Batch.PollInterval,
			SessionID:    id,
			Jobs:         jobs,
			Metrics:      collector,
			Logger:       zlog.Named("batch").With(zap.String("session_id", id)),
		})
		// Completed jobs change the statistics.
		batch.OnTerminal(func(models.BatchStatus) {
			dashboard.Invalidate()
		})

		return &services.Session{
			ID:    id,
			Batch: batch,
			Search: services.NewSearchController(backend, services.SearchOptions{
				HighRiskThreshold: cfg.Dashboard.HighRiskThreshold,
				Metrics:           collector,
				Logger:            zlog.Named("search"),
			}),
			Prediction: services.NewPredictionController(backend, zlog.Named("prediction")),
		}
	}

	registry := services.NewSessionRegistry(
		newSession,
		cfg.Session.IdleTimeout,
		cfg.Session.SweepInterval,
		collector,
		zlog.Named("sessions"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	registry.Start(ctx)
	log.Println("✅ Session reaper started successfully")

	// Initialize Handlers
	h := handlers.Handlers{
		Prediction: handlers.NewPredictionHandler(),
		Batch:      handlers.NewBatchHandler(storageService, jobs, cfg.Storage.MaxFileSize, zlog.Named("handlers")),
		Clients:    handlers.NewClientsHandler(dashboard),
		Dashboard:  handlers.NewDashboardHandler(dashboard),
	}
	log.Println("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "ChurnInsight Dashboard API",
		ReadTimeout:  cfg.Backend.UploadTimeout,
		WriteTimeout: cfg.Backend.UploadTimeout,
		BodyLimit:    int(cfg.Storage.MaxFileSize),
		ErrorHandler: handlers.ErrorHandler(zlog),
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, " + handlers.SessionHeader,
		ExposeHeaders: handlers.SessionHeader,
	}))

	// Routes
	app.Get("/metrics", adaptor.HTTPHandler(collector.Handler()))
	handlers.RegisterRoutes(app, registry, h)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "ChurnInsight Dashboard API",
			"version": "1.0.0",
			"backend": cfg.Backend.BaseURL,
			"endpoints": []string{
				"POST /api/v1/predictions",
				"POST /api/v1/batch",
				"GET /api/v1/clients",
				"GET /api/v1/dashboard",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("\n🛑 Shutting down server...")
		cancel()
		registry.Stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			zlog.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 Server starting on %s\n", addr)
	log.Printf("📖 Backend API: %s\n", cfg.Backend.BaseURL)

	if err := app.Listen(addr); err != nil {
		zlog.Fatal("failed to start server", zap.Error(err))
	}
}
