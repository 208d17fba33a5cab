package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mooringhub/internal/adapters/http/middleware"
	"mooringhub/internal/adapters/http/routes"
	"mooringhub/internal/adapters/persistence/models"
	"mooringhub/internal/config"
	"mooringhub/internal/core/services"

	"github.com/gofiber/fiber/v2"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	log.Println("✅ Database migration completed")

	// Seed reference data
	if err := config.NewSeeder(db).Run(); err != nil {
		log.Printf("⚠️ Warning: Failed to seed reference data: %v", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "MooringHub API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes (pass db and cfg for dependency injection)
	container := routes.Setup(app, db, cfg)

	// Start batch scheduler: compliance sweeps, unpaid expiry, renewal
	// notices, vessel nomination checks and token cleanup
	cronService := services.NewCronService(
		container.ApprovalRepo,
		container.RefreshTokenRepo,
		container.ProposalService,
		container.ComplianceService,
		container.Notifier,
		time.Duration(cfg.Fees.RenewalNoticeDays)*24*time.Hour,
		time.Duration(cfg.Fees.NominationGraceDays)*24*time.Hour,
	)
	cronService.Start()
	defer cronService.Stop()

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
