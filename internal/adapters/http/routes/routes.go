package routes

import (
	"log"
	"time"

	"mooringhub/internal/adapters/http/handlers"
	"mooringhub/internal/adapters/http/middleware"
	"mooringhub/internal/adapters/persistence/repositories"
	"mooringhub/internal/config"
	"mooringhub/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Container exposes the wired services the batch scheduler needs.
type Container struct {
	ProposalService   *services.ProposalService
	ComplianceService *services.ComplianceService
	ApprovalRepo      repositories.ApprovalRepository
	RefreshTokenRepo  repositories.RefreshTokenRepository
	Notifier          services.Notifier
}

// Setup configures all routes for the application and returns the wired
// service container.
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) *Container {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	feeRepo := repositories.NewFeeRepository(db)
	proposalRepo := repositories.NewProposalRepository(db)
	approvalRepo := repositories.NewApprovalRepository(db)
	stickerRepo := repositories.NewStickerRepository(db)
	complianceRepo := repositories.NewComplianceRepository(db)
	txRunner := repositories.NewTxRunner(db)

	// External integrations
	gateway := services.NewPaymentGatewayService(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, cfg.Gateway.System)
	notifier := services.NewNotificationService(cfg.Notify.WebhookURL, cfg.Notify.APIKey)
	documents := services.NewDocumentService(cfg.Document.OutputDir, cfg.Document.Authority)

	// Initialize services
	authService := services.NewAuthService(userRepo, refreshTokenRepo, cfg)
	userService := services.NewUserService(userRepo)

	gstRate, err := decimal.NewFromString(cfg.Fees.GSTRate)
	if err != nil {
		log.Printf("⚠️ Invalid GST_RATE %q, falling back to 0.10", cfg.Fees.GSTRate)
		gstRate = decimal.NewFromFloat(0.10)
	}

	feeService := services.NewFeeService(feeRepo)
	pricingService := services.NewPricingService(feeService, feeRepo, proposalRepo, approvalRepo, gstRate)
	approvalService := services.NewApprovalService(approvalRepo)
	complianceService := services.NewComplianceService(complianceRepo, proposalRepo, notifier)
	stickerService := services.NewStickerService(stickerRepo, notifier)

	proposalService := services.NewProposalService(
		proposalRepo,
		feeRepo,
		approvalService,
		complianceService,
		stickerService,
		pricingService,
		userService,
		gateway,
		notifier,
		txRunner,
		time.Duration(cfg.Fees.PaymentDeadlineDays)*24*time.Hour,
	)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	proposalHandler := handlers.NewProposalHandler(proposalService, pricingService)
	approvalHandler := handlers.NewApprovalHandler(approvalService, complianceService, stickerService, documents)
	complianceHandler := handlers.NewComplianceHandler(complianceService)
	stickerHandler := handlers.NewStickerHandler(stickerService)
	feeHandler := handlers.NewFeeHandler(feeService)
	dashboardHandler := handlers.NewDashboardHandler(services.NewDashboardService(db))
	paymentHandler := handlers.NewPaymentHandler(proposalService, gateway)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	apiV1.Get("/", healthHandler.APIInfo)

	// Auth routes (public)
	authRoutes := apiV1.Group("/auth")
	setupAuthRoutes(authRoutes, authHandler, cfg)

	// User management routes (Admin only)
	userRoutes := apiV1.Group("/users")
	userRoutes.Use(middleware.AuthMiddleware(cfg))
	userRoutes.Use(middleware.AdminOnly())
	setupUserRoutes(userRoutes, userHandler)

	// Profile routes (Authenticated users)
	profileRoutes := apiV1.Group("/profile")
	profileRoutes.Use(middleware.AuthMiddleware(cfg))
	setupProfileRoutes(profileRoutes, userHandler)

	// Application routes (Authenticated users; group membership enforced
	// per operation inside the service)
	proposalRoutes := apiV1.Group("/proposals")
	proposalRoutes.Use(middleware.AuthMiddleware(cfg))
	setupProposalRoutes(proposalRoutes, proposalHandler)

	// Approval routes (Authenticated users)
	approvalRoutes := apiV1.Group("/approvals")
	approvalRoutes.Use(middleware.AuthMiddleware(cfg))
	setupApprovalRoutes(approvalRoutes, approvalHandler)

	// Compliance routes
	complianceRoutes := apiV1.Group("/compliances")
	complianceRoutes.Use(middleware.AuthMiddleware(cfg))
	setupComplianceRoutes(complianceRoutes, complianceHandler)

	// Sticker routes (Officer/Admin)
	stickerRoutes := apiV1.Group("/stickers")
	stickerRoutes.Use(middleware.AuthMiddleware(cfg))
	stickerRoutes.Use(middleware.OfficerOrAdmin())
	setupStickerRoutes(stickerRoutes, stickerHandler)

	// Fee schedule routes
	feeRoutes := apiV1.Group("/fees")
	feeRoutes.Use(middleware.AuthMiddleware(cfg))
	setupFeeRoutes(feeRoutes, feeHandler)

	// Dashboard routes
	dashboardRoutes := apiV1.Group("/dashboard")
	dashboardRoutes.Use(middleware.AuthMiddleware(cfg))
	setupDashboardRoutes(dashboardRoutes, dashboardHandler)

	// Payment gateway callback (unauthenticated, strictly rate limited)
	apiV1.Post("/payments/callback", middleware.StrictRateLimiter(), paymentHandler.Callback)

	return &Container{
		ProposalService:   proposalService,
		ComplianceService: complianceService,
		ApprovalRepo:      approvalRepo,
		RefreshTokenRepo:  refreshTokenRepo,
		Notifier:          notifier,
	}
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes
	router.Post("/register", middleware.AuthRateLimiter(), handler.Register)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Get("/me", middleware.AuthMiddleware(cfg), handler.Me)
	router.Post("/logout-all", middleware.AuthMiddleware(cfg), handler.LogoutAll)
}

// setupUserRoutes configures user management routes (Admin only)
func setupUserRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/", handler.ListUsers)
	router.Get("/:id", handler.GetUser)
	router.Put("/:id", handler.UpdateUser)
	router.Put("/:id/role", handler.SetUserRole)
	router.Post("/:id/groups", handler.AddToGroup)
}

// setupProfileRoutes configures profile routes (Authenticated)
func setupProfileRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/", handler.GetProfile)
	router.Put("/", handler.UpdateProfile)
	router.Put("/password", middleware.StrictRateLimiter(), handler.ChangePassword)
}

// setupProposalRoutes configures application lifecycle routes
func setupProposalRoutes(router fiber.Router, handler *handlers.ProposalHandler) {
	// Applicant-facing
	router.Post("/", handler.Create)
	router.Get("/", handler.List)
	router.Get("/:id", handler.GetByID)
	router.Get("/:id/quote", handler.Quote)
	router.Post("/:id/submit", handler.Submit)
	router.Post("/:id/withdraw", handler.Withdraw)

	// Endorsement (group membership checked by the service)
	router.Post("/:id/endorse", handler.Endorse)

	// Assessment workflow (Officer/Admin)
	officerRoutes := router.Group("")
	officerRoutes.Use(middleware.OfficerOrAdmin())

	officerRoutes.Put("/:id/status", handler.MoveToStatus)
	officerRoutes.Post("/:id/requirements", handler.AddRequirement)
	officerRoutes.Post("/:id/propose-approval", handler.ProposeApproval)
	officerRoutes.Post("/:id/propose-decline", handler.ProposeDecline)
	officerRoutes.Post("/:id/approve", handler.FinalApproval)
	officerRoutes.Post("/:id/decline", handler.FinalDecline)
	officerRoutes.Post("/:id/reissue", handler.Reissue)
	officerRoutes.Post("/:id/documents-received", handler.DocumentsReceived)
}

// setupApprovalRoutes configures entitlement routes
func setupApprovalRoutes(router fiber.Router, handler *handlers.ApprovalHandler) {
	router.Get("/waiting-list", middleware.OfficerOrAdmin(), handler.ListWaitingList)
	router.Get("/:id", handler.GetByID)
	router.Get("/:id/compliances", handler.ListCompliances)
	router.Get("/:id/stickers", handler.ListStickers)
	router.Post("/:id/documents/licence", middleware.OfficerOrAdmin(), handler.GenerateLicence)
	router.Post("/:id/documents/summary", middleware.OfficerOrAdmin(), handler.GenerateSummary)
}

// setupComplianceRoutes configures compliance requirement routes
func setupComplianceRoutes(router fiber.Router, handler *handlers.ComplianceHandler) {
	router.Get("/", middleware.OfficerOrAdmin(), handler.List)
	router.Post("/:id/submit", handler.Submit)
	router.Post("/:id/accept", middleware.OfficerOrAdmin(), handler.Accept)
	router.Post("/:id/discard", middleware.OfficerOrAdmin(), handler.Discard)
}

// setupStickerRoutes configures sticker routes (Officer/Admin)
func setupStickerRoutes(router fiber.Router, handler *handlers.StickerHandler) {
	router.Post("/:id/printed", handler.MarkPrinted)
	router.Post("/:id/returned", handler.RecordReturn)
}

// setupDashboardRoutes configures dashboard routes
func setupDashboardRoutes(router fiber.Router, handler *handlers.DashboardHandler) {
	// Auto-detect role dashboard (All authenticated users)
	router.Get("/", handler.GetMyDashboard)

	// Applicant dashboard (All authenticated users)
	router.Get("/user", handler.GetUserDashboard)

	// Officer dashboard (Officer/Admin only)
	router.Get("/officer", middleware.OfficerOrAdmin(), handler.GetOfficerDashboard)

	// Admin dashboard (Admin only)
	router.Get("/admin", middleware.AdminOnly(), handler.GetAdminDashboard)
}

// setupFeeRoutes configures fee schedule routes
func setupFeeRoutes(router fiber.Router, handler *handlers.FeeHandler) {
	// Schedule reads are cacheable and available to every authenticated user
	router.Get("/schedule", middleware.FeeScheduleCache(), handler.GetSchedule)

	// Schedule administration (Admin only)
	adminRoutes := router.Group("")
	adminRoutes.Use(middleware.AdminOnly())

	adminRoutes.Get("/constructors/:id", handler.GetConstructor)
	adminRoutes.Post("/constructors", handler.CreateConstructor)
	adminRoutes.Put("/constructors/:id/enable", handler.EnableConstructor)
	adminRoutes.Post("/constructors/:id/reconstruct", handler.ReconstructFeeItems)
	adminRoutes.Put("/items/:id", handler.UpdateFeeItem)
}
