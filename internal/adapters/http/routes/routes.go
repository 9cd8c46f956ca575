package routes

import (
	"libr-backend/internal/adapters/http/handlers"
	"libr-backend/internal/adapters/http/middleware"
	"libr-backend/internal/adapters/persistence/repositories"
	"libr-backend/internal/config"
	"libr-backend/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	copyRepo := repositories.NewCopyRepository(db)
	loanRepo := repositories.NewLoanRepository(db)
	requestRepo := repositories.NewRequestRepository(db)

	// Initialize services
	authService := services.NewAuthService(userRepo, refreshTokenRepo, cfg)
	userService := services.NewUserService(userRepo)
	catalogService := services.NewCatalogService(bookRepo, copyRepo)
	notifyService := services.NewNotificationService()
	borrowService := services.NewBorrowService(
		userRepo,
		bookRepo,
		copyRepo,
		loanRepo,
		requestRepo,
		notifyService,
	)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	bookHandler := handlers.NewBookHandler(catalogService, borrowService)
	borrowHandler := handlers.NewBorrowHandler(borrowService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API group
	api := app.Group("/api")

	// Public routes
	api.Post("/login", middleware.AuthRateLimiter(), authHandler.Login)
	api.Post("/users", middleware.AuthRateLimiter(), authHandler.Register)

	// Auth lifecycle routes
	authRoutes := api.Group("/auth")
	authRoutes.Post("/refresh", authHandler.RefreshToken)
	authRoutes.Post("/logout", authHandler.Logout)
	authRoutes.Get("/me", middleware.AuthMiddleware(cfg), authHandler.Me)
	authRoutes.Post("/logout-all", middleware.AuthMiddleware(cfg), authHandler.LogoutAll)

	// Book routes (authenticated)
	bookRoutes := api.Group("/books")
	bookRoutes.Use(middleware.AuthMiddleware(cfg))
	setupBookRoutes(bookRoutes, bookHandler, borrowHandler)

	// User routes (authenticated; listing and mutation admin only)
	userRoutes := api.Group("/users")
	userRoutes.Use(middleware.AuthMiddleware(cfg))
	setupUserRoutes(userRoutes, userHandler, borrowHandler)
}

// setupBookRoutes configures catalog and borrowing routes
func setupBookRoutes(router fiber.Router, bookHandler *handlers.BookHandler, borrowHandler *handlers.BorrowHandler) {
	router.Get("/", bookHandler.ListBooks)

	// Borrowing operations
	router.Post("/copies/:copyId/borrow", borrowHandler.BorrowCopy)
	router.Post("/copies/:copyId/return", borrowHandler.ReturnCopy)
	router.Post("/copies/:copyId/request", borrowHandler.RequestCopy)
	router.Post("/requests/:requestId/cancel", borrowHandler.CancelRequest)

	// Admin operations
	router.Post("/", middleware.AdminOnly(), bookHandler.CreateBook)
	router.Delete("/copies/:copyId", middleware.AdminOnly(), bookHandler.DeleteCopy)
	router.Delete("/:id/delete", middleware.AdminOnly(), bookHandler.DeleteBook)
	router.Post("/:id/copies", middleware.AdminOnly(), bookHandler.AddCopy)

	router.Get("/:id", bookHandler.GetBook)
	router.Get("/:id/copies", bookHandler.ListCopies)
}

// setupUserRoutes configures user management routes
func setupUserRoutes(router fiber.Router, userHandler *handlers.UserHandler, borrowHandler *handlers.BorrowHandler) {
	// Own profile
	router.Put("/me", userHandler.UpdateProfile)
	router.Put("/me/password", userHandler.ChangePassword)

	// Per-user borrowing views (self or admin)
	router.Get("/:id/borrowed", borrowHandler.ListBorrowed)
	router.Get("/:id/requests", borrowHandler.ListRequests)

	// Admin only
	router.Get("/", middleware.AdminOnly(), userHandler.ListUsers)
	router.Get("/:id", middleware.AdminOnly(), userHandler.GetUser)
	router.Put("/:id", middleware.AdminOnly(), userHandler.UpdateUser)
	router.Delete("/:id", middleware.AdminOnly(), userHandler.DeleteUser)
}
