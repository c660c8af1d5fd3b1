package router

import (
	"database/sql"

	"hotel_pms_backend/internal/config"
	"hotel_pms_backend/internal/handlers"
	"hotel_pms_backend/internal/middleware"
	"hotel_pms_backend/internal/repositories"
	"hotel_pms_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// Setup wires repositories, services, and handlers and registers all routes.
// The returned AuthService is also used at startup to seed the default admin.
func Setup(engine *gin.Engine, db *sql.DB, cfg *config.Config, push services.PushInitiator) (services.AuthService, services.PaymentService) {
	// Initialize Repositories
	orderRepo := repositories.NewOrderRepository(db)
	billRepo := repositories.NewBillRepository(db)
	paymentRepo := repositories.NewPaymentRepository(db)
	staffRepo := repositories.NewStaffRepository(db)

	// Initialize Services
	authService := services.NewAuthService(staffRepo, db)
	orderService := services.NewOrderService(orderRepo, db, cfg.Billing)
	billingService := services.NewBillingService(orderRepo, billRepo, paymentRepo, db, cfg.Billing)
	paymentService := services.NewPaymentService(billRepo, paymentRepo, orderRepo, db, cfg.Billing, push)
	callbackService := services.NewCallbackService(billRepo, paymentRepo, orderRepo, db, cfg.Billing)

	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(authService)
	orderHandler := handlers.NewOrderHandler(orderService)
	checkoutHandler := handlers.NewCheckoutHandler(billingService)
	billHandler := handlers.NewBillHandler(billingService, paymentService)
	callbackHandler := handlers.NewCallbackHandler(callbackService, cfg.Provider.CallbackSecret)

	apiV1 := engine.Group("/api/v1")

	SetupAuthRoutes(apiV1, authHandler)

	// Provider callbacks authenticate by HMAC signature, not JWT; rate limit
	// them since the endpoint is reachable without credentials.
	callbackLimiter := middleware.NewIPRateLimiter(cfg.Callback.RequestsPerSecond, cfg.Callback.Burst)
	SetupCallbackRoutes(apiV1, callbackHandler, callbackLimiter)

	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware())
	{
		SetupOrderRoutes(authenticated, orderHandler)
		SetupCheckoutRoutes(authenticated, checkoutHandler)
		SetupBillRoutes(authenticated, billHandler)
		SetupStaffRoutes(authenticated, authHandler)
	}

	return authService, paymentService
}
