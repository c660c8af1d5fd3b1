package router

import (
	"hotel_pms_backend/internal/handlers"
	"hotel_pms_backend/internal/middleware"
	"hotel_pms_backend/internal/policy"

	"github.com/gin-gonic/gin"
)

// SetupAuthRoutes sets up the public authentication routes and the
// authenticated profile route.
func SetupAuthRoutes(apiGroup *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	authRoutes := apiGroup.Group("/auth")
	{
		authRoutes.POST("/login", authHandler.Login)

		authRequiredRoutes := authRoutes.Group("")
		authRequiredRoutes.Use(middleware.AuthMiddleware())
		{
			authRequiredRoutes.GET("/me", authHandler.GetMe)
		}
	}
}

// SetupOrderRoutes sets up the order routes.
func SetupOrderRoutes(authenticatedGroup *gin.RouterGroup, orderHandler *handlers.OrderHandler) {
	orderRoutes := authenticatedGroup.Group("/orders")
	{
		orderRoutes.POST("", middleware.RequireCapability(policy.CapOrdersWrite), orderHandler.CreateOrder)
		orderRoutes.GET("", middleware.RequireCapability(policy.CapOrdersRead), orderHandler.GetOrders)
		orderRoutes.GET("/:id", middleware.RequireCapability(policy.CapOrdersRead), orderHandler.GetOrderByID)
		orderRoutes.PATCH("/:id/status", middleware.RequireCapability(policy.CapOrdersWrite), orderHandler.UpdateOrderStatus)
	}
}

// SetupCheckoutRoutes sets up the checkout routes.
func SetupCheckoutRoutes(authenticatedGroup *gin.RouterGroup, checkoutHandler *handlers.CheckoutHandler) {
	checkoutRoutes := authenticatedGroup.Group("/checkout")
	{
		checkoutRoutes.GET("/unpaid", middleware.RequireCapability(policy.CapBillingRead), checkoutHandler.GetUnpaidOrders)
		checkoutRoutes.POST("/bills", middleware.RequireCapability(policy.CapBillingSettle), checkoutHandler.CreateBill)
	}
}

// SetupBillRoutes sets up the bill and payment routes.
func SetupBillRoutes(authenticatedGroup *gin.RouterGroup, billHandler *handlers.BillHandler) {
	billRoutes := authenticatedGroup.Group("/bills")
	{
		billRoutes.GET("/:id", middleware.RequireCapability(policy.CapBillingRead), billHandler.GetBillByID)
		billRoutes.POST("/:id/payments", middleware.RequireCapability(policy.CapBillingSettle), billHandler.RecordPayment)
	}
}

// SetupStaffRoutes sets up the staff management routes. Admin only.
func SetupStaffRoutes(authenticatedGroup *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	staffRoutes := authenticatedGroup.Group("/staff")
	staffRoutes.Use(middleware.RequireCapability(policy.CapStaffManage))
	{
		staffRoutes.POST("", authHandler.RegisterStaff)
	}
}

// SetupCallbackRoutes sets up the unauthenticated provider callback routes.
func SetupCallbackRoutes(apiGroup *gin.RouterGroup, callbackHandler *handlers.CallbackHandler, limiter *middleware.IPRateLimiter) {
	callbackRoutes := apiGroup.Group("/payments/callback")
	callbackRoutes.Use(limiter.Middleware())
	{
		callbackRoutes.POST("/mobile-money", callbackHandler.MobileMoneyCallback)
	}
}
