package server

import (
	"github.com/labstack/echo/v4"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/auth"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/handlers"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/models"
)

type routeHandlers struct {
	health        *handlers.HealthHandler
	auth          *handlers.AuthHandler
	registrations *handlers.RegistrationHandler
	bills         *handlers.BillHandler
	chat          *handlers.ChatHandler
	dashboard     *handlers.DashboardHandler
	beneficiaries *handlers.BeneficiaryHandler
	admin         *handlers.AdminHandler
	flows         *handlers.FlowHandler
	notifications *handlers.NotificationHandler
}

func registerRoutes(
	e *echo.Echo,
	h routeHandlers,
	authMiddleware echo.MiddlewareFunc,
	authRateLimiter echo.MiddlewareFunc,
	aiRateLimiter echo.MiddlewareFunc,
) {
	e.GET("/health", h.health.Health)

	api := e.Group("/api/v1")
	authGroup := api.Group("/auth", authRateLimiter)

	authGroup.POST("/login", h.auth.Login)
	authGroup.GET("/demo-accounts", h.auth.DemoAccounts)
	authGroup.POST("/logout", h.auth.Logout, authMiddleware)
	authGroup.GET("/me", h.auth.Me, authMiddleware)

	registrations := api.Group("/registrations", authRateLimiter)
	registrations.POST("", h.registrations.Create)
	registrations.GET("/:id", h.registrations.Get)
	registrations.POST("/:id/bill", h.registrations.UploadBill)
	registrations.PUT("/:id/bill/category", h.registrations.SetBillCategory)
	registrations.POST("/:id/bill/parse", h.registrations.ParseBill, aiRateLimiter)
	registrations.POST("/:id/bill/confirm", h.registrations.ConfirmBill)
	registrations.DELETE("/:id/bill", h.registrations.CancelBill)
	registrations.POST("/:id/submit", h.registrations.Submit, aiRateLimiter)

	api.GET("/dashboard", h.dashboard.Get, authMiddleware)

	bills := api.Group("/bills", authMiddleware, auth.RequireRole(models.RoleBeneficiary))
	bills.GET("", h.bills.Get)
	bills.POST("", h.bills.Upload)
	bills.PUT("/consent", h.bills.Consent)
	bills.POST("/parse", h.bills.Parse, aiRateLimiter)
	bills.POST("/confirm", h.bills.Confirm)
	bills.DELETE("", h.bills.Cancel)

	chat := api.Group("/chat", authMiddleware)
	chat.GET("", h.chat.Transcript)
	chat.POST("", h.chat.Ask, aiRateLimiter)

	beneficiaries := api.Group("/beneficiaries", authMiddleware, auth.RequireRole(models.RoleOfficer, models.RoleAdmin))
	beneficiaries.GET("", h.beneficiaries.List)
	beneficiaries.PATCH("/:id/stage", h.beneficiaries.UpdateStage)

	admin := api.Group("/admin", authMiddleware, auth.RequireRole(models.RoleAdmin))
	admin.GET("/portfolio", h.admin.PortfolioStats)
	admin.GET("/ai-requests", h.admin.ListAIRequests)
	admin.GET("/usage", h.admin.Usage)

	flowGroup := api.Group("/flows", authMiddleware, aiRateLimiter)
	flowGroup.POST("/credit-score", h.flows.CreditScore)
	flowGroup.POST("/bill-parse", h.flows.BillParse)
	flowGroup.POST("/literacy", h.flows.Literacy)

	notifications := api.Group("/notifications", authMiddleware)
	notifications.GET("/stream", h.notifications.Stream)
}
