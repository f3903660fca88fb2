package routes

import (
	"agent-portal/controllers"
	"agent-portal/middleware"
	"agent-portal/models"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health    *controllers.HealthController
	Auth      *controllers.AuthController
	Agents    *controllers.AgentController
	Leads     *controllers.LeadController
	Billing   *controllers.BillingController
	Webhooks  *controllers.WebhookController
	Dashboard *controllers.DashboardController
	Admin     *controllers.AdminController
}

// RegisterRoutes mounts the whole API. strict throttles credential and public form endpoints.
func RegisterRoutes(r *gin.Engine, h Handlers, tokens middleware.TokenValidator, strict *middleware.RateLimiter) {
	r.GET("/health", h.Health.Health)

	api := r.Group("/api")
	api.GET("/plans", h.Health.Plans)

	auth := api.Group("/auth")
	auth.Use(middleware.RateLimitMiddleware(strict))
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	api.POST("/leads", middleware.RateLimitMiddleware(strict), h.Leads.Capture)

	// Webhooks authenticate with their own provider secrets.
	webhooks := api.Group("/webhooks")
	webhooks.POST("/stripe", h.Billing.StripeWebhook)
	webhooks.POST("/n8n", h.Webhooks.N8NCallback)
	webhooks.POST("/chatwoot", h.Webhooks.Chatwoot)

	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(tokens))
	{
		authed.GET("/me", h.Auth.Me)
		authed.PUT("/me", h.Auth.UpdateProfile)
		authed.PUT("/me/password", h.Auth.ChangePassword)

		authed.GET("/agents", h.Agents.List)
		authed.POST("/agents", h.Agents.Create)
		authed.GET("/agents/:id", h.Agents.Get)
		authed.PUT("/agents/:id", h.Agents.Update)
		authed.DELETE("/agents/:id", h.Agents.Cancel)
		authed.POST("/agents/:id/pause", h.Agents.Pause)
		authed.POST("/agents/:id/resume", h.Agents.Resume)
		authed.GET("/agents/:id/leads", h.Agents.Leads)

		authed.GET("/leads/:id", h.Leads.Get)
		authed.PATCH("/leads/:id/status", h.Leads.UpdateStatus)

		authed.POST("/billing/payment-intents", h.Billing.CreatePaymentIntent)
		authed.POST("/billing/subscriptions", h.Billing.CreateSubscription)
		authed.GET("/billing/subscriptions", h.Billing.ListSubscriptions)
		authed.DELETE("/billing/subscriptions/:id", h.Billing.CancelSubscription)
		authed.GET("/billing/payments", h.Billing.ListPayments)

		authed.GET("/dashboard", h.Dashboard.Summary)
	}

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/users", h.Admin.ListUsers)
		admin.PATCH("/users/:id/role", h.Admin.SetUserRole)
		admin.GET("/agents", h.Admin.ListAgents)
		admin.PATCH("/agents/:id/status", h.Admin.SetAgentStatus)
		admin.POST("/agents/:id/provision", h.Admin.ProvisionAgent)
		admin.GET("/leads", h.Admin.ListLeads)
		admin.GET("/stats", h.Admin.Stats)
	}
}
