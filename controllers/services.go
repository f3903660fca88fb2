package controllers

import (
	"context"

	"agent-portal/models"
	"agent-portal/services"
)

// AuthService is the account surface used by AuthController and AdminController.
type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
	ListUsers(ctx context.Context, offset, limit int) ([]models.User, int64, error)
	SetRole(ctx context.Context, userID, role string) (*models.User, error)
}

type AgentService interface {
	Create(ctx context.Context, ownerID string, req models.CreateAgentRequest) (*models.Agent, error)
	Get(ctx context.Context, actor services.Actor, id string) (*models.Agent, error)
	List(ctx context.Context, actor services.Actor) ([]models.Agent, error)
	ListAll(ctx context.Context, status, plan string) ([]models.Agent, error)
	Update(ctx context.Context, actor services.Actor, id string, req models.UpdateAgentRequest) (*models.Agent, error)
	Pause(ctx context.Context, actor services.Actor, id string) (*models.Agent, error)
	Resume(ctx context.Context, actor services.Actor, id string) (*models.Agent, error)
	Cancel(ctx context.Context, actor services.Actor, id string) (*models.Agent, error)
	SetStatus(ctx context.Context, id, status string) (*models.Agent, error)
	Provision(ctx context.Context, id string) (*models.Agent, error)
	ApplyCallback(ctx context.Context, cb models.N8NCallback) (*models.Agent, error)
}

type LeadService interface {
	Capture(ctx context.Context, req models.LeadRequest) (*models.Lead, error)
	HandleChatwootEvent(ctx context.Context, hook models.ChatwootWebhook) (*models.Lead, error)
	Get(ctx context.Context, actor services.Actor, id string) (*models.Lead, error)
	ListForAgent(ctx context.Context, actor services.Actor, agentID string, offset, limit int) ([]models.Lead, int64, error)
	ListAll(ctx context.Context, status string, offset, limit int) ([]models.Lead, int64, error)
	UpdateStatus(ctx context.Context, actor services.Actor, id, status string) (*models.Lead, error)
}

type BillingService interface {
	CreatePaymentIntent(ctx context.Context, userID, agentID string) (*services.CheckoutResult, error)
	CreateSubscription(ctx context.Context, userID, agentID string) (*services.SubscriptionCheckout, error)
	CancelSubscription(ctx context.Context, actor services.Actor, subscriptionID string) (*models.Subscription, error)
	ListSubscriptions(ctx context.Context, userID string) ([]models.Subscription, error)
	ListPayments(ctx context.Context, userID string) ([]models.Payment, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type DashboardService interface {
	ClientSummary(ctx context.Context, userID string) (*models.ClientSummary, error)
	AdminStats(ctx context.Context) (*models.AdminStats, error)
}

var (
	_ AuthService      = (*services.AuthService)(nil)
	_ AgentService     = (*services.AgentService)(nil)
	_ LeadService      = (*services.LeadService)(nil)
	_ BillingService   = (*services.BillingService)(nil)
	_ DashboardService = (*services.DashboardService)(nil)
)
