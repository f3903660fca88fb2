package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"agent-portal/middleware"
	"agent-portal/models"
	"agent-portal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

// --- Mock Services ---

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, req models.RegisterRequest) (*services.AuthResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AuthResult), args.Error(1)
}
func (m *MockAuthService) Login(ctx context.Context, email, password string) (*services.AuthResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AuthResult), args.Error(1)
}
func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (*services.AuthResult, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AuthResult), args.Error(1)
}
func (m *MockAuthService) Logout(ctx context.Context, refreshToken string) error {
	return m.Called(ctx, refreshToken).Error(0)
}
func (m *MockAuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockAuthService) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockAuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	return m.Called(ctx, userID, current, next).Error(0)
}
func (m *MockAuthService) ListUsers(ctx context.Context, offset, limit int) ([]models.User, int64, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]models.User), args.Get(1).(int64), args.Error(2)
}
func (m *MockAuthService) SetRole(ctx context.Context, userID, role string) (*models.User, error) {
	args := m.Called(ctx, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockAgentService struct {
	mock.Mock
}

func (m *MockAgentService) agent(args mock.Arguments) (*models.Agent, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Agent), args.Error(1)
}
func (m *MockAgentService) Create(ctx context.Context, ownerID string, req models.CreateAgentRequest) (*models.Agent, error) {
	return m.agent(m.Called(ctx, ownerID, req))
}
func (m *MockAgentService) Get(ctx context.Context, actor services.Actor, id string) (*models.Agent, error) {
	return m.agent(m.Called(ctx, actor, id))
}
func (m *MockAgentService) List(ctx context.Context, actor services.Actor) ([]models.Agent, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).([]models.Agent), args.Error(1)
}
func (m *MockAgentService) ListAll(ctx context.Context, status, plan string) ([]models.Agent, error) {
	args := m.Called(ctx, status, plan)
	return args.Get(0).([]models.Agent), args.Error(1)
}
func (m *MockAgentService) Update(ctx context.Context, actor services.Actor, id string, req models.UpdateAgentRequest) (*models.Agent, error) {
	return m.agent(m.Called(ctx, actor, id, req))
}
func (m *MockAgentService) Pause(ctx context.Context, actor services.Actor, id string) (*models.Agent, error) {
	return m.agent(m.Called(ctx, actor, id))
}
func (m *MockAgentService) Resume(ctx context.Context, actor services.Actor, id string) (*models.Agent, error) {
	return m.agent(m.Called(ctx, actor, id))
}
func (m *MockAgentService) Cancel(ctx context.Context, actor services.Actor, id string) (*models.Agent, error) {
	return m.agent(m.Called(ctx, actor, id))
}
func (m *MockAgentService) SetStatus(ctx context.Context, id, status string) (*models.Agent, error) {
	return m.agent(m.Called(ctx, id, status))
}
func (m *MockAgentService) Provision(ctx context.Context, id string) (*models.Agent, error) {
	return m.agent(m.Called(ctx, id))
}
func (m *MockAgentService) ApplyCallback(ctx context.Context, cb models.N8NCallback) (*models.Agent, error) {
	return m.agent(m.Called(ctx, cb))
}

type MockLeadService struct {
	mock.Mock
}

func (m *MockLeadService) lead(args mock.Arguments) (*models.Lead, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}
func (m *MockLeadService) Capture(ctx context.Context, req models.LeadRequest) (*models.Lead, error) {
	return m.lead(m.Called(ctx, req))
}
func (m *MockLeadService) HandleChatwootEvent(ctx context.Context, hook models.ChatwootWebhook) (*models.Lead, error) {
	return m.lead(m.Called(ctx, hook))
}
func (m *MockLeadService) Get(ctx context.Context, actor services.Actor, id string) (*models.Lead, error) {
	return m.lead(m.Called(ctx, actor, id))
}
func (m *MockLeadService) ListForAgent(ctx context.Context, actor services.Actor, agentID string, offset, limit int) ([]models.Lead, int64, error) {
	args := m.Called(ctx, actor, agentID, offset, limit)
	return args.Get(0).([]models.Lead), args.Get(1).(int64), args.Error(2)
}
func (m *MockLeadService) ListAll(ctx context.Context, status string, offset, limit int) ([]models.Lead, int64, error) {
	args := m.Called(ctx, status, offset, limit)
	return args.Get(0).([]models.Lead), args.Get(1).(int64), args.Error(2)
}
func (m *MockLeadService) UpdateStatus(ctx context.Context, actor services.Actor, id, status string) (*models.Lead, error) {
	return m.lead(m.Called(ctx, actor, id, status))
}

type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) CreatePaymentIntent(ctx context.Context, userID, agentID string) (*services.CheckoutResult, error) {
	args := m.Called(ctx, userID, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CheckoutResult), args.Error(1)
}
func (m *MockBillingService) CreateSubscription(ctx context.Context, userID, agentID string) (*services.SubscriptionCheckout, error) {
	args := m.Called(ctx, userID, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SubscriptionCheckout), args.Error(1)
}
func (m *MockBillingService) CancelSubscription(ctx context.Context, actor services.Actor, subscriptionID string) (*models.Subscription, error) {
	args := m.Called(ctx, actor, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}
func (m *MockBillingService) ListSubscriptions(ctx context.Context, userID string) ([]models.Subscription, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Subscription), args.Error(1)
}
func (m *MockBillingService) ListPayments(ctx context.Context, userID string) ([]models.Payment, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Payment), args.Error(1)
}
func (m *MockBillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	return m.Called(ctx, payload, signature).Error(0)
}

type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) ClientSummary(ctx context.Context, userID string) (*models.ClientSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ClientSummary), args.Error(1)
}
func (m *MockDashboardService) AdminStats(ctx context.Context) (*models.AdminStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AdminStats), args.Error(1)
}

// --- helpers ---

var (
	clientActor = services.Actor{UserID: "user-1", Role: models.RoleClient}
	adminActor  = services.Actor{UserID: "admin-1", Role: models.RoleAdmin}
)

// asActor stands in for AuthMiddleware.
func asActor(actor services.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, actor.UserID)
		c.Set(middleware.ContextRole, actor.Role)
		c.Next()
	}
}

func newTestRouter(actor *services.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if actor != nil {
		r.Use(asActor(*actor))
	}
	return r
}

func perform(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}
