package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"agent-portal/database"
	"agent-portal/integrations"
	"agent-portal/models"
	"agent-portal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// ---- fakes ----

type fakeSender struct {
	mu   sync.Mutex
	sent []integrations.Email
	err  error
}

func (f *fakeSender) Send(_ context.Context, e integrations.Email) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, e)
	return "msg-1", nil
}

func (f *fakeSender) subjects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, e := range f.sent {
		out = append(out, e.Subject)
	}
	return out
}

type workflowCall struct {
	workflow string
	payload  any
}

type fakeWorkflows struct {
	mu    sync.Mutex
	calls []workflowCall
	err   error
}

func (f *fakeWorkflows) TriggerWorkflow(_ context.Context, workflow string, payload any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, workflowCall{workflow: workflow, payload: payload})
	if f.err != nil {
		return "", f.err
	}
	return "exec-1", nil
}

func (f *fakeWorkflows) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.workflow)
	}
	return out
}

type fakeCRM struct {
	contactErr error
	contacts   []integrations.ContactInput
	inboxes    []string
}

func (f *fakeCRM) CreateContact(_ context.Context, in integrations.ContactInput) (string, string, error) {
	if f.contactErr != nil {
		return "", "", f.contactErr
	}
	f.contacts = append(f.contacts, in)
	return "101", "src-1", nil
}

func (f *fakeCRM) CreateConversation(_ context.Context, _, _, inboxID, _ string) (string, error) {
	f.inboxes = append(f.inboxes, inboxID)
	return "202", nil
}

func (f *fakeCRM) SendMessage(_ context.Context, _, _ string) error { return nil }

type fakeMessenger struct {
	subscribers []string
	texts       []string
}

func (f *fakeMessenger) CreateSubscriber(_ context.Context, _, phone, _ string) (string, error) {
	f.subscribers = append(f.subscribers, phone)
	return "sub-1", nil
}

func (f *fakeMessenger) SendText(_ context.Context, _, _, text string) error {
	f.texts = append(f.texts, text)
	return nil
}

type fakeSNS struct {
	mu       sync.Mutex
	messages [][]byte
}

func (f *fakeSNS) Publish(_ context.Context, _ string, message []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

// flakyAgents fails the next failUpdates calls to Update.
type flakyAgents struct {
	repository.AgentRepository
	failUpdates int
}

func (f *flakyAgents) Update(ctx context.Context, agent *models.Agent) error {
	if f.failUpdates > 0 {
		f.failUpdates--
		return errors.New("redis unavailable")
	}
	return f.AgentRepository.Update(ctx, agent)
}

// flakyLeads fails the next failCreates calls to Create.
type flakyLeads struct {
	repository.LeadRepository
	failCreates int
}

func (f *flakyLeads) Create(ctx context.Context, lead *models.Lead) error {
	if f.failCreates > 0 {
		f.failCreates--
		return errors.New("redis unavailable")
	}
	return f.LeadRepository.Create(ctx, lead)
}

// ---- mock gateway ----

type MockGateway struct{ mock.Mock }

func (m *MockGateway) CreateCustomer(ctx context.Context, email, name, userID string) (string, error) {
	args := m.Called(ctx, email, name, userID)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) CreatePaymentIntent(ctx context.Context, amount int64, currency, customerID string, metadata map[string]string) (*PaymentIntentResult, error) {
	args := m.Called(ctx, amount, currency, customerID, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PaymentIntentResult), args.Error(1)
}

func (m *MockGateway) CreateSubscription(ctx context.Context, customerID, priceID string, metadata map[string]string) (*SubscriptionResult, error) {
	args := m.Called(ctx, customerID, priceID, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SubscriptionResult), args.Error(1)
}

func (m *MockGateway) CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*SubscriptionResult, error) {
	args := m.Called(ctx, subscriptionID, atPeriodEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SubscriptionResult), args.Error(1)
}

func (m *MockGateway) ParseWebhook(payload []byte, signature string) (stripe.Event, error) {
	args := m.Called(payload, signature)
	return args.Get(0).(stripe.Event), args.Error(1)
}

// ---- environment ----

type testEnv struct {
	store     *database.Store
	users     repository.UserRepository
	agents    repository.AgentRepository
	leads     repository.LeadRepository
	payments  repository.PaymentRepository
	subs      repository.SubscriptionRepository
	tokens    repository.TokenRepository
	ledger    repository.EventLedger
	sender    *fakeSender
	workflows *fakeWorkflows
	mailer    *Mailer
	events    *EventPublisher
	logger    *zap.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := database.NewStore(client)

	logger := zap.NewNop()
	sender := &fakeSender{}
	mailer, err := NewMailer(sender, "https://app.example.com", "admin@example.com", logger)
	require.NoError(t, err)
	mailer.backoff = 0

	return &testEnv{
		store:     store,
		users:     repository.NewUserRepository(store),
		agents:    repository.NewAgentRepository(store),
		leads:     repository.NewLeadRepository(store),
		payments:  repository.NewPaymentRepository(store),
		subs:      repository.NewSubscriptionRepository(store),
		tokens:    repository.NewTokenRepository(store),
		ledger:    repository.NewEventLedger(store),
		sender:    sender,
		workflows: &fakeWorkflows{},
		mailer:    mailer,
		events:    NewEventPublisher(nil, "", logger),
		logger:    logger,
	}
}

func (e *testEnv) agentService(canceler SubscriptionCanceler) *AgentService {
	return NewAgentService(e.agents, e.subs, e.users, e.workflows, canceler, e.mailer, e.events, e.logger)
}

func (e *testEnv) seedUser(t *testing.T, id, email string) *models.User {
	t.Helper()
	now := time.Now().UTC()
	user := &models.User{ID: id, Name: "User " + id, Email: email, Role: models.RoleClient, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}

func (e *testEnv) seedAgent(t *testing.T, id, ownerID, status string) *models.Agent {
	t.Helper()
	now := time.Now().UTC()
	agent := &models.Agent{
		ID:           id,
		OwnerID:      ownerID,
		Name:         "Agent " + id,
		Plan:         models.PlanAgenda,
		Status:       status,
		Channel:      models.ChannelWhatsApp,
		BusinessName: "Clínica Sorriso",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, e.agents.Create(context.Background(), agent))
	return agent
}
