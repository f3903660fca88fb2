package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"agent-portal/apperrors"
	"agent-portal/integrations"
	"agent-portal/models"
	"agent-portal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubscriptionCanceler is the slice of the payment gateway agent cancellation needs.
type SubscriptionCanceler interface {
	CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*SubscriptionResult, error)
}

type AgentService struct {
	agents    repository.AgentRepository
	subs      repository.SubscriptionRepository
	users     repository.UserRepository
	workflows integrations.WorkflowTrigger
	canceler  SubscriptionCanceler
	mailer    *Mailer
	events    *EventPublisher
	logger    *zap.Logger

	// autoActivate completes provisioning without waiting for an N8N callback.
	autoActivate bool
}

func NewAgentService(
	agents repository.AgentRepository,
	subs repository.SubscriptionRepository,
	users repository.UserRepository,
	workflows integrations.WorkflowTrigger,
	canceler SubscriptionCanceler,
	mailer *Mailer,
	events *EventPublisher,
	logger *zap.Logger,
) *AgentService {
	return &AgentService{
		agents:    agents,
		subs:      subs,
		users:     users,
		workflows: workflows,
		canceler:  canceler,
		mailer:    mailer,
		events:    events,
		logger:    logger,
	}
}

// SetAutoActivate is used when no N8N instance is configured to call back.
func (s *AgentService) SetAutoActivate(v bool) {
	s.autoActivate = v
}

func (s *AgentService) Create(ctx context.Context, ownerID string, req models.CreateAgentRequest) (*models.Agent, error) {
	plan, ok := models.ParsePlan(req.Plan)
	if !ok {
		return nil, apperrors.BadRequest("unknown plan")
	}
	channel := strings.ToLower(strings.TrimSpace(req.Channel))
	if !models.ValidChannel(channel) {
		return nil, apperrors.BadRequest("unsupported channel")
	}
	name := strings.TrimSpace(req.Name)
	business := strings.TrimSpace(req.BusinessName)
	if name == "" || business == "" {
		return nil, apperrors.BadRequest("name and business_name are required")
	}

	now := time.Now().UTC()
	agent := &models.Agent{
		ID:                  uuid.NewString(),
		OwnerID:             ownerID,
		Name:                name,
		Plan:                plan.ID,
		Status:              models.AgentPendingPayment,
		Channel:             channel,
		BusinessName:        business,
		BusinessDescription: strings.TrimSpace(req.BusinessDescription),
		Greeting:            strings.TrimSpace(req.Greeting),
		WorkingHours:        strings.TrimSpace(req.WorkingHours),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	s.events.Publish(ctx, models.Event{Type: models.EventAgentCreated, UserID: ownerID, AgentID: agent.ID, Plan: plan.ID})
	s.logger.Info("Agent created", zap.String("agent_id", agent.ID), zap.String("plan", plan.ID))
	return agent, nil
}

// Get returns the agent when the actor may see it. Foreign agents look missing.
func (s *AgentService) Get(ctx context.Context, actor Actor, id string) (*models.Agent, error) {
	agent, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(agent.OwnerID) {
		return nil, apperrors.NotFound("agent not found")
	}
	return agent, nil
}

func (s *AgentService) List(ctx context.Context, actor Actor) ([]models.Agent, error) {
	agents, err := s.agents.ListByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	return agents, nil
}

// ListAll returns every agent, optionally filtered by status and plan.
func (s *AgentService) ListAll(ctx context.Context, status, plan string) ([]models.Agent, error) {
	agents, err := s.agents.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	if plan != "" {
		if p, ok := models.ParsePlan(plan); ok {
			plan = p.ID
		}
	}

	filtered := agents[:0]
	for _, a := range agents {
		if status != "" && a.Status != status {
			continue
		}
		if plan != "" && a.Plan != plan {
			continue
		}
		filtered = append(filtered, a)
	}
	return filtered, nil
}

func (s *AgentService) Update(ctx context.Context, actor Actor, id string, req models.UpdateAgentRequest) (*models.Agent, error) {
	agent, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if agent.Status == models.AgentCancelled {
		return nil, apperrors.Conflict("cancelled agents cannot be edited")
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperrors.BadRequest("name cannot be empty")
		}
		agent.Name = name
	}
	if req.BusinessName != nil {
		business := strings.TrimSpace(*req.BusinessName)
		if business == "" {
			return nil, apperrors.BadRequest("business_name cannot be empty")
		}
		agent.BusinessName = business
	}
	if req.BusinessDescription != nil {
		agent.BusinessDescription = strings.TrimSpace(*req.BusinessDescription)
	}
	if req.Greeting != nil {
		agent.Greeting = strings.TrimSpace(*req.Greeting)
	}
	if req.WorkingHours != nil {
		agent.WorkingHours = strings.TrimSpace(*req.WorkingHours)
	}
	agent.UpdatedAt = time.Now().UTC()

	if err := s.agents.Update(ctx, agent); err != nil {
		return nil, fmt.Errorf("failed to update agent: %w", err)
	}

	if agent.Status == models.AgentActive {
		s.trigger(ctx, integrations.WorkflowAgentUpdate, agent)
	}
	return agent, nil
}

func (s *AgentService) Pause(ctx context.Context, actor Actor, id string) (*models.Agent, error) {
	agent, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if agent.Status != models.AgentActive {
		return nil, apperrors.Conflict("only active agents can be paused")
	}
	if err := s.transition(ctx, agent, models.AgentPaused); err != nil {
		return nil, err
	}
	s.trigger(ctx, integrations.WorkflowAgentPause, agent)
	return agent, nil
}

// Resume re-runs provisioning for a paused agent.
func (s *AgentService) Resume(ctx context.Context, actor Actor, id string) (*models.Agent, error) {
	agent, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if agent.Status != models.AgentPaused {
		return nil, apperrors.Conflict("only paused agents can be resumed")
	}
	return s.provision(ctx, agent)
}

// Cancel stops the agent for good.
func (s *AgentService) Cancel(ctx context.Context, actor Actor, id string) (*models.Agent, error) {
	agent, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if agent.Status == models.AgentCancelled {
		return agent, nil
	}
	return s.cancel(ctx, agent)
}

// cancel moves the agent to cancelled. A live subscription is cancelled at
// period end first so billing stops with the agent.
func (s *AgentService) cancel(ctx context.Context, agent *models.Agent) (*models.Agent, error) {
	if !models.CanTransition(agent.Status, models.AgentCancelled) {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot move agent from %s to %s", agent.Status, models.AgentCancelled))
	}

	sub, err := s.subs.FindByAgent(ctx, agent.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	if sub != nil && sub.Live() && !sub.CancelAtPeriodEnd {
		if s.canceler == nil {
			return nil, apperrors.Unavailable("billing is not configured", nil)
		}
		if _, err := s.canceler.CancelSubscription(ctx, sub.ID, true); err != nil {
			return nil, apperrors.New(http.StatusBadGateway, "failed to cancel subscription", err)
		}
		sub.CancelAtPeriodEnd = true
		sub.UpdatedAt = time.Now().UTC()
		if err := s.subs.Save(ctx, sub); err != nil {
			return nil, fmt.Errorf("failed to save subscription: %w", err)
		}
	}

	if err := s.transition(ctx, agent, models.AgentCancelled); err != nil {
		return nil, err
	}
	s.trigger(ctx, integrations.WorkflowAgentCancel, agent)
	return agent, nil
}

// SetStatus is the admin override. It still follows the lifecycle graph.
func (s *AgentService) SetStatus(ctx context.Context, id, status string) (*models.Agent, error) {
	if !models.ValidAgentStatus(status) {
		return nil, apperrors.BadRequest("invalid status")
	}
	agent, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	switch status {
	case models.AgentProvisioning:
		return s.provision(ctx, agent)
	case models.AgentCancelled:
		if agent.Status == models.AgentCancelled {
			return agent, nil
		}
		return s.cancel(ctx, agent)
	}
	if err := s.transition(ctx, agent, status); err != nil {
		return nil, err
	}
	return agent, nil
}

// Provision (re)starts the N8N provisioning workflow for an agent.
func (s *AgentService) Provision(ctx context.Context, id string) (*models.Agent, error) {
	agent, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.provision(ctx, agent)
}

// StartProvisioning is called by billing once the agent is paid for. Agents already
// past payment are left alone so duplicate webhooks do not re-run the workflow.
func (s *AgentService) StartProvisioning(ctx context.Context, id string) (*models.Agent, error) {
	agent, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if agent.Status != models.AgentPendingPayment && agent.Status != models.AgentFailed {
		s.logger.Info("Agent already provisioned, skipping", zap.String("agent_id", id), zap.String("status", agent.Status))
		return agent, nil
	}
	return s.provision(ctx, agent)
}

// MarkCancelled is used when the subscription disappears on the Stripe side.
func (s *AgentService) MarkCancelled(ctx context.Context, id string) error {
	agent, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if agent.Status == models.AgentCancelled {
		return nil
	}
	if err := s.transition(ctx, agent, models.AgentCancelled); err != nil {
		return err
	}
	s.trigger(ctx, integrations.WorkflowAgentCancel, agent)
	return nil
}

// ApplyCallback records the result of a provisioning workflow run.
func (s *AgentService) ApplyCallback(ctx context.Context, cb models.N8NCallback) (*models.Agent, error) {
	if cb.Status != models.AgentActive && cb.Status != models.AgentFailed {
		return nil, apperrors.BadRequest("status must be active or failed")
	}
	agent, err := s.find(ctx, cb.AgentID)
	if err != nil {
		return nil, err
	}

	if cb.ChatwootInboxID != "" {
		agent.ChatwootInboxID = cb.ChatwootInboxID
	}
	if cb.BotSailorBotID != "" {
		agent.BotSailorBotID = cb.BotSailorBotID
	}
	if cb.ExecutionID != "" {
		agent.N8NExecutionID = cb.ExecutionID
	}
	if cb.Status == models.AgentFailed {
		agent.LastError = cb.Error
	} else {
		agent.LastError = ""
	}

	if agent.Status == cb.Status {
		agent.UpdatedAt = time.Now().UTC()
		if err := s.agents.Update(ctx, agent); err != nil {
			return nil, fmt.Errorf("failed to update agent: %w", err)
		}
		return agent, nil
	}
	if err := s.transition(ctx, agent, cb.Status); err != nil {
		return nil, err
	}
	if cb.Status == models.AgentActive {
		s.notifyActive(ctx, agent)
	}
	return agent, nil
}

func (s *AgentService) provision(ctx context.Context, agent *models.Agent) (*models.Agent, error) {
	if agent.Status != models.AgentProvisioning {
		agent.LastError = ""
		if err := s.transition(ctx, agent, models.AgentProvisioning); err != nil {
			return nil, err
		}
	}

	payload := map[string]any{"agent": agent}
	if owner, err := s.users.FindByID(ctx, agent.OwnerID); err == nil {
		public := owner.Public()
		payload["owner"] = public
	}

	executionID, err := s.workflows.TriggerWorkflow(ctx, integrations.WorkflowAgentProvision, payload)
	if err != nil {
		s.logger.Error("Provisioning workflow failed to start", zap.String("agent_id", agent.ID), zap.Error(err))
		agent.LastError = err.Error()
		if terr := s.transition(ctx, agent, models.AgentFailed); terr != nil {
			return nil, terr
		}
		return agent, nil
	}

	// The workflow may have called back before the trigger returned, so only the
	// execution id is merged into the stored agent.
	current, err := s.find(ctx, agent.ID)
	if err != nil {
		return nil, err
	}
	current.N8NExecutionID = executionID
	current.UpdatedAt = time.Now().UTC()
	if err := s.agents.Update(ctx, current); err != nil {
		return nil, fmt.Errorf("failed to update agent: %w", err)
	}

	if s.autoActivate && current.Status == models.AgentProvisioning {
		if err := s.transition(ctx, current, models.AgentActive); err != nil {
			return nil, err
		}
		s.notifyActive(ctx, current)
	}
	return current, nil
}

func (s *AgentService) transition(ctx context.Context, agent *models.Agent, to string) error {
	from := agent.Status
	if from == to {
		return nil
	}
	if !models.CanTransition(from, to) {
		return apperrors.Conflict(fmt.Sprintf("cannot move agent from %s to %s", from, to))
	}

	agent.Status = to
	agent.UpdatedAt = time.Now().UTC()
	if err := s.agents.Update(ctx, agent); err != nil {
		agent.Status = from
		return fmt.Errorf("failed to update agent: %w", err)
	}

	s.events.Publish(ctx, models.Event{
		Type:    models.EventAgentStatusChanged,
		UserID:  agent.OwnerID,
		AgentID: agent.ID,
		Plan:    agent.Plan,
		Data:    map[string]string{"from": from, "to": to},
	})
	s.logger.Info("Agent status changed", zap.String("agent_id", agent.ID), zap.String("from", from), zap.String("to", to))
	return nil
}

func (s *AgentService) trigger(ctx context.Context, workflow string, agent *models.Agent) {
	if _, err := s.workflows.TriggerWorkflow(ctx, workflow, map[string]any{"agent": agent}); err != nil {
		s.logger.Warn("Workflow trigger failed", zap.String("workflow", workflow), zap.String("agent_id", agent.ID), zap.Error(err))
	}
}

func (s *AgentService) notifyActive(ctx context.Context, agent *models.Agent) {
	owner, err := s.users.FindByID(ctx, agent.OwnerID)
	if err != nil {
		s.logger.Warn("Agent owner not found for activation email", zap.String("agent_id", agent.ID), zap.Error(err))
		return
	}
	if err := s.mailer.SendAgentActive(ctx, owner, agent); err != nil {
		s.logger.Warn("Failed to send agent active email", zap.String("agent_id", agent.ID), zap.Error(err))
	}
}

func (s *AgentService) find(ctx context.Context, id string) (*models.Agent, error) {
	agent, err := s.agents.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("agent not found")
		}
		return nil, fmt.Errorf("failed to load agent: %w", err)
	}
	return agent, nil
}
