package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"agent-portal/apperrors"
	"agent-portal/integrations"
	"agent-portal/models"
	"agent-portal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type LeadService struct {
	leads     repository.LeadRepository
	agents    repository.AgentRepository
	users     repository.UserRepository
	crm       integrations.CRM
	messenger integrations.Messenger
	workflows integrations.WorkflowTrigger
	mailer    *Mailer
	events    *EventPublisher
	logger    *zap.Logger
}

func NewLeadService(
	leads repository.LeadRepository,
	agents repository.AgentRepository,
	users repository.UserRepository,
	crm integrations.CRM,
	messenger integrations.Messenger,
	workflows integrations.WorkflowTrigger,
	mailer *Mailer,
	events *EventPublisher,
	logger *zap.Logger,
) *LeadService {
	return &LeadService{
		leads:     leads,
		agents:    agents,
		users:     users,
		crm:       crm,
		messenger: messenger,
		workflows: workflows,
		mailer:    mailer,
		events:    events,
		logger:    logger,
	}
}

// Capture stores a lead and forwards it to the CRM, messaging and automation tools.
// Forwarding failures are logged and never fail the capture.
func (s *LeadService) Capture(ctx context.Context, req models.LeadRequest) (*models.Lead, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := normalizePhone(req.Phone)
	if name == "" {
		return nil, apperrors.BadRequest("name is required")
	}
	if email == "" && phone == "" {
		return nil, apperrors.BadRequest("email or phone is required")
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, apperrors.BadRequest("invalid email")
		}
	}

	var agent *models.Agent
	if req.AgentID != "" {
		a, err := s.agents.FindByID(ctx, req.AgentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NotFound("agent not found")
			}
			return nil, fmt.Errorf("failed to load agent: %w", err)
		}
		agent = a
	}

	source := strings.ToLower(strings.TrimSpace(req.Source))
	switch source {
	case "":
		source = models.LeadSourceSite
		if agent != nil {
			source = models.LeadSourceAgent
		}
	case models.LeadSourceSite, models.LeadSourceAgent, models.LeadSourceN8N:
	default:
		return nil, apperrors.BadRequest("invalid source")
	}

	var planInterest string
	if strings.TrimSpace(req.PlanInterest) != "" {
		plan, ok := models.ParsePlan(req.PlanInterest)
		if !ok {
			return nil, apperrors.BadRequest("unknown plan")
		}
		planInterest = plan.ID
	}

	now := time.Now().UTC()
	lead := &models.Lead{
		ID:           uuid.NewString(),
		AgentID:      req.AgentID,
		Name:         name,
		Email:        email,
		Phone:        phone,
		Company:      strings.TrimSpace(req.Company),
		Message:      strings.TrimSpace(req.Message),
		Source:       source,
		PlanInterest: planInterest,
		Status:       models.LeadNew,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to store lead: %w", err)
	}

	s.forwardToCRM(ctx, lead, agent)
	s.subscribe(ctx, lead, agent)
	if err := s.leads.Update(ctx, lead); err != nil {
		s.logger.Error("Failed to store lead integration ids", zap.String("lead_id", lead.ID), zap.Error(err))
	}
	s.announce(ctx, lead, agent)

	s.logger.Info("Lead captured", zap.String("lead_id", lead.ID), zap.String("source", source))
	return lead, nil
}

// HandleChatwootEvent turns the first message of a Chatwoot conversation into a lead
// for the agent owning the inbox. Other events are ignored.
func (s *LeadService) HandleChatwootEvent(ctx context.Context, hook models.ChatwootWebhook) (_ *models.Lead, err error) {
	switch hook.Event {
	case "conversation_created":
	case "message_created":
		if hook.MessageType != "incoming" {
			return nil, nil
		}
	default:
		s.logger.Debug("Ignoring Chatwoot event", zap.String("event", hook.Event))
		return nil, nil
	}

	conversationID, inboxID, contact := hook.ConversationRef()
	if conversationID == 0 {
		return nil, apperrors.BadRequest("missing conversation id")
	}
	if contact.Name == "" && contact.Email == "" && contact.PhoneNumber == "" {
		s.logger.Debug("Chatwoot conversation without contact details", zap.Int64("conversation_id", conversationID))
		return nil, nil
	}

	convKey := strconv.FormatInt(conversationID, 10)
	leadID := uuid.NewString()
	claimed, err := s.leads.ClaimConversation(ctx, convKey, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim conversation: %w", err)
	}
	if !claimed {
		return nil, nil
	}
	// Chatwoot redelivers on error, so a failed attempt must not keep the claim.
	defer func() {
		if err == nil {
			return
		}
		if rerr := s.leads.ReleaseConversation(ctx, convKey); rerr != nil {
			s.logger.Error("Failed to release Chatwoot conversation", zap.String("conversation_id", convKey), zap.Error(rerr))
		}
	}()

	agent, err := s.agentByInbox(ctx, strconv.FormatInt(inboxID, 10))
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(contact.Name)
	if name == "" {
		name = firstNonEmpty(contact.PhoneNumber, contact.Email)
	}
	now := time.Now().UTC()
	lead := &models.Lead{
		ID:                     leadID,
		Name:                   name,
		Email:                  strings.ToLower(strings.TrimSpace(contact.Email)),
		Phone:                  normalizePhone(contact.PhoneNumber),
		Message:                strings.TrimSpace(hook.Content),
		Source:                 models.LeadSourceAgent,
		Status:                 models.LeadNew,
		ChatwootConversationID: convKey,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if contact.ID != 0 {
		lead.ChatwootContactID = strconv.FormatInt(contact.ID, 10)
	}
	if agent != nil {
		lead.AgentID = agent.ID
	}
	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to store lead: %w", err)
	}

	s.announce(ctx, lead, agent)
	return lead, nil
}

func (s *LeadService) Get(ctx context.Context, actor Actor, id string) (*models.Lead, error) {
	lead, err := s.leads.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("lead not found")
		}
		return nil, fmt.Errorf("failed to load lead: %w", err)
	}
	if actor.IsAdmin() {
		return lead, nil
	}
	if lead.AgentID == "" {
		return nil, apperrors.NotFound("lead not found")
	}
	agent, err := s.agents.FindByID(ctx, lead.AgentID)
	if err != nil || agent.OwnerID != actor.UserID {
		return nil, apperrors.NotFound("lead not found")
	}
	return lead, nil
}

func (s *LeadService) ListForAgent(ctx context.Context, actor Actor, agentID string, offset, limit int) ([]models.Lead, int64, error) {
	agent, err := s.agents.FindByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, 0, apperrors.NotFound("agent not found")
		}
		return nil, 0, fmt.Errorf("failed to load agent: %w", err)
	}
	if !actor.Owns(agent.OwnerID) {
		return nil, 0, apperrors.NotFound("agent not found")
	}
	leads, total, err := s.leads.ListByAgent(ctx, agentID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, total, nil
}

// ListAll pages through every lead, newest first, optionally filtered by status.
func (s *LeadService) ListAll(ctx context.Context, status string, offset, limit int) ([]models.Lead, int64, error) {
	if status == "" {
		leads, total, err := s.leads.List(ctx, offset, limit)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to list leads: %w", err)
		}
		return leads, total, nil
	}
	if !models.ValidLeadStatus(status) {
		return nil, 0, apperrors.BadRequest("invalid status")
	}

	all, _, err := s.leads.List(ctx, 0, 0)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list leads: %w", err)
	}
	filtered := make([]models.Lead, 0, len(all))
	for _, l := range all {
		if l.Status == status {
			filtered = append(filtered, l)
		}
	}
	return paginate(filtered, offset, limit), int64(len(filtered)), nil
}

func (s *LeadService) UpdateStatus(ctx context.Context, actor Actor, id, status string) (*models.Lead, error) {
	if !models.ValidLeadStatus(status) {
		return nil, apperrors.BadRequest("invalid status")
	}
	lead, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if lead.Status == status {
		return lead, nil
	}
	if !models.CanAdvanceLead(lead.Status, status) {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot move lead from %s to %s", lead.Status, status))
	}

	lead.Status = status
	lead.UpdatedAt = time.Now().UTC()
	if err := s.leads.Update(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}
	return lead, nil
}

func (s *LeadService) forwardToCRM(ctx context.Context, lead *models.Lead, agent *models.Agent) {
	attrs := map[string]string{"source": lead.Source, "lead_id": lead.ID}
	if lead.Company != "" {
		attrs["company"] = lead.Company
	}
	if lead.PlanInterest != "" {
		attrs["plan_interest"] = lead.PlanInterest
	}

	contactID, sourceID, err := s.crm.CreateContact(ctx, integrations.ContactInput{
		Name:       lead.Name,
		Email:      lead.Email,
		Phone:      lead.Phone,
		Identifier: lead.ID,
		Attributes: attrs,
	})
	if err != nil {
		s.logger.Warn("Failed to create Chatwoot contact", zap.String("lead_id", lead.ID), zap.Error(err))
		return
	}
	lead.ChatwootContactID = contactID

	inboxID := ""
	if agent != nil {
		inboxID = agent.ChatwootInboxID
	}
	message := lead.Message
	if message == "" {
		message = fmt.Sprintf("Novo lead: %s", lead.Name)
	}
	conversationID, err := s.crm.CreateConversation(ctx, contactID, sourceID, inboxID, message)
	if err != nil {
		s.logger.Warn("Failed to create Chatwoot conversation", zap.String("lead_id", lead.ID), zap.Error(err))
		return
	}
	lead.ChatwootConversationID = conversationID
	if _, err := s.leads.ClaimConversation(ctx, conversationID, lead.ID); err != nil {
		s.logger.Warn("Failed to link Chatwoot conversation", zap.String("lead_id", lead.ID), zap.Error(err))
	}
}

func (s *LeadService) subscribe(ctx context.Context, lead *models.Lead, agent *models.Agent) {
	if lead.Phone == "" || agent == nil || agent.BotSailorBotID == "" {
		return
	}
	subscriberID, err := s.messenger.CreateSubscriber(ctx, agent.BotSailorBotID, lead.Phone, lead.Name)
	if err != nil {
		s.logger.Warn("Failed to create BotSailor subscriber", zap.String("lead_id", lead.ID), zap.Error(err))
		return
	}
	lead.BotSailorSubscriberID = subscriberID

	if agent.Greeting != "" {
		if err := s.messenger.SendText(ctx, agent.BotSailorBotID, lead.Phone, agent.Greeting); err != nil {
			s.logger.Warn("Failed to send greeting", zap.String("lead_id", lead.ID), zap.Error(err))
		}
	}
}

func (s *LeadService) announce(ctx context.Context, lead *models.Lead, agent *models.Agent) {
	if _, err := s.workflows.TriggerWorkflow(ctx, integrations.WorkflowLeadCreated, map[string]any{"lead": lead, "agent": agent}); err != nil {
		s.logger.Warn("Lead workflow trigger failed", zap.String("lead_id", lead.ID), zap.Error(err))
	}

	var owner *models.User
	if agent != nil {
		if u, err := s.users.FindByID(ctx, agent.OwnerID); err == nil {
			owner = u
		}
	}
	if err := s.mailer.SendLeadNotification(ctx, lead, agent, owner); err != nil {
		s.logger.Warn("Failed to send lead notification", zap.String("lead_id", lead.ID), zap.Error(err))
	}

	event := models.Event{Type: models.EventLeadCreated, LeadID: lead.ID, AgentID: lead.AgentID, Plan: lead.PlanInterest}
	if agent != nil {
		event.UserID = agent.OwnerID
	}
	s.events.Publish(ctx, event)
}

func (s *LeadService) agentByInbox(ctx context.Context, inboxID string) (*models.Agent, error) {
	if inboxID == "" || inboxID == "0" {
		return nil, nil
	}
	agents, err := s.agents.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	for i := range agents {
		if agents[i].ChatwootInboxID == inboxID {
			return &agents[i], nil
		}
	}
	return nil, nil
}

// normalizePhone keeps digits and a leading plus sign.
func normalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() <= 1 {
		return ""
	}
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

func countBy[T any](items []T, key func(T) string) map[string]int {
	out := make(map[string]int)
	for _, it := range items {
		out[key(it)]++
	}
	return out
}
