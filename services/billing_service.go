package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"agent-portal/apperrors"
	"agent-portal/models"
	"agent-portal/repository"

	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

type CheckoutResult struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

type SubscriptionCheckout struct {
	SubscriptionID string `json:"subscription_id"`
	Status         string `json:"status"`
	ClientSecret   string `json:"client_secret,omitempty"`
}

type BillingService struct {
	gateway  PaymentGateway
	users    repository.UserRepository
	agents   repository.AgentRepository
	payments repository.PaymentRepository
	subs     repository.SubscriptionRepository
	ledger   repository.EventLedger
	agentSvc *AgentService
	mailer   *Mailer
	events   *EventPublisher
	priceIDs map[string]string
	currency string
	logger   *zap.Logger
}

// NewBillingService wires the billing flow. A nil gateway disables every Stripe call.
func NewBillingService(
	gateway PaymentGateway,
	users repository.UserRepository,
	agents repository.AgentRepository,
	payments repository.PaymentRepository,
	subs repository.SubscriptionRepository,
	ledger repository.EventLedger,
	agentSvc *AgentService,
	mailer *Mailer,
	events *EventPublisher,
	priceIDs map[string]string,
	currency string,
	logger *zap.Logger,
) *BillingService {
	return &BillingService{
		gateway:  gateway,
		users:    users,
		agents:   agents,
		payments: payments,
		subs:     subs,
		ledger:   ledger,
		agentSvc: agentSvc,
		mailer:   mailer,
		events:   events,
		priceIDs: priceIDs,
		currency: currency,
		logger:   logger,
	}
}

func (s *BillingService) Enabled() bool {
	return s.gateway != nil
}

func (s *BillingService) CreatePaymentIntent(ctx context.Context, userID, agentID string) (*CheckoutResult, error) {
	user, agent, plan, err := s.prepareCheckout(ctx, userID, agentID)
	if err != nil {
		return nil, err
	}
	customerID, err := s.customerFor(ctx, user)
	if err != nil {
		return nil, err
	}

	pi, err := s.gateway.CreatePaymentIntent(ctx, plan.AmountCents, s.currency, customerID, map[string]string{
		"user_id":  user.ID,
		"agent_id": agent.ID,
		"plan":     plan.ID,
	})
	if err != nil {
		return nil, apperrors.New(http.StatusBadGateway, "failed to create payment intent", err)
	}

	now := time.Now().UTC()
	payment := &models.Payment{
		ID:        pi.ID,
		UserID:    user.ID,
		AgentID:   agent.ID,
		Plan:      plan.ID,
		Amount:    plan.AmountCents,
		Currency:  s.currency,
		Status:    models.PaymentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.payments.Save(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	s.logger.Info("Payment intent created", zap.String("payment_intent_id", pi.ID), zap.String("agent_id", agent.ID))
	return &CheckoutResult{
		PaymentIntentID: pi.ID,
		ClientSecret:    pi.ClientSecret,
		Amount:          plan.AmountCents,
		Currency:        s.currency,
	}, nil
}

func (s *BillingService) CreateSubscription(ctx context.Context, userID, agentID string) (*SubscriptionCheckout, error) {
	user, agent, plan, err := s.prepareCheckout(ctx, userID, agentID)
	if err != nil {
		return nil, err
	}
	if plan.StripePriceID == "" {
		return nil, apperrors.Unprocessable("plan has no configured price")
	}

	existing, err := s.subs.FindByAgent(ctx, agent.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	if existing != nil && existing.Live() {
		return nil, apperrors.Conflict("agent already has an active subscription")
	}

	customerID, err := s.customerFor(ctx, user)
	if err != nil {
		return nil, err
	}
	res, err := s.gateway.CreateSubscription(ctx, customerID, plan.StripePriceID, map[string]string{
		"user_id":  user.ID,
		"agent_id": agent.ID,
		"plan":     plan.ID,
	})
	if err != nil {
		return nil, apperrors.New(http.StatusBadGateway, "failed to create subscription", err)
	}

	now := time.Now().UTC()
	sub := &models.Subscription{
		ID:                res.ID,
		UserID:            user.ID,
		AgentID:           agent.ID,
		Plan:              plan.ID,
		Status:            res.Status,
		CancelAtPeriodEnd: res.CancelAtPeriodEnd,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if res.CurrentPeriodEnd > 0 {
		sub.CurrentPeriodEnd = time.Unix(res.CurrentPeriodEnd, 0).UTC()
	}
	if err := s.subs.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}

	s.logger.Info("Subscription created", zap.String("subscription_id", res.ID), zap.String("agent_id", agent.ID))
	return &SubscriptionCheckout{SubscriptionID: res.ID, Status: res.Status, ClientSecret: res.ClientSecret}, nil
}

func (s *BillingService) CancelSubscription(ctx context.Context, actor Actor, subscriptionID string) (*models.Subscription, error) {
	if !s.Enabled() {
		return nil, apperrors.Unavailable("billing is not configured", nil)
	}
	sub, err := s.subs.FindByID(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("subscription not found")
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	if !actor.Owns(sub.UserID) {
		return nil, apperrors.NotFound("subscription not found")
	}
	if sub.CancelAtPeriodEnd || sub.Status == "canceled" {
		return sub, nil
	}

	res, err := s.gateway.CancelSubscription(ctx, sub.ID, true)
	if err != nil {
		return nil, apperrors.New(http.StatusBadGateway, "failed to cancel subscription", err)
	}
	sub.CancelAtPeriodEnd = true
	if res.Status != "" {
		sub.Status = res.Status
	}
	sub.UpdatedAt = time.Now().UTC()
	if err := s.subs.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}
	return sub, nil
}

func (s *BillingService) ListSubscriptions(ctx context.Context, userID string) ([]models.Subscription, error) {
	subs, err := s.subs.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

func (s *BillingService) ListPayments(ctx context.Context, userID string) ([]models.Payment, error) {
	payments, err := s.payments.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

// HandleWebhook verifies and processes a raw Stripe webhook delivery.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if !s.Enabled() {
		return apperrors.Unavailable("billing is not configured", nil)
	}
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		s.logger.Warn("Stripe webhook signature verification failed", zap.Error(err))
		return apperrors.BadRequest("invalid webhook")
	}
	return s.HandleWebhookEvent(ctx, event)
}

// HandleWebhookEvent processes each Stripe event id at most once. When a handler fails
// the event is forgotten so the redelivery is processed.
func (s *BillingService) HandleWebhookEvent(ctx context.Context, event stripe.Event) error {
	first, err := s.ledger.MarkProcessed(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("failed to record webhook event: %w", err)
	}
	if !first {
		s.logger.Info("Skipping duplicate webhook event", zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))
		return nil
	}

	s.logger.Info("Processing Stripe webhook",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
	)

	switch event.Type {
	case "payment_intent.succeeded":
		err = s.handlePaymentIntent(ctx, event, models.PaymentSucceeded)
	case "payment_intent.payment_failed":
		err = s.handlePaymentIntent(ctx, event, models.PaymentFailed)
	case "payment_intent.canceled":
		err = s.handlePaymentIntent(ctx, event, models.PaymentCanceled)
	case "customer.subscription.created", "customer.subscription.updated":
		err = s.handleSubscriptionChange(ctx, event)
	case "customer.subscription.deleted":
		err = s.handleSubscriptionDeleted(ctx, event)
	case "invoice.payment_failed":
		err = s.handleInvoiceFailed(ctx, event)
	default:
		s.logger.Info("Unhandled webhook event type", zap.String("event_type", string(event.Type)))
	}

	if err != nil {
		if ferr := s.ledger.Forget(ctx, event.ID); ferr != nil {
			s.logger.Error("Failed to release webhook event", zap.String("event_id", event.ID), zap.Error(ferr))
		}
		return err
	}
	return nil
}

func (s *BillingService) handlePaymentIntent(ctx context.Context, event stripe.Event, status string) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		s.logger.Error("Failed to unmarshal payment intent", zap.Error(err))
		return nil
	}

	payment, err := s.payments.FindByID(ctx, pi.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		payment = paymentFromIntent(&pi)
		if payment == nil {
			s.logger.Warn("Payment not found for PaymentIntent", zap.String("payment_intent_id", pi.ID))
			return nil
		}
	case err != nil:
		return fmt.Errorf("failed to load payment: %w", err)
	}

	if models.IsTerminalPayment(payment.Status) {
		if payment.Status == models.PaymentSucceeded && status == models.PaymentSucceeded {
			return s.provisionPaid(ctx, payment)
		}
		s.logger.Info("Skipping duplicate payment webhook",
			zap.String("payment_id", payment.ID),
			zap.String("status", payment.Status),
		)
		return nil
	}

	// Provisioning runs before the payment is saved as succeeded so a failure
	// leaves the event retryable end to end.
	if status == models.PaymentSucceeded {
		if err := s.provisionPaid(ctx, payment); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	payment.Status = status
	payment.UpdatedAt = now
	switch status {
	case models.PaymentSucceeded:
		payment.SucceededAt = &now
	case models.PaymentFailed:
		payment.FailedAt = &now
	}
	if err := s.payments.Save(ctx, payment); err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}

	user, uerr := s.users.FindByID(ctx, payment.UserID)
	if uerr != nil {
		s.logger.Warn("Payment owner not found", zap.String("payment_id", payment.ID), zap.Error(uerr))
	}

	switch status {
	case models.PaymentSucceeded:
		if user != nil {
			if err := s.mailer.SendPaymentSucceeded(ctx, user, payment.Plan, payment.Amount, payment.Currency); err != nil {
				s.logger.Warn("Failed to send payment confirmation", zap.String("payment_id", payment.ID), zap.Error(err))
			}
		}
		s.publishPayment(ctx, models.EventPaymentSucceeded, payment)
	case models.PaymentFailed:
		reason := ""
		if pi.LastPaymentError != nil {
			reason = pi.LastPaymentError.Msg
		}
		if user != nil {
			if err := s.mailer.SendPaymentFailed(ctx, user, payment.Plan, payment.Amount, payment.Currency, reason); err != nil {
				s.logger.Warn("Failed to send payment failure email", zap.String("payment_id", payment.ID), zap.Error(err))
			}
		}
		s.publishPayment(ctx, models.EventPaymentFailed, payment)
	}
	return nil
}

// provisionPaid starts provisioning for the agent a payment covers. It is safe to
// repeat: agents already past payment are left alone.
func (s *BillingService) provisionPaid(ctx context.Context, payment *models.Payment) error {
	if payment.AgentID == "" {
		return nil
	}
	if _, err := s.agentSvc.StartProvisioning(ctx, payment.AgentID); err != nil && apperrors.StatusOf(err) != http.StatusNotFound {
		return fmt.Errorf("failed to start provisioning: %w", err)
	}
	return nil
}

func (s *BillingService) handleSubscriptionChange(ctx context.Context, event stripe.Event) error {
	var ss stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &ss); err != nil {
		s.logger.Error("Failed to unmarshal subscription", zap.Error(err))
		return nil
	}

	sub, err := s.loadSubscription(ctx, &ss)
	if err != nil || sub == nil {
		return err
	}
	sub.Status = string(ss.Status)
	sub.CancelAtPeriodEnd = ss.CancelAtPeriodEnd
	if ss.CurrentPeriodEnd > 0 {
		sub.CurrentPeriodEnd = time.Unix(ss.CurrentPeriodEnd, 0).UTC()
	}
	sub.UpdatedAt = time.Now().UTC()
	if err := s.subs.Save(ctx, sub); err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}

	if sub.Live() && sub.AgentID != "" {
		if _, err := s.agentSvc.StartProvisioning(ctx, sub.AgentID); err != nil && apperrors.StatusOf(err) != http.StatusNotFound {
			return fmt.Errorf("failed to start provisioning: %w", err)
		}
	}

	s.events.Publish(ctx, models.Event{
		Type:    models.EventSubscriptionUpdated,
		UserID:  sub.UserID,
		AgentID: sub.AgentID,
		Plan:    sub.Plan,
		Data:    map[string]string{"subscription_id": sub.ID, "status": sub.Status},
	})
	return nil
}

func (s *BillingService) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var ss stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &ss); err != nil {
		s.logger.Error("Failed to unmarshal subscription", zap.Error(err))
		return nil
	}

	sub, err := s.loadSubscription(ctx, &ss)
	if err != nil || sub == nil {
		return err
	}
	sub.Status = "canceled"
	sub.UpdatedAt = time.Now().UTC()
	if err := s.subs.Save(ctx, sub); err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}

	if sub.AgentID != "" {
		if err := s.agentSvc.MarkCancelled(ctx, sub.AgentID); err != nil && apperrors.StatusOf(err) != http.StatusNotFound {
			return fmt.Errorf("failed to cancel agent: %w", err)
		}
	}

	s.events.Publish(ctx, models.Event{
		Type:    models.EventSubscriptionCanceled,
		UserID:  sub.UserID,
		AgentID: sub.AgentID,
		Plan:    sub.Plan,
		Data:    map[string]string{"subscription_id": sub.ID},
	})
	return nil
}

func (s *BillingService) handleInvoiceFailed(ctx context.Context, event stripe.Event) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		s.logger.Error("Failed to unmarshal invoice", zap.Error(err))
		return nil
	}
	if inv.Subscription == nil || inv.Subscription.ID == "" {
		s.logger.Info("Invoice without subscription, ignoring", zap.String("invoice_id", inv.ID))
		return nil
	}

	sub, err := s.subs.FindByID(ctx, inv.Subscription.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("Subscription not found for invoice", zap.String("invoice_id", inv.ID))
			return nil
		}
		return fmt.Errorf("failed to load subscription: %w", err)
	}
	user, err := s.users.FindByID(ctx, sub.UserID)
	if err != nil {
		s.logger.Warn("Subscription owner not found", zap.String("subscription_id", sub.ID), zap.Error(err))
		return nil
	}

	if err := s.mailer.SendPaymentFailed(ctx, user, sub.Plan, inv.AmountDue, string(inv.Currency), "a fatura da assinatura não foi paga"); err != nil {
		s.logger.Warn("Failed to send invoice failure email", zap.String("invoice_id", inv.ID), zap.Error(err))
	}
	s.events.Publish(ctx, models.Event{
		Type:    models.EventPaymentFailed,
		UserID:  sub.UserID,
		AgentID: sub.AgentID,
		Plan:    sub.Plan,
		Data:    map[string]string{"invoice_id": inv.ID, "subscription_id": sub.ID},
	})
	return nil
}

// loadSubscription finds the local mirror of a Stripe subscription, rebuilding it from
// metadata when it was created outside this API.
func (s *BillingService) loadSubscription(ctx context.Context, ss *stripe.Subscription) (*models.Subscription, error) {
	sub, err := s.subs.FindByID(ctx, ss.ID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	if ss.Metadata["user_id"] == "" {
		s.logger.Warn("Subscription without user metadata, ignoring", zap.String("subscription_id", ss.ID))
		return nil, nil
	}
	now := time.Now().UTC()
	return &models.Subscription{
		ID:        ss.ID,
		UserID:    ss.Metadata["user_id"],
		AgentID:   ss.Metadata["agent_id"],
		Plan:      ss.Metadata["plan"],
		CreatedAt: now,
	}, nil
}

func (s *BillingService) prepareCheckout(ctx context.Context, userID, agentID string) (*models.User, *models.Agent, models.Plan, error) {
	if !s.Enabled() {
		return nil, nil, models.Plan{}, apperrors.Unavailable("billing is not configured", nil)
	}
	agent, err := s.agentSvc.Get(ctx, Actor{UserID: userID}, agentID)
	if err != nil {
		return nil, nil, models.Plan{}, err
	}
	if agent.Status != models.AgentPendingPayment && agent.Status != models.AgentFailed {
		return nil, nil, models.Plan{}, apperrors.Conflict("agent does not require payment")
	}
	plan, ok := models.ParsePlan(agent.Plan)
	if !ok {
		return nil, nil, models.Plan{}, apperrors.Unprocessable("agent has an unknown plan")
	}
	plan.StripePriceID = s.priceIDs[plan.ID]

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, models.Plan{}, apperrors.NotFound("user not found")
		}
		return nil, nil, models.Plan{}, fmt.Errorf("failed to load user: %w", err)
	}
	return user, agent, plan, nil
}

// customerFor lazily creates the Stripe customer for a user.
func (s *BillingService) customerFor(ctx context.Context, user *models.User) (string, error) {
	if user.StripeCustomerID != "" {
		return user.StripeCustomerID, nil
	}
	customerID, err := s.gateway.CreateCustomer(ctx, user.Email, user.Name, user.ID)
	if err != nil {
		return "", apperrors.New(http.StatusBadGateway, "failed to create customer", err)
	}
	user.StripeCustomerID = customerID
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return "", fmt.Errorf("failed to save customer id: %w", err)
	}
	return customerID, nil
}

func (s *BillingService) publishPayment(ctx context.Context, eventType string, payment *models.Payment) {
	s.events.Publish(ctx, models.Event{
		Type:    eventType,
		UserID:  payment.UserID,
		AgentID: payment.AgentID,
		Plan:    payment.Plan,
		Data: map[string]string{
			"payment_id": payment.ID,
			"amount":     fmt.Sprintf("%d", payment.Amount),
			"currency":   payment.Currency,
		},
	})
}

func paymentFromIntent(pi *stripe.PaymentIntent) *models.Payment {
	if pi.Metadata["user_id"] == "" {
		return nil
	}
	now := time.Now().UTC()
	return &models.Payment{
		ID:        pi.ID,
		UserID:    pi.Metadata["user_id"],
		AgentID:   pi.Metadata["agent_id"],
		Plan:      pi.Metadata["plan"],
		Amount:    pi.Amount,
		Currency:  string(pi.Currency),
		Status:    models.PaymentPending,
		CreatedAt: now,
	}
}
