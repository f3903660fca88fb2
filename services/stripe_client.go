package services

import (
	"context"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/customer"
	"github.com/stripe/stripe-go/v80/paymentintent"
	"github.com/stripe/stripe-go/v80/subscription"
	"github.com/stripe/stripe-go/v80/webhook"
)

// PaymentIntentResult is what the frontend needs to confirm a card payment.
type PaymentIntentResult struct {
	ID           string
	ClientSecret string
	Status       string
}

type SubscriptionResult struct {
	ID                string
	Status            string
	ClientSecret      string
	CurrentPeriodEnd  int64
	CancelAtPeriodEnd bool
}

// PaymentGateway is the subset of Stripe the billing flow depends on.
type PaymentGateway interface {
	CreateCustomer(ctx context.Context, email, name, userID string) (string, error)
	CreatePaymentIntent(ctx context.Context, amount int64, currency, customerID string, metadata map[string]string) (*PaymentIntentResult, error)
	CreateSubscription(ctx context.Context, customerID, priceID string, metadata map[string]string) (*SubscriptionResult, error)
	CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*SubscriptionResult, error)
	ParseWebhook(payload []byte, signature string) (stripe.Event, error)
}

type StripeService struct {
	SecretKey  string
	WebhookKey string
}

func NewStripeService(secretKey, webhookKey string) *StripeService {
	stripe.Key = secretKey
	return &StripeService{SecretKey: secretKey, WebhookKey: webhookKey}
}

func (s *StripeService) CreateCustomer(ctx context.Context, email, name, userID string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx
	params.AddMetadata("user_id", userID)

	c, err := customer.New(params)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

func (s *StripeService) CreatePaymentIntent(ctx context.Context, amount int64, currency, customerID string, metadata map[string]string) (*PaymentIntentResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, err
	}
	return &PaymentIntentResult{ID: pi.ID, ClientSecret: pi.ClientSecret, Status: string(pi.Status)}, nil
}

// CreateSubscription starts an incomplete subscription whose first invoice is paid
// client-side with the returned client secret.
func (s *StripeService) CreateSubscription(ctx context.Context, customerID, priceID string, metadata map[string]string) (*SubscriptionResult, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
		PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
	}
	params.Context = ctx
	params.AddExpand("latest_invoice.payment_intent")
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	sub, err := subscription.New(params)
	if err != nil {
		return nil, err
	}
	return subscriptionResult(sub), nil
}

func (s *StripeService) CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*SubscriptionResult, error) {
	var (
		sub *stripe.Subscription
		err error
	)
	if atPeriodEnd {
		params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
		params.Context = ctx
		sub, err = subscription.Update(subscriptionID, params)
	} else {
		params := &stripe.SubscriptionCancelParams{}
		params.Context = ctx
		sub, err = subscription.Cancel(subscriptionID, params)
	}
	if err != nil {
		return nil, err
	}
	return subscriptionResult(sub), nil
}

// ParseWebhook verifies the Stripe-Signature header against the endpoint secret.
func (s *StripeService) ParseWebhook(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, s.WebhookKey, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

func subscriptionResult(sub *stripe.Subscription) *SubscriptionResult {
	res := &SubscriptionResult{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CurrentPeriodEnd:  sub.CurrentPeriodEnd,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
		res.ClientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
	}
	return res
}
