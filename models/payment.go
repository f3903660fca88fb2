package models

import "time"

const (
	PaymentPending   = "pending"
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
	PaymentCanceled  = "canceled"
)

// A failed PaymentIntent returns to requires_payment_method on Stripe and can
// still succeed, so failed is not terminal.
var terminalPaymentStatuses = map[string]bool{
	PaymentSucceeded: true,
	PaymentCanceled:  true,
}

func IsTerminalPayment(status string) bool {
	return terminalPaymentStatuses[status]
}

// Payment mirrors a Stripe PaymentIntent.
type Payment struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	AgentID     string     `json:"agent_id"`
	Plan        string     `json:"plan"`
	Amount      int64      `json:"amount"` // in cents
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	SucceededAt *time.Time `json:"succeeded_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Subscription struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	AgentID           string    `json:"agent_id"`
	Plan              string    `json:"plan"`
	Status            string    `json:"status"`
	CurrentPeriodEnd  time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool      `json:"cancel_at_period_end"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Live reports whether Stripe considers the subscription billable.
func (s Subscription) Live() bool {
	return s.Status == "active" || s.Status == "trialing"
}
