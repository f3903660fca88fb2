package models

import "time"

const (
	EventUserRegistered       = "user.registered"
	EventAgentCreated         = "agent.created"
	EventAgentStatusChanged   = "agent.status_changed"
	EventLeadCreated          = "lead.created"
	EventPaymentSucceeded     = "payment.succeeded"
	EventPaymentFailed        = "payment.failed"
	EventSubscriptionUpdated  = "subscription.updated"
	EventSubscriptionCanceled = "subscription.canceled"
)

type Event struct {
	Type      string            `json:"type"`
	UserID    string            `json:"user_id,omitempty"`
	AgentID   string            `json:"agent_id,omitempty"`
	LeadID    string            `json:"lead_id,omitempty"`
	Plan      string            `json:"plan,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
