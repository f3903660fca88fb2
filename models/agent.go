package models

import "time"

const (
	AgentPendingPayment = "pending_payment"
	AgentProvisioning   = "provisioning"
	AgentActive         = "active"
	AgentPaused         = "paused"
	AgentFailed         = "failed"
	AgentCancelled      = "cancelled"
)

const (
	ChannelWhatsApp  = "whatsapp"
	ChannelInstagram = "instagram"
	ChannelWebchat   = "webchat"
)

type Agent struct {
	ID                  string    `json:"id"`
	OwnerID             string    `json:"owner_id"`
	Name                string    `json:"name"`
	Plan                string    `json:"plan"`
	Status              string    `json:"status"`
	Channel             string    `json:"channel"`
	BusinessName        string    `json:"business_name"`
	BusinessDescription string    `json:"business_description,omitempty"`
	Greeting            string    `json:"greeting,omitempty"`
	WorkingHours        string    `json:"working_hours,omitempty"`
	ChatwootInboxID     string    `json:"chatwoot_inbox_id,omitempty"`
	BotSailorBotID      string    `json:"botsailor_bot_id,omitempty"`
	N8NExecutionID      string    `json:"n8n_execution_id,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

var agentTransitions = map[string][]string{
	AgentPendingPayment: {AgentProvisioning, AgentCancelled},
	AgentProvisioning:   {AgentActive, AgentFailed, AgentCancelled},
	AgentActive:         {AgentPaused, AgentProvisioning, AgentCancelled},
	AgentPaused:         {AgentActive, AgentProvisioning, AgentCancelled},
	AgentFailed:         {AgentProvisioning, AgentCancelled},
	AgentCancelled:      {},
}

// CanTransition reports whether an agent may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range agentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func ValidAgentStatus(s string) bool {
	_, ok := agentTransitions[s]
	return ok
}

func ValidChannel(c string) bool {
	switch c {
	case ChannelWhatsApp, ChannelInstagram, ChannelWebchat:
		return true
	}
	return false
}
