package models

import "time"

const (
	LeadNew       = "new"
	LeadContacted = "contacted"
	LeadQualified = "qualified"
	LeadConverted = "converted"
	LeadLost      = "lost"
)

const (
	LeadSourceSite  = "site"
	LeadSourceAgent = "agent"
	LeadSourceN8N   = "n8n"
)

type Lead struct {
	ID                     string    `json:"id"`
	AgentID                string    `json:"agent_id,omitempty"`
	Name                   string    `json:"name"`
	Email                  string    `json:"email,omitempty"`
	Phone                  string    `json:"phone,omitempty"`
	Company                string    `json:"company,omitempty"`
	Message                string    `json:"message,omitempty"`
	Source                 string    `json:"source"`
	PlanInterest           string    `json:"plan_interest,omitempty"`
	Status                 string    `json:"status"`
	ChatwootContactID      string    `json:"chatwoot_contact_id,omitempty"`
	ChatwootConversationID string    `json:"chatwoot_conversation_id,omitempty"`
	BotSailorSubscriberID  string    `json:"botsailor_subscriber_id,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

var leadOrder = map[string]int{
	LeadNew:       0,
	LeadContacted: 1,
	LeadQualified: 2,
	LeadConverted: 3,
}

// CanAdvanceLead allows forward moves through the funnel and dropping any open lead as lost.
func CanAdvanceLead(from, to string) bool {
	if from == LeadConverted || from == LeadLost {
		return false
	}
	if to == LeadLost {
		return true
	}
	f, ok1 := leadOrder[from]
	t, ok2 := leadOrder[to]
	return ok1 && ok2 && t > f
}

func ValidLeadStatus(s string) bool {
	if s == LeadLost {
		return true
	}
	_, ok := leadOrder[s]
	return ok
}

// ChatwootContact is the sender block of Chatwoot webhook payloads.
type ChatwootContact struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Type        string `json:"type"`
}

// ChatwootConversation is embedded in message events.
type ChatwootConversation struct {
	ID      int64 `json:"id"`
	InboxID int64 `json:"inbox_id"`
	Meta    struct {
		Sender ChatwootContact `json:"sender"`
	} `json:"meta"`
}

// ChatwootWebhook covers the conversation_created and message_created events.
type ChatwootWebhook struct {
	Event        string                `json:"event"`
	ID           int64                 `json:"id"`
	InboxID      int64                 `json:"inbox_id"`
	Content      string                `json:"content"`
	MessageType  string                `json:"message_type"`
	Sender       *ChatwootContact      `json:"sender"`
	Conversation *ChatwootConversation `json:"conversation"`
	Meta         struct {
		Sender ChatwootContact `json:"sender"`
	} `json:"meta"`
}

// ConversationRef extracts conversation id, inbox id and contact regardless of event shape.
func (w ChatwootWebhook) ConversationRef() (conversationID, inboxID int64, contact ChatwootContact) {
	if w.Event == "message_created" && w.Conversation != nil {
		contact = w.Conversation.Meta.Sender
		if w.Sender != nil && contact.ID == 0 {
			contact = *w.Sender
		}
		return w.Conversation.ID, w.Conversation.InboxID, contact
	}
	return w.ID, w.InboxID, w.Meta.Sender
}
