package integrations

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// ContactInput is the lead data sent to the CRM.
type ContactInput struct {
	Name       string
	Email      string
	Phone      string
	Identifier string
	Attributes map[string]string
}

// CRM is the subset of Chatwoot used for lead forwarding.
type CRM interface {
	CreateContact(ctx context.Context, in ContactInput) (contactID, sourceID string, err error)
	CreateConversation(ctx context.Context, contactID, sourceID, inboxID, message string) (string, error)
	SendMessage(ctx context.Context, conversationID, content string) error
}

type ChatwootClient struct {
	api            *apiClient
	accountID      string
	defaultInboxID string
	logger         *zap.Logger
}

// NewChatwootClient returns a dry-run client unless baseURL, accountID and token are all set.
func NewChatwootClient(baseURL, accountID, token, inboxID string, logger *zap.Logger) *ChatwootClient {
	c := &ChatwootClient{accountID: accountID, defaultInboxID: inboxID, logger: logger}
	if baseURL != "" && accountID != "" && token != "" {
		c.api = newAPIClient("chatwoot", baseURL, map[string]string{"api_access_token": token})
	}
	return c
}

func (c *ChatwootClient) path(format string, args ...any) string {
	return fmt.Sprintf("/api/v1/accounts/%s", c.accountID) + fmt.Sprintf(format, args...)
}

type chatwootContactRequest struct {
	InboxID          int               `json:"inbox_id,omitempty"`
	Name             string            `json:"name"`
	Email            string            `json:"email,omitempty"`
	PhoneNumber      string            `json:"phone_number,omitempty"`
	Identifier       string            `json:"identifier,omitempty"`
	CustomAttributes map[string]string `json:"custom_attributes,omitempty"`
}

type chatwootContactResponse struct {
	Payload struct {
		Contact struct {
			ID flexibleID `json:"id"`
		} `json:"contact"`
		ContactInbox struct {
			SourceID string `json:"source_id"`
		} `json:"contact_inbox"`
	} `json:"payload"`
}

func (c *ChatwootClient) CreateContact(ctx context.Context, in ContactInput) (string, string, error) {
	if c.api == nil {
		id := dryRunID()
		c.logger.Info("chatwoot dry-run: contact not created", zap.String("contact_id", id), zap.String("name", in.Name))
		return id, id, nil
	}

	inbox, _ := strconv.Atoi(c.defaultInboxID)
	req := chatwootContactRequest{
		InboxID:          inbox,
		Name:             in.Name,
		Email:            in.Email,
		PhoneNumber:      in.Phone,
		Identifier:       in.Identifier,
		CustomAttributes: in.Attributes,
	}

	var resp chatwootContactResponse
	if err := c.api.doJSON(ctx, http.MethodPost, c.path("/contacts"), req, &resp); err != nil {
		return "", "", fmt.Errorf("chatwoot CreateContact: %w", err)
	}
	return string(resp.Payload.Contact.ID), resp.Payload.ContactInbox.SourceID, nil
}

type chatwootConversationRequest struct {
	SourceID  string `json:"source_id,omitempty"`
	InboxID   int    `json:"inbox_id"`
	ContactID int    `json:"contact_id"`
	Message   *struct {
		Content string `json:"content"`
	} `json:"message,omitempty"`
}

type chatwootIDResponse struct {
	ID flexibleID `json:"id"`
}

// CreateConversation opens a conversation for the contact, seeded with message when not empty.
// An empty inboxID falls back to the configured default inbox.
func (c *ChatwootClient) CreateConversation(ctx context.Context, contactID, sourceID, inboxID, message string) (string, error) {
	if c.api == nil {
		id := dryRunID()
		c.logger.Info("chatwoot dry-run: conversation not created", zap.String("conversation_id", id), zap.String("contact_id", contactID))
		return id, nil
	}
	if inboxID == "" {
		inboxID = c.defaultInboxID
	}
	inbox, err := strconv.Atoi(inboxID)
	if err != nil {
		return "", fmt.Errorf("chatwoot CreateConversation: invalid inbox id %q", inboxID)
	}
	contact, err := strconv.Atoi(contactID)
	if err != nil {
		return "", fmt.Errorf("chatwoot CreateConversation: invalid contact id %q", contactID)
	}

	req := chatwootConversationRequest{SourceID: sourceID, InboxID: inbox, ContactID: contact}
	if message != "" {
		req.Message = &struct {
			Content string `json:"content"`
		}{Content: message}
	}

	var resp chatwootIDResponse
	if err := c.api.doJSON(ctx, http.MethodPost, c.path("/conversations"), req, &resp); err != nil {
		return "", fmt.Errorf("chatwoot CreateConversation: %w", err)
	}
	return string(resp.ID), nil
}

func (c *ChatwootClient) SendMessage(ctx context.Context, conversationID, content string) error {
	if c.api == nil {
		c.logger.Info("chatwoot dry-run: message not sent", zap.String("conversation_id", conversationID))
		return nil
	}
	req := map[string]string{"content": content, "message_type": "outgoing"}
	if err := c.api.doJSON(ctx, http.MethodPost, c.path("/conversations/%s/messages", conversationID), req, nil); err != nil {
		return fmt.Errorf("chatwoot SendMessage: %w", err)
	}
	return nil
}
