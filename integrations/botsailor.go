package integrations

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"
)

// Messenger is the subset of BotSailor used to reach leads over WhatsApp.
type Messenger interface {
	CreateSubscriber(ctx context.Context, botID, phone, name string) (string, error)
	SendText(ctx context.Context, botID, phone, text string) error
}

type BotSailorClient struct {
	api    *apiClient
	apiKey string
	logger *zap.Logger
}

func NewBotSailorClient(baseURL, apiKey string, logger *zap.Logger) *BotSailorClient {
	c := &BotSailorClient{apiKey: apiKey, logger: logger}
	if baseURL != "" && apiKey != "" {
		c.api = newAPIClient("botsailor", baseURL, nil)
	}
	return c
}

type botSailorResponse struct {
	Status       flexibleID `json:"status"`
	Message      string     `json:"message"`
	SubscriberID flexibleID `json:"subscriber_id"`
}

func (r botSailorResponse) ok() bool {
	return r.Status == "1" || r.Status == "true" || r.Status == "success"
}

func (c *BotSailorClient) CreateSubscriber(ctx context.Context, botID, phone, name string) (string, error) {
	if c.api == nil {
		id := dryRunID()
		c.logger.Info("botsailor dry-run: subscriber not created", zap.String("subscriber_id", id), zap.String("bot_id", botID))
		return id, nil
	}

	form := url.Values{}
	form.Set("apiToken", c.apiKey)
	form.Set("phone_number_id", botID)
	form.Set("phone_number", phone)
	form.Set("name", name)

	var resp botSailorResponse
	if err := c.api.doForm(ctx, "/whatsapp/subscriber/create", form, &resp); err != nil {
		return "", fmt.Errorf("botsailor CreateSubscriber: %w", err)
	}
	if !resp.ok() {
		return "", fmt.Errorf("botsailor CreateSubscriber: %s", resp.Message)
	}
	if resp.SubscriberID != "" {
		return string(resp.SubscriberID), nil
	}
	return phone, nil
}

func (c *BotSailorClient) SendText(ctx context.Context, botID, phone, text string) error {
	if c.api == nil {
		c.logger.Info("botsailor dry-run: message not sent", zap.String("bot_id", botID))
		return nil
	}

	form := url.Values{}
	form.Set("apiToken", c.apiKey)
	form.Set("phone_number_id", botID)
	form.Set("phone_number", phone)
	form.Set("message", text)

	var resp botSailorResponse
	if err := c.api.doForm(ctx, "/whatsapp/send", form, &resp); err != nil {
		return fmt.Errorf("botsailor SendText: %w", err)
	}
	if !resp.ok() {
		return fmt.Errorf("botsailor SendText: %s", resp.Message)
	}
	return nil
}
