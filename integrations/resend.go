package integrations

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

const resendBaseURL = "https://api.resend.com"

type Email struct {
	To      []string
	Subject string
	HTML    string
	ReplyTo string
}

type EmailSender interface {
	Send(ctx context.Context, email Email) (string, error)
}

type ResendClient struct {
	api    *apiClient
	from   string
	logger *zap.Logger
}

func NewResendClient(apiKey, from string, logger *zap.Logger) *ResendClient {
	return newResendClient(resendBaseURL, apiKey, from, logger)
}

func newResendClient(baseURL, apiKey, from string, logger *zap.Logger) *ResendClient {
	c := &ResendClient{from: from, logger: logger}
	if apiKey != "" {
		c.api = newAPIClient("resend", baseURL, map[string]string{"Authorization": "Bearer " + apiKey})
	}
	return c
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

func (c *ResendClient) Send(ctx context.Context, email Email) (string, error) {
	if len(email.To) == 0 {
		return "", fmt.Errorf("resend: no recipients")
	}
	if c.api == nil {
		id := dryRunID()
		c.logger.Info("resend dry-run: email not sent", zap.Strings("to", email.To), zap.String("subject", email.Subject), zap.String("email_id", id))
		return id, nil
	}

	var resp struct {
		ID string `json:"id"`
	}
	req := resendRequest{From: c.from, To: email.To, Subject: email.Subject, HTML: email.HTML, ReplyTo: email.ReplyTo}
	if err := c.api.doJSON(ctx, http.MethodPost, "/emails", req, &resp); err != nil {
		return "", fmt.Errorf("resend Send: %w", err)
	}
	return resp.ID, nil
}
