package integrations

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

const (
	WorkflowAgentProvision = "agent-provision"
	WorkflowAgentUpdate    = "agent-update"
	WorkflowAgentPause     = "agent-pause"
	WorkflowAgentCancel    = "agent-cancel"
	WorkflowLeadCreated    = "lead-created"
)

// WorkflowTrigger starts N8N workflows through their webhook nodes.
type WorkflowTrigger interface {
	TriggerWorkflow(ctx context.Context, workflow string, payload any) (string, error)
}

type N8NClient struct {
	api    *apiClient
	logger *zap.Logger
}

// NewN8NClient returns a client posting to {webhookURL}/{workflow}. An empty
// webhookURL puts the client in dry-run mode.
func NewN8NClient(webhookURL string, logger *zap.Logger) *N8NClient {
	c := &N8NClient{logger: logger}
	if webhookURL != "" {
		c.api = newAPIClient("n8n", webhookURL, nil)
	}
	return c
}

type n8nResponse struct {
	ExecutionID    flexibleID `json:"executionId"`
	ExecutionIDAlt flexibleID `json:"execution_id"`
}

func (c *N8NClient) TriggerWorkflow(ctx context.Context, workflow string, payload any) (string, error) {
	if c.api == nil {
		id := dryRunID()
		c.logger.Info("n8n dry-run: workflow not sent", zap.String("workflow", workflow), zap.String("execution_id", id), zap.Any("payload", payload))
		return id, nil
	}

	var resp n8nResponse
	if err := c.api.doJSON(ctx, http.MethodPost, "/"+workflow, payload, &resp); err != nil {
		return "", err
	}
	if resp.ExecutionID != "" {
		return string(resp.ExecutionID), nil
	}
	return string(resp.ExecutionIDAlt), nil
}
