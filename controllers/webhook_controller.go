package controllers

import (
	"crypto/subtle"
	"net/http"

	"agent-portal/logger"
	"agent-portal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const N8NTokenHeader = "X-N8N-Token"

// WebhookController receives callbacks from the automation and CRM providers.
type WebhookController struct {
	agentService  AgentService
	leadService   LeadService
	n8nToken      string
	chatwootToken string
	logger        *zap.Logger
}

func NewWebhookController(agentService AgentService, leadService LeadService, n8nToken, chatwootToken string, logger *zap.Logger) *WebhookController {
	return &WebhookController{
		agentService:  agentService,
		leadService:   leadService,
		n8nToken:      n8nToken,
		chatwootToken: chatwootToken,
		logger:        logger,
	}
}

// N8NCallback is refused outright when no callback token is configured.
func (wc *WebhookController) N8NCallback(c *gin.Context) {
	if !tokenMatches(wc.n8nToken, c.GetHeader(N8NTokenHeader)) {
		logger.WithRequest(c, wc.logger).Warn("Rejected N8N callback with invalid token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid callback token"})
		return
	}

	var cb models.N8NCallback
	if err := c.ShouldBindJSON(&cb); err != nil {
		invalidRequest(c, err)
		return
	}

	agent, err := wc.agentService.ApplyCallback(c.Request.Context(), cb)
	if err != nil {
		respondError(c, wc.logger, err)
		return
	}

	wc.logger.Info("N8N callback applied",
		zap.String("agent_id", agent.ID),
		zap.String("status", agent.Status),
		zap.String("execution_id", cb.ExecutionID),
	)
	c.JSON(http.StatusOK, gin.H{"status": "received", "agent_status": agent.Status})
}

func (wc *WebhookController) Chatwoot(c *gin.Context) {
	if wc.chatwootToken != "" && !tokenMatches(wc.chatwootToken, c.Query("token")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook token"})
		return
	}

	var hook models.ChatwootWebhook
	if err := c.ShouldBindJSON(&hook); err != nil {
		invalidRequest(c, err)
		return
	}

	lead, err := wc.leadService.HandleChatwootEvent(c.Request.Context(), hook)
	if err != nil {
		respondError(c, wc.logger, err)
		return
	}

	resp := gin.H{"status": "received"}
	if lead != nil {
		resp["lead_id"] = lead.ID
	}
	c.JSON(http.StatusOK, resp)
}

func tokenMatches(expected, got string) bool {
	if expected == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}
