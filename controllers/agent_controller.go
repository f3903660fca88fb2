package controllers

import (
	"net/http"

	"agent-portal/middleware"
	"agent-portal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AgentController struct {
	agentService AgentService
	leadService  LeadService
	logger       *zap.Logger
}

func NewAgentController(agentService AgentService, leadService LeadService, logger *zap.Logger) *AgentController {
	return &AgentController{agentService: agentService, leadService: leadService, logger: logger}
}

func (ac *AgentController) List(c *gin.Context) {
	agents, err := ac.agentService.List(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": agents})
}

func (ac *AgentController) Create(c *gin.Context) {
	var req models.CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	agent, err := ac.agentService.Create(c.Request.Context(), c.GetString(middleware.ContextUserID), req)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusCreated, agent)
}

func (ac *AgentController) Get(c *gin.Context) {
	agent, err := ac.agentService.Get(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

func (ac *AgentController) Update(c *gin.Context) {
	var req models.UpdateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	agent, err := ac.agentService.Update(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

func (ac *AgentController) Pause(c *gin.Context) {
	agent, err := ac.agentService.Pause(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

func (ac *AgentController) Resume(c *gin.Context) {
	agent, err := ac.agentService.Resume(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

// Cancel backs DELETE /agents/:id. The record is kept with status cancelled.
func (ac *AgentController) Cancel(c *gin.Context) {
	agent, err := ac.agentService.Cancel(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

func (ac *AgentController) Leads(c *gin.Context) {
	offset, limit := parsePaginationParams(c)

	leads, total, err := ac.leadService.ListForAgent(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), offset, limit)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"leads":  leads,
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}
