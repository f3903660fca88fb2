package controllers

import (
	"net/http"

	"agent-portal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AdminController struct {
	authService      AuthService
	agentService     AgentService
	leadService      LeadService
	dashboardService DashboardService
	logger           *zap.Logger
}

func NewAdminController(
	authService AuthService,
	agentService AgentService,
	leadService LeadService,
	dashboardService DashboardService,
	logger *zap.Logger,
) *AdminController {
	return &AdminController{
		authService:      authService,
		agentService:     agentService,
		leadService:      leadService,
		dashboardService: dashboardService,
		logger:           logger,
	}
}

func (ac *AdminController) ListUsers(c *gin.Context) {
	offset, limit := parsePaginationParams(c)

	users, total, err := ac.authService.ListUsers(c.Request.Context(), offset, limit)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users":  users,
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}

func (ac *AdminController) SetUserRole(c *gin.Context) {
	var req models.RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	user, err := ac.authService.SetRole(c.Request.Context(), c.Param("id"), req.Role)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (ac *AdminController) ListAgents(c *gin.Context) {
	agents, err := ac.agentService.ListAll(c.Request.Context(), c.Query("status"), c.Query("plan"))
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": agents})
}

func (ac *AdminController) SetAgentStatus(c *gin.Context) {
	var req models.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	agent, err := ac.agentService.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

func (ac *AdminController) ProvisionAgent(c *gin.Context) {
	agent, err := ac.agentService.Provision(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusAccepted, agent)
}

func (ac *AdminController) ListLeads(c *gin.Context) {
	offset, limit := parsePaginationParams(c)

	leads, total, err := ac.leadService.ListAll(c.Request.Context(), c.Query("status"), offset, limit)
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

func (ac *AdminController) Stats(c *gin.Context) {
	stats, err := ac.dashboardService.AdminStats(c.Request.Context())
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
