package controllers

import (
	"net/http"

	"agent-portal/middleware"
	"agent-portal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LeadController struct {
	leadService LeadService
	logger      *zap.Logger
}

func NewLeadController(leadService LeadService, logger *zap.Logger) *LeadController {
	return &LeadController{leadService: leadService, logger: logger}
}

// Capture is the public contact form endpoint.
func (lc *LeadController) Capture(c *gin.Context) {
	var req models.LeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	lead, err := lc.leadService.Capture(c.Request.Context(), req)
	if err != nil {
		respondError(c, lc.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": lead.ID, "status": lead.Status})
}

func (lc *LeadController) Get(c *gin.Context) {
	lead, err := lc.leadService.Get(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, lc.logger, err)
		return
	}
	c.JSON(http.StatusOK, lead)
}

func (lc *LeadController) UpdateStatus(c *gin.Context) {
	var req models.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	lead, err := lc.leadService.UpdateStatus(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, lc.logger, err)
		return
	}
	c.JSON(http.StatusOK, lead)
}
