package controllers

import (
	"context"
	"net/http"
	"time"

	"agent-portal/middleware"
	"agent-portal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DashboardController struct {
	dashboardService DashboardService
	logger           *zap.Logger
}

func NewDashboardController(dashboardService DashboardService, logger *zap.Logger) *DashboardController {
	return &DashboardController{dashboardService: dashboardService, logger: logger}
}

func (dc *DashboardController) Summary(c *gin.Context) {
	summary, err := dc.dashboardService.ClientSummary(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		respondError(c, dc.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthController serves the unauthenticated status and catalogue endpoints.
type HealthController struct {
	store    Pinger
	priceIDs map[string]string
	currency string
	logger   *zap.Logger
}

func NewHealthController(store Pinger, priceIDs map[string]string, currency string, logger *zap.Logger) *HealthController {
	return &HealthController{store: store, priceIDs: priceIDs, currency: currency, logger: logger}
}

func (hc *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := hc.store.Ping(ctx); err != nil {
		hc.logger.Warn("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "redis": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "redis": "up"})
}

func (hc *HealthController) Plans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plans": models.Plans(hc.priceIDs, hc.currency)})
}
