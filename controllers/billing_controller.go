package controllers

import (
	"net/http"

	"agent-portal/middleware"
	"agent-portal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxWebhookBodyBytes matches the payload ceiling Stripe documents for webhooks.
const maxWebhookBodyBytes = int64(65536)

type BillingController struct {
	billingService BillingService
	logger         *zap.Logger
}

func NewBillingController(billingService BillingService, logger *zap.Logger) *BillingController {
	return &BillingController{billingService: billingService, logger: logger}
}

func (bc *BillingController) CreatePaymentIntent(c *gin.Context) {
	var req models.BillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	res, err := bc.billingService.CreatePaymentIntent(c.Request.Context(), c.GetString(middleware.ContextUserID), req.AgentID)
	if err != nil {
		respondError(c, bc.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (bc *BillingController) CreateSubscription(c *gin.Context) {
	var req models.BillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	res, err := bc.billingService.CreateSubscription(c.Request.Context(), c.GetString(middleware.ContextUserID), req.AgentID)
	if err != nil {
		respondError(c, bc.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (bc *BillingController) ListSubscriptions(c *gin.Context) {
	subs, err := bc.billingService.ListSubscriptions(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		respondError(c, bc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
}

func (bc *BillingController) CancelSubscription(c *gin.Context) {
	sub, err := bc.billingService.CancelSubscription(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, bc.logger, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (bc *BillingController) ListPayments(c *gin.Context) {
	payments, err := bc.billingService.ListPayments(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		respondError(c, bc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// StripeWebhook verifies the signature over the raw body before anything is decoded.
func (bc *BillingController) StripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	if err := bc.billingService.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		respondError(c, bc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
