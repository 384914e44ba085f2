package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"saastracker-backend/internal/core"
	"saastracker-backend/internal/middleware"
	"saastracker-backend/internal/models"
)

// maxWebhookBytes bounds the Stripe webhook body.
const maxWebhookBytes = 64 << 10

// BillingHandler serves the subscription RPCs and the Stripe webhook.
type BillingHandler struct {
	billingService core.BillingService
	log            *zap.Logger
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(bs core.BillingService, log *zap.Logger) *BillingHandler {
	return &BillingHandler{billingService: bs, log: log}
}

// Register adds subscriptionCreate and subscriptionCancel to r.
func (h *BillingHandler) Register(r *Callables) {
	r.Handle("subscriptionCreate", h.CreateSubscription)
	r.Handle("subscriptionCancel", h.CancelSubscription)
}

// CreateSubscription handles subscriptionCreate for the authenticated caller.
func (h *BillingHandler) CreateSubscription(c *gin.Context, data json.RawMessage) (interface{}, error) {
	uid := middleware.UserID(c)
	if uid == "" {
		return nil, core.ErrUnauthenticated
	}
	var req models.CreateSubscriptionRequest
	if err := decodeData(data, &req); err != nil {
		return nil, err
	}
	res, err := h.billingService.CreateSubscription(c.Request.Context(), uid, req.PriceID)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CancelSubscription handles subscriptionCancel for the authenticated caller.
func (h *BillingHandler) CancelSubscription(c *gin.Context, _ json.RawMessage) (interface{}, error) {
	if err := h.billingService.CancelSubscription(c.Request.Context(), middleware.UserID(c)); err != nil {
		return nil, err
	}
	return SuccessResult{Success: true}, nil
}

// HandleStripeWebhook handles POST /billing/webhooks/stripe. Stripe authenticates the call
// through the Stripe-Signature header, which the payment provider verifies.
func (h *BillingHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "Webhook body too large"})
		return
	}

	if err := h.billingService.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		code, _ := callableStatus(core.KindOf(err))
		if code == http.StatusInternalServerError {
			h.log.Error("Stripe webhook failed", zap.Error(err))
		} else {
			h.log.Warn("Stripe webhook rejected", zap.Error(err))
		}
		c.JSON(code, ErrorResponse{Error: core.MessageOf(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
