// Package webhooks registers the payment gateway callback.
package webhooks

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/larkspur-kitchen/rewards/internal/http/api/render"
	"github.com/larkspur-kitchen/rewards/internal/ingestion"
	log "github.com/sirupsen/logrus"
)

// maxPayloadBytes bounds the webhook body.
const maxPayloadBytes = 1 << 20

// RegisterWebhookRoutes registers POST /v0/webhooks/payments.
func RegisterWebhookRoutes(r *gin.Engine, service *ingestion.Service) {
	if r == nil || service == nil {
		return
	}
	h := &paymentHandler{service: service}
	r.POST("/v0/webhooks/payments", h.Receive)
}

type paymentHandler struct {
	service *ingestion.Service
}

// Receive verifies and processes one payment event. The body is read raw so the
// signature covers the exact bytes the gateway sent.
func (h *paymentHandler) Receive(c *gin.Context) {
	payload, errRead := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes+1))
	if errRead != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body failed"})
		return
	}
	if len(payload) > maxPayloadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
		return
	}

	res, errHandle := h.service.HandleWebhook(c.Request.Context(), payload, c.GetHeader(ingestion.SignatureHeader))
	if errHandle != nil {
		log.WithError(errHandle).Warn("payment webhook rejected")
		render.Error(c, errHandle)
		return
	}
	c.JSON(http.StatusOK, res)
}
