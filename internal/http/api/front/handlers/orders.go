package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/larkspur-kitchen/rewards/internal/apperr"
	"github.com/larkspur-kitchen/rewards/internal/http/api/render"
	"github.com/larkspur-kitchen/rewards/internal/orders"
)

// OrderHandler lets customers read and cancel their own orders.
type OrderHandler struct {
	service *orders.Service
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(service *orders.Service) *OrderHandler {
	return &OrderHandler{service: service}
}

// statusRequest defines the request body for UpdateStatus.
type statusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// Get returns one of the caller's orders with its history.
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := getIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	order, errGet := h.service.Get(c.Request.Context(), id, c.Param("id"))
	if errGet != nil {
		render.Error(c, errGet)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": render.Order(order)})
}

// UpdateStatus applies a customer-initiated transition, in practice a cancel.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := getIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body statusRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	update, errUpdate := h.service.UpdateStatus(c.Request.Context(), id, c.Param("id"), body.Status, body.Reason)
	if errUpdate != nil {
		if apperr.Is(errUpdate, apperr.KindValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": apperr.Message(errUpdate)})
			return
		}
		render.Error(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": update.Result.Valid, "order": render.Order(update.Order)})
}
