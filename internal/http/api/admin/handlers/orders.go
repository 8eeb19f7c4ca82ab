package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/larkspur-kitchen/rewards/internal/apperr"
	"github.com/larkspur-kitchen/rewards/internal/http/api/render"
	"github.com/larkspur-kitchen/rewards/internal/orders"
)

// OrderHandler drives the kitchen workflow.
type OrderHandler struct {
	service *orders.Service
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(service *orders.Service) *OrderHandler {
	return &OrderHandler{service: service}
}

// statusRequest defines the request body for UpdateStatus.
type statusRequest struct {
	Status     string `json:"status"`
	Reason     string `json:"reason"`
	PickupCode string `json:"pickup_code"`
}

// pickupRequest defines the request body for VerifyPickup.
type pickupRequest struct {
	Code string `json:"code"`
}

// List returns one page of orders filtered by status and user.
func (h *OrderHandler) List(c *gin.Context) {
	page, pageSize := parsePaging(c)
	filter := orders.ListFilter{
		Status:   strings.TrimSpace(c.Query("status")),
		Page:     page,
		PageSize: pageSize,
	}
	if raw := strings.TrimSpace(c.Query("user_id")); raw != "" {
		userID, errParse := strconv.ParseUint(raw, 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		filter.UserID = userID
	}
	rows, total, errList := h.service.List(c.Request.Context(), filter)
	if errList != nil {
		render.Error(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": render.Orders(rows), "total": total})
}

// Get returns one order with its history.
func (h *OrderHandler) Get(c *gin.Context) {
	actor, ok := getIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	order, errGet := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if errGet != nil {
		render.Error(c, errGet)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": render.Order(order)})
}

// UpdateStatus validates and applies one transition.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	actor, ok := getIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body statusRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	update, errUpdate := h.service.UpdateStatus(c.Request.Context(), actor, c.Param("id"), body.Status, body.Reason, orders.WithPickupCode(body.PickupCode))
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

// VerifyPickup checks the code a customer presents at the counter.
func (h *OrderHandler) VerifyPickup(c *gin.Context) {
	var body pickupRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || strings.TrimSpace(body.Code) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}
	match, errVerify := h.service.VerifyPickup(c.Request.Context(), c.Param("id"), body.Code)
	if errVerify != nil {
		render.Error(c, errVerify)
		return
	}
	c.JSON(http.StatusOK, gin.H{"match": match})
}
