package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/larkspur-kitchen/rewards/internal/http/api/render"
	"github.com/larkspur-kitchen/rewards/internal/ledger"
	"github.com/larkspur-kitchen/rewards/internal/models"
	"github.com/larkspur-kitchen/rewards/internal/redemption"
)

// RedemptionHandler exchanges points for offers.
type RedemptionHandler struct {
	service *redemption.Service
}

// NewRedemptionHandler constructs a RedemptionHandler.
func NewRedemptionHandler(service *redemption.Service) *RedemptionHandler {
	return &RedemptionHandler{service: service}
}

// redeemRequest defines the request body for Create.
type redeemRequest struct {
	OfferID uint64 `json:"offer_id"`
}

// useRequest defines the request body for Use.
type useRequest struct {
	OrderReference string `json:"order_reference"`
}

// Create redeems an offer for the caller.
func (h *RedemptionHandler) Create(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body redeemRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	res, errRedeem := h.service.Redeem(c.Request.Context(), userID, body.OfferID)
	if errRedeem != nil {
		render.Error(c, errRedeem)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"redemption":      render.Redemption(res.Redemption),
		"points_deducted": res.PointsDeducted,
		"profile":         ledger.ProfileView(res.Profile),
	})
}

// List returns the caller's redemptions, optionally filtered by status.
func (h *RedemptionHandler) List(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	status := models.RedemptionStatus(strings.ToLower(strings.TrimSpace(c.Query("status"))))
	rows, errList := h.service.List(c.Request.Context(), userID, status)
	if errList != nil {
		render.Error(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"redemptions": render.Redemptions(rows)})
}

// Use consumes an active redemption.
func (h *RedemptionHandler) Use(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body useRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	row, errUse := h.service.Use(c.Request.Context(), c.Param("id"), userID, strings.TrimSpace(body.OrderReference))
	if errUse != nil {
		render.Error(c, errUse)
		return
	}
	c.JSON(http.StatusOK, gin.H{"redemption": render.Redemption(row)})
}
