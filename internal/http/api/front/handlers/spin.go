package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/larkspur-kitchen/rewards/internal/http/api/render"
	"github.com/larkspur-kitchen/rewards/internal/spin"
)

// SpinHandler spins the reward wheel.
type SpinHandler struct {
	service *spin.Service
}

// NewSpinHandler constructs a SpinHandler.
func NewSpinHandler(service *spin.Service) *SpinHandler {
	return &SpinHandler{service: service}
}

// Spin debits the spin cost and credits the drawn segment.
func (h *SpinHandler) Spin(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	res, errSpin := h.service.Spin(c.Request.Context(), userID)
	if errSpin != nil {
		render.Error(c, errSpin)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"points":         res.Points,
		"is_jackpot":     res.IsJackpot,
		"cost":           res.Cost,
		"current_points": res.Profile.CurrentPoints,
	})
}
