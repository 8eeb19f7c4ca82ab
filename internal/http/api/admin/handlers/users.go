package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/larkspur-kitchen/rewards/internal/http/api/render"
	"github.com/larkspur-kitchen/rewards/internal/ledger"
	"github.com/larkspur-kitchen/rewards/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// UserHandler exposes loyalty account administration.
type UserHandler struct {
	db    *gorm.DB
	store *ledger.Store
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB, store *ledger.Store) *UserHandler {
	return &UserHandler{db: db, store: store}
}

// adjustRequest defines the request body for Adjust.
type adjustRequest struct {
	Points int64  `json:"points"`
	Reason string `json:"reason"`
}

// tierRequest defines the request body for SetTier.
type tierRequest struct {
	Tier string `json:"tier"`
}

// canSpinRequest defines the request body for SetCanSpin.
type canSpinRequest struct {
	CanSpin *bool `json:"can_spin"`
}

// Profile returns a user's profile.
func (h *UserHandler) Profile(c *gin.Context) {
	userID, ok := parseUintParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	profile, errGet := h.store.Get(c.Request.Context(), userID)
	if errGet != nil {
		render.Error(c, errGet)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": ledger.ProfileView(profile)})
}

// Ledger returns one page of a user's ledger.
func (h *UserHandler) Ledger(c *gin.Context) {
	userID, ok := parseUintParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	page, pageSize := parsePaging(c)
	entries, total, errList := h.store.History(c.Request.Context(), userID, page, pageSize)
	if errList != nil {
		render.Error(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": render.Entries(entries), "total": total})
}

// Audit compares the cached balance with the ledger sum.
func (h *UserHandler) Audit(c *gin.Context) {
	userID, ok := parseUintParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	cached, ledgerSum, errAudit := ledger.Audit(c.Request.Context(), h.db, userID)
	if errAudit != nil {
		render.Error(c, errAudit)
		return
	}
	if cached != ledgerSum {
		log.WithFields(log.Fields{
			"user_id":    userID,
			"cached":     cached,
			"ledger_sum": ledgerSum,
		}).Warn("loyalty balance drift detected")
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":        userID,
		"current_points": cached,
		"ledger_sum":     ledgerSum,
		"consistent":     cached == ledgerSum,
	})
}

// Adjust credits or debits points with a recorded reason.
func (h *UserHandler) Adjust(c *gin.Context) {
	userID, ok := parseUintParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body adjustRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	outcome, errAdjust := h.store.Adjust(c.Request.Context(), userID, body.Points, strings.TrimSpace(body.Reason))
	if errAdjust != nil {
		render.Error(c, errAdjust)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profile": ledger.ProfileView(outcome.Profile),
		"entry":   render.Entries([]models.PointsTransaction{outcome.Entry})[0],
	})
}

// SetTier changes a user's loyalty tier.
func (h *UserHandler) SetTier(c *gin.Context) {
	userID, ok := parseUintParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body tierRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	tier := models.Tier(strings.ToLower(strings.TrimSpace(body.Tier)))
	if !tier.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tier"})
		return
	}
	profile, errSet := h.store.SetTier(c.Request.Context(), userID, tier)
	if errSet != nil {
		render.Error(c, errSet)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": ledger.ProfileView(profile)})
}

// SetCanSpin enables or disables the spin wheel for a user.
func (h *UserHandler) SetCanSpin(c *gin.Context) {
	userID, ok := parseUintParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body canSpinRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.CanSpin == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "can_spin is required"})
		return
	}
	profile, errSet := h.store.SetCanSpin(c.Request.Context(), userID, *body.CanSpin)
	if errSet != nil {
		render.Error(c, errSet)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": ledger.ProfileView(profile)})
}
