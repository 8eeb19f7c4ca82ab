package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/larkspur-kitchen/rewards/internal/http/api/render"
	"github.com/larkspur-kitchen/rewards/internal/redemption"
)

// OfferHandler lists redeemable offers.
type OfferHandler struct {
	catalog *redemption.Catalog
}

// NewOfferHandler constructs an OfferHandler.
func NewOfferHandler(catalog *redemption.Catalog) *OfferHandler {
	return &OfferHandler{catalog: catalog}
}

// List returns offers that can be redeemed now.
func (h *OfferHandler) List(c *gin.Context) {
	offers, errList := h.catalog.Available(c.Request.Context(), time.Now().UTC())
	if errList != nil {
		render.Error(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": render.Offers(offers)})
}
