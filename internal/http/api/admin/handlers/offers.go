package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/larkspur-kitchen/rewards/internal/http/api/render"
	"github.com/larkspur-kitchen/rewards/internal/redemption"
)

// OfferHandler manages the reward catalog.
type OfferHandler struct {
	catalog *redemption.Catalog
}

// NewOfferHandler constructs an OfferHandler.
func NewOfferHandler(catalog *redemption.Catalog) *OfferHandler {
	return &OfferHandler{catalog: catalog}
}

// List returns every offer, including inactive ones.
func (h *OfferHandler) List(c *gin.Context) {
	rows, errList := h.catalog.All(c.Request.Context())
	if errList != nil {
		render.Error(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": render.Offers(rows)})
}

// Create adds an offer.
func (h *OfferHandler) Create(c *gin.Context) {
	var body redemption.OfferInput
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	offer, errCreate := h.catalog.Create(c.Request.Context(), body)
	if errCreate != nil {
		render.Error(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"offer": render.Offer(offer)})
}

// Update edits an offer. Omitted fields are left unchanged.
func (h *OfferHandler) Update(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body redemption.OfferInput
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	offer, errUpdate := h.catalog.Update(c.Request.Context(), id, body)
	if errUpdate != nil {
		render.Error(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offer": render.Offer(offer)})
}
