// Package render holds the JSON response shapes shared by the front and admin APIs.
package render

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/larkspur-kitchen/rewards/internal/apperr"
	"github.com/larkspur-kitchen/rewards/internal/models"
	log "github.com/sirupsen/logrus"
)

// Error writes err as {"error": message} with the status of its kind.
// Internal errors are logged with their cause and rendered without it.
func Error(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("request failed")
	}
	c.JSON(status, gin.H{"error": apperr.Message(err)})
}

// OrderItemDTO is one order line.
type OrderItemDTO struct {
	Label       string `json:"label"`
	Quantity    int64  `json:"quantity"`
	AmountCents int64  `json:"amount_cents"`
}

// StatusEventDTO is one order history entry.
type StatusEventDTO struct {
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	ActorRole string    `json:"actor_role"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderDTO is the API shape of an order. The pickup code hash never leaves the server.
type OrderDTO struct {
	ID             string           `json:"id"`
	UserID         *uint64          `json:"user_id"`
	CustomerEmail  string           `json:"customer_email"`
	Status         string           `json:"status"`
	OrderType      string           `json:"order_type"`
	PaymentStatus  string           `json:"payment_status"`
	Items          []OrderItemDTO   `json:"items"`
	SubtotalCents  int64            `json:"subtotal_cents"`
	EligibleCents  int64            `json:"eligible_cents"`
	DiscountCents  int64            `json:"discount_cents"`
	TotalCents     int64            `json:"total_cents"`
	PointsEarned   int64            `json:"points_earned"`
	AccrualPending bool             `json:"accrual_pending"`
	History        []StatusEventDTO `json:"history,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Order converts an order row.
func Order(o models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0)
	for _, it := range o.LineItems() {
		items = append(items, OrderItemDTO{Label: it.Label, Quantity: it.Quantity, AmountCents: it.AmountCents})
	}
	dto := OrderDTO{
		ID:             o.ID,
		UserID:         o.UserID,
		CustomerEmail:  o.CustomerEmail,
		Status:         string(o.Status),
		OrderType:      string(o.OrderType),
		PaymentStatus:  o.PaymentStatus,
		Items:          items,
		SubtotalCents:  o.SubtotalCents,
		EligibleCents:  o.EligibleCents,
		DiscountCents:  o.DiscountCents,
		TotalCents:     o.TotalCents,
		PointsEarned:   o.PointsEarned,
		AccrualPending: o.AccrualPending,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	for _, ev := range o.StatusHistory {
		dto.History = append(dto.History, StatusEventDTO{
			Status:    string(ev.Status),
			Reason:    ev.Reason,
			ActorRole: ev.ActorRole,
			CreatedAt: ev.CreatedAt,
		})
	}
	return dto
}

// Orders converts a page of orders.
func Orders(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, Order(row))
	}
	return out
}

// OfferDTO is the API shape of a reward offer.
type OfferDTO struct {
	ID                  uint64     `json:"id"`
	Name                string     `json:"name"`
	Description         string     `json:"description"`
	PointsCost          int64      `json:"points_cost"`
	IsActive            bool       `json:"is_active"`
	ValidFrom           *time.Time `json:"valid_from"`
	ValidUntil          *time.Time `json:"valid_until"`
	MaxRedemptions      int64      `json:"max_redemptions"`
	CurrentRedemptions  int64      `json:"current_redemptions"`
	CogsValueCents      int64      `json:"cogs_value_cents"`
	RedemptionValidDays int        `json:"redemption_valid_days"`
}

// Offer converts an offer row.
func Offer(o models.RewardOffer) OfferDTO {
	return OfferDTO{
		ID:                  o.ID,
		Name:                o.Name,
		Description:         o.Description,
		PointsCost:          o.PointsCost,
		IsActive:            o.IsActive,
		ValidFrom:           o.ValidFrom,
		ValidUntil:          o.ValidUntil,
		MaxRedemptions:      o.MaxRedemptions,
		CurrentRedemptions:  o.CurrentRedemptions,
		CogsValueCents:      o.CogsValueCents,
		RedemptionValidDays: o.RedemptionValidDays,
	}
}

// Offers converts a list of offers.
func Offers(rows []models.RewardOffer) []OfferDTO {
	out := make([]OfferDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, Offer(row))
	}
	return out
}

// RedemptionDTO is the API shape of a redemption.
type RedemptionDTO struct {
	ID             string     `json:"id"`
	OfferID        uint64     `json:"offer_id"`
	OfferName      string     `json:"offer_name,omitempty"`
	PointsUsed     int64      `json:"points_used"`
	Status         string     `json:"status"`
	RedeemedAt     time.Time  `json:"redeemed_at"`
	ExpiresAt      *time.Time `json:"expires_at"`
	UsedAt         *time.Time `json:"used_at"`
	OrderReference string     `json:"order_reference,omitempty"`
}

// Redemption converts a redemption row.
func Redemption(r models.Redemption) RedemptionDTO {
	return RedemptionDTO{
		ID:             r.ID,
		OfferID:        r.OfferID,
		OfferName:      r.Offer.Name,
		PointsUsed:     r.PointsUsed,
		Status:         string(r.Status),
		RedeemedAt:     r.RedeemedAt,
		ExpiresAt:      r.ExpiresAt,
		UsedAt:         r.UsedAt,
		OrderReference: r.OrderReference,
	}
}

// Redemptions converts a list of redemptions.
func Redemptions(rows []models.Redemption) []RedemptionDTO {
	out := make([]RedemptionDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, Redemption(row))
	}
	return out
}

// EntryDTO is the API shape of a ledger entry.
type EntryDTO struct {
	ID           uint64         `json:"id"`
	Type         string         `json:"type"`
	Points       int64          `json:"points"`
	BalanceAfter int64          `json:"balance_after"`
	Description  string         `json:"description"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	ExpiresAt    *time.Time     `json:"expires_at,omitempty"`
}

// Entries converts ledger entries.
func Entries(rows []models.PointsTransaction) []EntryDTO {
	out := make([]EntryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, EntryDTO{
			ID:           row.ID,
			Type:         string(row.Type),
			Points:       row.Points,
			BalanceAfter: row.BalanceAfter,
			Description:  row.Description,
			Metadata:     row.Metadata,
			CreatedAt:    row.CreatedAt,
			ExpiresAt:    row.ExpiresAt,
		})
	}
	return out
}
