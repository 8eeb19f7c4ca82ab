// Package ingestion turns signed payment-gateway events into orders and
// point accruals exactly once per event.
package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/larkspur-kitchen/rewards/internal/apperr"
	dbutil "github.com/larkspur-kitchen/rewards/internal/db"
	"github.com/larkspur-kitchen/rewards/internal/ledger"
	"github.com/larkspur-kitchen/rewards/internal/models"
	"github.com/larkspur-kitchen/rewards/internal/orderstatus"
	"github.com/larkspur-kitchen/rewards/internal/security"
	internalsettings "github.com/larkspur-kitchen/rewards/internal/settings"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Result messages.
const (
	MessageCreated   = "order created"
	MessageReplayed  = "event already processed"
	MessageDuplicate = "payment already recorded"
	MessageSettled   = "order itemized"
	MessageIgnored   = "event type ignored"
)

// PaymentStatusPaid is the payment status of every materialized order.
const PaymentStatusPaid = "paid"

// Result is what the webhook caller receives. Replays return the original order id.
type Result struct {
	OrderID      string `json:"order_id,omitempty"`
	Message      string `json:"message"`
	Replayed     bool   `json:"replayed"`
	Ignored      bool   `json:"ignored,omitempty"`
	PointsEarned int64  `json:"points_earned"`
	PickupCode   string `json:"pickup_code,omitempty"` // Plaintext, only on the first delivery.
}

// Service processes payment events.
type Service struct {
	db        *gorm.DB
	verifier  SignatureVerifier
	directory IdentityProvider
	policy    ledger.EligibilityPolicy
	store     *ledger.Store
	now       func() time.Time
}

// NewService wires the gateway. policy nil uses the default keyword policy; store may be nil.
func NewService(db *gorm.DB, verifier SignatureVerifier, directory IdentityProvider, policy ledger.EligibilityPolicy, store *ledger.Store) *Service {
	if policy == nil {
		policy = ledger.NewKeywordPolicy()
	}
	return &Service{
		db:        db,
		verifier:  verifier,
		directory: directory,
		policy:    policy,
		store:     store,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// HandleWebhook verifies and processes one raw delivery.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (Result, error) {
	if s.verifier == nil {
		return Result{}, apperr.External("signature verifier is not configured", nil)
	}
	if errVerify := s.verifier.Verify(payload, signature, s.now()); errVerify != nil {
		return Result{}, errVerify
	}
	evt, errParse := ParseEvent(payload)
	if errParse != nil {
		return Result{}, errParse
	}
	if !Supported(evt.Type) {
		log.WithFields(log.Fields{"event_id": evt.ID, "event_type": evt.Type}).Debug("webhook: ignoring event type")
		return Result{Message: MessageIgnored, Ignored: true}, nil
	}
	payment, errNormalize := NormalizePayment(evt)
	if errNormalize != nil {
		return Result{}, errNormalize
	}
	return s.Process(ctx, payment)
}

// Process materializes payment. A payment whose event id was already processed
// returns the original order and writes nothing. A payment that is not itemized
// creates the order with its accrual pending; the first itemized event for the
// same payment reference settles it, whichever arrives first.
func (s *Service) Process(ctx context.Context, payment Payment) (Result, error) {
	if payment.EventID == "" {
		return Result{}, apperr.Validation("event id is required")
	}
	if replay, found, errReplay := findProcessed(ctx, s.db, payment.EventID); errReplay != nil {
		return Result{}, apperr.Internal("replay check failed", errReplay)
	} else if found {
		return replay, nil
	}

	var (
		userID uint64
		linked bool
	)
	if s.directory != nil && payment.Email != "" {
		id, found, errLookup := s.directory.LookupByEmail(ctx, payment.Email)
		if errLookup != nil {
			return Result{}, errLookup
		}
		userID, linked = id, found
	}

	pickupCode, errCode := security.GeneratePickupCode()
	if errCode != nil {
		return Result{}, apperr.Internal("generate pickup code failed", errCode)
	}
	pickupHash, errHash := security.HashPickupCode(pickupCode)
	if errHash != nil {
		return Result{}, apperr.Internal("hash pickup code failed", errHash)
	}

	threshold := internalsettings.Int64(internalsettings.VolunteerDiscountThresholdCentsKey, internalsettings.DefaultVolunteerDiscountThresholdCents)
	percent := internalsettings.Float64(internalsettings.VolunteerDiscountPercentKey, internalsettings.DefaultVolunteerDiscountPercent)

	var (
		res     Result
		profile *models.LoyaltyProfile
	)
	errTx := dbutil.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		res, profile = Result{}, nil
		now := s.now()

		if replay, found, errReplay := findProcessed(ctx, tx, payment.EventID); errReplay != nil {
			return errReplay
		} else if found {
			res = replay
			return nil
		}

		if payment.Reference != "" {
			var existing models.Order
			errFind := tx.WithContext(ctx).Where("payment_reference = ?", payment.Reference).Take(&existing).Error
			if errFind == nil {
				if existing.AccrualPending && payment.Itemized {
					uid, isLinked := userID, linked
					if existing.UserID != nil {
						uid, isLinked = *existing.UserID, true
					}
					settled, out, errSettle := settleOrder(ctx, tx, &existing, payment, s.policy, uid, isLinked, threshold, percent, now)
					if errSettle != nil {
						return errSettle
					}
					if settled {
						profile = out
						res = Result{OrderID: existing.ID, Message: MessageSettled, PointsEarned: existing.PointsEarned}
						return markProcessed(ctx, tx, payment, existing.ID, now)
					}
				}
				res = Result{OrderID: existing.ID, Message: MessageDuplicate, Replayed: true, PointsEarned: existing.PointsEarned}
				return markProcessed(ctx, tx, payment, existing.ID, now)
			}
			if !errors.Is(errFind, gorm.ErrRecordNotFound) {
				return errFind
			}
		}

		amounts, errPrice := priceOrder(ctx, tx, payment, s.policy, userID, linked, threshold, percent)
		if errPrice != nil {
			return errPrice
		}
		items, errItems := json.Marshal(payment.Items)
		if errItems != nil {
			return errItems
		}
		order := models.Order{
			ID:             uuid.NewString(),
			CustomerEmail:  payment.Email,
			Status:         orderstatus.StatusPending,
			OrderType:      payment.OrderType,
			PaymentStatus:  PaymentStatusPaid,
			Items:          items,
			SubtotalCents:  payment.SubtotalCents,
			EligibleCents:  amounts.eligibleCents,
			DiscountCents:  amounts.discountCents,
			TotalCents:     amounts.totalCents,
			AccrualPending: !payment.Itemized,
			PickupCodeHash: pickupHash,
			SourceEventID:  payment.EventID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if payment.Reference != "" {
			ref := payment.Reference
			order.PaymentReference = &ref
		}
		if linked {
			uid := userID
			order.UserID = &uid
			order.PointsEarned = amounts.points
		}
		if errCreate := tx.WithContext(ctx).Create(&order).Error; errCreate != nil {
			return errCreate
		}
		if errHistory := tx.WithContext(ctx).Create(&models.OrderStatusEvent{
			OrderID:   order.ID,
			Status:    orderstatus.StatusPending,
			Reason:    "payment received",
			ActorRole: "system",
			CreatedAt: now,
		}).Error; errHistory != nil {
			return errHistory
		}

		if linked && amounts.points > 0 {
			out, errApply := ledger.Apply(ctx, tx, ledger.PurchaseMutation(userID, amounts.points, now, map[string]any{
				"event_id": payment.EventID,
				"order_id": order.ID,
			}))
			if errApply != nil {
				return errApply
			}
			profile = &out.Profile
		}

		res = Result{OrderID: order.ID, Message: MessageCreated, PointsEarned: order.PointsEarned, PickupCode: pickupCode}
		return markProcessed(ctx, tx, payment, order.ID, now)
	})
	if errTx != nil {
		return Result{}, errTx
	}
	if profile != nil {
		s.store.Notify(ctx, *profile)
	}
	log.WithFields(log.Fields{
		"event_id": payment.EventID,
		"order_id": res.OrderID,
		"points":   res.PointsEarned,
		"replayed": res.Replayed,
		"linked":   linked,
	}).Info("webhook: payment processed")
	return res, nil
}

// orderAmounts is the money side of an order as derived from one payment.
type orderAmounts struct {
	eligibleCents int64
	discountCents int64
	totalCents    int64
	points        int64
}

// priceOrder derives eligibility, the volunteer discount and the accrual. A
// payment that is not itemized earns nothing until an itemized event settles it.
func priceOrder(ctx context.Context, tx *gorm.DB, payment Payment, policy ledger.EligibilityPolicy, userID uint64, linked bool, threshold int64, percent float64) (orderAmounts, error) {
	out := orderAmounts{discountCents: payment.DiscountCents, totalCents: payment.TotalCents}
	if !payment.Itemized {
		return out, nil
	}
	eligible := ledger.EligibleAmount(payment.SubtotalCents, payment.Items, policy)
	out.eligibleCents = ledger.Cents(eligible)
	out.points = ledger.PointsForAmount(eligible)
	if linked {
		current, found, errLoad := ledger.LockProfile(ctx, tx, userID)
		if errLoad != nil {
			return orderAmounts{}, errLoad
		}
		if found && current.Tier == models.TierVolunteer && payment.DiscountCents == 0 && out.eligibleCents > threshold {
			out.discountCents += ledger.Cents(eligible.Mul(decimal.NewFromFloat(percent)).Div(decimal.NewFromInt(100)))
		}
	}
	out.totalCents = payment.TotalCents - (out.discountCents - payment.DiscountCents)
	if out.totalCents < 0 {
		out.totalCents = 0
	}
	return out, nil
}

// settleOrder fills a pending order from an itemized payment and accrues its
// points. It reports false when another delivery settled the order first.
func settleOrder(ctx context.Context, tx *gorm.DB, order *models.Order, payment Payment, policy ledger.EligibilityPolicy, userID uint64, linked bool, threshold int64, percent float64, now time.Time) (bool, *models.LoyaltyProfile, error) {
	amounts, errPrice := priceOrder(ctx, tx, payment, policy, userID, linked, threshold, percent)
	if errPrice != nil {
		return false, nil, errPrice
	}
	items, errItems := json.Marshal(payment.Items)
	if errItems != nil {
		return false, nil, errItems
	}
	updates := map[string]any{
		"items":           items,
		"subtotal_cents":  payment.SubtotalCents,
		"eligible_cents":  amounts.eligibleCents,
		"discount_cents":  amounts.discountCents,
		"total_cents":     amounts.totalCents,
		"points_earned":   int64(0),
		"accrual_pending": false,
		"updated_at":      now,
	}
	if linked {
		updates["user_id"] = userID
		updates["points_earned"] = amounts.points
	}
	if order.CustomerEmail == "" {
		updates["customer_email"] = payment.Email
	}
	if order.Status == orderstatus.StatusPending {
		updates["order_type"] = payment.OrderType
	}
	result := tx.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND accrual_pending = ?", order.ID, true).
		Updates(updates)
	if result.Error != nil {
		return false, nil, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil, nil
	}
	var reloaded models.Order
	if errReload := tx.WithContext(ctx).Take(&reloaded, "id = ?", order.ID).Error; errReload != nil {
		return false, nil, errReload
	}
	*order = reloaded
	if !linked || amounts.points <= 0 {
		return true, nil, nil
	}
	out, errApply := ledger.Apply(ctx, tx, ledger.PurchaseMutation(userID, amounts.points, now, map[string]any{
		"event_id": payment.EventID,
		"order_id": order.ID,
	}))
	if errApply != nil {
		return false, nil, errApply
	}
	return true, &out.Profile, nil
}

func findProcessed(ctx context.Context, conn *gorm.DB, eventID string) (Result, bool, error) {
	var marker models.ProcessedEvent
	errFind := conn.WithContext(ctx).Where("external_event_id = ?", eventID).Take(&marker).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return Result{}, false, nil
		}
		return Result{}, false, errFind
	}
	return Result{OrderID: marker.OrderID, Message: MessageReplayed, Replayed: true}, true, nil
}

func markProcessed(ctx context.Context, tx *gorm.DB, payment Payment, orderID string, now time.Time) error {
	return tx.WithContext(ctx).Create(&models.ProcessedEvent{
		ExternalEventID: payment.EventID,
		EventType:       payment.EventType,
		OrderID:         orderID,
		ProcessedAt:     now,
	}).Error
}
