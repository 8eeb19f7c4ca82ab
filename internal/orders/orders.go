// Package orders persists order status changes validated by orderstatus.
package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/larkspur-kitchen/rewards/internal/apperr"
	dbutil "github.com/larkspur-kitchen/rewards/internal/db"
	"github.com/larkspur-kitchen/rewards/internal/identity"
	"github.com/larkspur-kitchen/rewards/internal/models"
	"github.com/larkspur-kitchen/rewards/internal/orderstatus"
	"github.com/larkspur-kitchen/rewards/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrOrderNotFound is returned for missing orders and for orders the caller may not see.
var ErrOrderNotFound = apperr.NotFound("order not found")

// Service reads orders and applies status transitions.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService constructs a Service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// StatusUpdate is the outcome of UpdateStatus. Result is always populated; Order
// is set only when the transition was persisted.
type StatusUpdate struct {
	Result orderstatus.Result
	Order  models.Order
}

// Pickup handoff rejections.
const (
	reasonPickupCodeRequired = "A pickup code is required to complete pickup orders"
	reasonPickupCodeMismatch = "Pickup code does not match"
)

// UpdateOption customizes UpdateStatus.
type UpdateOption func(*updateOptions)

type updateOptions struct {
	pickupCode string
}

// WithPickupCode supplies the code the customer presented at the counter.
func WithPickupCode(code string) UpdateOption {
	return func(o *updateOptions) { o.pickupCode = strings.TrimSpace(code) }
}

// UpdateStatus validates and persists one transition, appending a history entry
// in the same transaction. A rejected transition returns a ValidationError whose
// message is the rejection reason.
//
// Completing a pickup order is the counter handoff and requires the order's
// pickup code through WithPickupCode.
func (s *Service) UpdateStatus(ctx context.Context, actor identity.Identity, orderID, next, reason string, opts ...UpdateOption) (StatusUpdate, error) {
	var options updateOptions
	for _, opt := range opts {
		opt(&options)
	}
	if !actor.Role.Valid() {
		return StatusUpdate{}, apperr.Validation("unknown role")
	}
	target, errParse := orderstatus.ParseStatus(next)
	if errParse != nil {
		return StatusUpdate{}, apperr.Validation(errParse.Error())
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return StatusUpdate{}, apperr.Validation("order id is required")
	}

	var update StatusUpdate
	errTx := dbutil.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		update = StatusUpdate{}
		var order models.Order
		if errFind := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", orderID).
			Take(&order).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return errFind
		}
		if !visibleTo(order, actor) {
			return ErrOrderNotFound
		}

		result := orderstatus.Validate(order.Status, target, order.OrderType, actor.Role)
		update.Result = result
		if !result.Valid {
			return apperr.Validation(result.Error)
		}
		if order.OrderType == orderstatus.OrderTypePickup && target == orderstatus.StatusCompleted {
			switch {
			case options.pickupCode == "":
				update.Result = orderstatus.Result{Error: reasonPickupCodeRequired}
			case !security.CheckPickupCode(order.PickupCodeHash, options.pickupCode):
				update.Result = orderstatus.Result{Error: reasonPickupCodeMismatch}
			}
			if !update.Result.Valid {
				return apperr.Validation(update.Result.Error)
			}
		}

		now := s.now()
		res := tx.WithContext(ctx).
			Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, order.Status).
			Updates(map[string]any{"status": target, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return dbutil.ErrConcurrentUpdate
		}
		if errHistory := tx.WithContext(ctx).Create(&models.OrderStatusEvent{
			OrderID:   order.ID,
			Status:    target,
			Reason:    strings.TrimSpace(reason),
			ActorRole: actor.Role.String(),
			CreatedAt: now,
		}).Error; errHistory != nil {
			return errHistory
		}
		order.Status = target
		order.UpdatedAt = now
		update.Order = order
		return nil
	})
	if errTx != nil {
		return update, errTx
	}
	log.WithFields(log.Fields{
		"order_id": orderID,
		"status":   target,
		"role":     actor.Role.String(),
	}).Info("order status updated")
	return update, nil
}

// Get returns an order with its status history.
func (s *Service) Get(ctx context.Context, actor identity.Identity, orderID string) (models.Order, error) {
	var order models.Order
	if errFind := s.db.WithContext(ctx).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("id = ?", orderID).
		Take(&order).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.Order{}, ErrOrderNotFound
		}
		return models.Order{}, apperr.Internal("load order failed", errFind)
	}
	if !visibleTo(order, actor) {
		return models.Order{}, ErrOrderNotFound
	}
	return order, nil
}

// ListFilter narrows List.
type ListFilter struct {
	Status   string
	UserID   uint64
	Page     int
	PageSize int
}

// List returns one page of orders, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]models.Order, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Order{})
	if filter.Status != "" {
		status, errParse := orderstatus.ParseStatus(filter.Status)
		if errParse != nil {
			return nil, 0, apperr.Validation(errParse.Error())
		}
		q = q.Where("status = ?", status)
	}
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		return nil, 0, apperr.Internal("count orders failed", errCount)
	}
	var rows []models.Order
	if errFind := q.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; errFind != nil {
		return nil, 0, apperr.Internal("list orders failed", errFind)
	}
	return rows, total, nil
}

// VerifyPickup checks a customer's pickup code against a ready pickup order
// without changing it. Completion re-checks the code.
func (s *Service) VerifyPickup(ctx context.Context, orderID, code string) (bool, error) {
	var order models.Order
	if errFind := s.db.WithContext(ctx).Where("id = ?", orderID).Take(&order).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return false, ErrOrderNotFound
		}
		return false, apperr.Internal("load order failed", errFind)
	}
	if order.OrderType != orderstatus.OrderTypePickup {
		return false, apperr.Validation("pickup codes apply to pickup orders only")
	}
	if order.Status != orderstatus.StatusReady {
		return false, apperr.Conflict("order is not ready for pickup")
	}
	return security.CheckPickupCode(order.PickupCodeHash, strings.TrimSpace(code)), nil
}

// visibleTo hides other customers' orders; staff see everything.
func visibleTo(order models.Order, actor identity.Identity) bool {
	if actor.Role != identity.RoleCustomer {
		return true
	}
	return order.UserID != nil && *order.UserID == actor.UserID
}
