// Package orderstatus validates order status transitions.
//
// Validation is pure: it never touches storage. Callers persist the new status
// and the history entry once a transition is accepted.
package orderstatus

import (
	"fmt"
	"strings"

	"github.com/larkspur-kitchen/rewards/internal/identity"
)

// Status is an order lifecycle state.
type Status string

// Order lifecycle states.
const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusReady          Status = "ready"
	StatusOutForDelivery Status = "out-for-delivery"
	StatusDelivered      Status = "delivered"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

// OrderType distinguishes fulfilment modes.
type OrderType string

// Fulfilment modes.
const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypePickup   OrderType = "pickup"
)

// transitions is the adjacency list of allowed moves.
var transitions = map[Status][]Status{
	StatusPending:        {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusPreparing, StatusCancelled},
	StatusPreparing:      {StatusReady, StatusCancelled},
	StatusReady:          {StatusOutForDelivery, StatusCompleted, StatusCancelled},
	StatusOutForDelivery: {StatusDelivered, StatusCancelled},
	StatusDelivered:      {StatusCompleted},
	StatusCompleted:      {},
	StatusCancelled:      {},
}

// roleTargets lists the states each non-admin role may move an order into.
var roleTargets = map[identity.Role][]Status{
	identity.RoleCustomer: {StatusCancelled},
	identity.RoleKitchen:  {StatusConfirmed, StatusPreparing, StatusReady},
}

// Result is the outcome of a transition check.
type Result struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ParseStatus converts a wire value into a Status. Underscores are accepted in
// place of hyphens.
func ParseStatus(raw string) (Status, error) {
	normalized := Status(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "_", "-"))
	if _, ok := transitions[normalized]; !ok {
		return "", fmt.Errorf("unknown order status %q", raw)
	}
	return normalized, nil
}

// ParseOrderType converts a wire value into an OrderType.
func ParseOrderType(raw string) (OrderType, error) {
	switch OrderType(strings.ToLower(strings.TrimSpace(raw))) {
	case OrderTypeDelivery:
		return OrderTypeDelivery, nil
	case OrderTypePickup:
		return OrderTypePickup, nil
	default:
		return "", fmt.Errorf("unknown order type %q", raw)
	}
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// NextStates returns the adjacency list for s.
func NextStates(s Status) []Status {
	next := transitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// Validate checks whether role may move an order of orderType from current to
// next. The first failing check determines the reason.
func Validate(current, next Status, orderType OrderType, role identity.Role) Result {
	if !inList(transitions[current], next) {
		return reject("Invalid status transition from '%s' to '%s'", current, next)
	}

	switch orderType {
	case OrderTypePickup:
		if next == StatusOutForDelivery || next == StatusDelivered {
			return reject("Status '%s' is not valid for pickup orders", next)
		}
	case OrderTypeDelivery:
		if next == StatusCompleted && current != StatusDelivered {
			return reject("Delivery orders must be delivered before they can be completed")
		}
	default:
		return reject("Unknown order type '%s'", orderType)
	}

	if !roleAllows(role, next) {
		return reject("Role '%s' cannot update status to '%s'", role, next)
	}

	if next == StatusCancelled {
		switch current {
		case StatusDelivered, StatusCompleted, StatusCancelled:
			return reject("Cannot cancel an order that is already '%s'", current)
		}
	}

	return Result{Valid: true}
}

// IsValidStatusTransition reports whether the move passes every check.
func IsValidStatusTransition(current, next Status, orderType OrderType, role identity.Role) bool {
	return Validate(current, next, orderType, role).Valid
}

func roleAllows(role identity.Role, next Status) bool {
	if role == identity.RoleAdmin {
		return true
	}
	allowed, ok := roleTargets[role]
	if !ok {
		return false
	}
	return inList(allowed, next)
}

func inList(list []Status, s Status) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func reject(format string, args ...any) Result {
	return Result{Valid: false, Error: fmt.Sprintf(format, args...)}
}
