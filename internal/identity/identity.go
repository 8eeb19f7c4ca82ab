// Package identity models the verified caller supplied by the auth collaborator.
package identity

import (
	"context"
	"fmt"
	"strings"
)

// Role is the closed set of caller roles.
type Role uint8

// Role constants. The zero value is not a valid role.
const (
	RoleCustomer Role = iota + 1
	RoleKitchen
	RoleAdmin
)

// String returns the wire name of the role.
func (r Role) String() string {
	switch r {
	case RoleCustomer:
		return "customer"
	case RoleKitchen:
		return "kitchen"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	return r >= RoleCustomer && r <= RoleAdmin
}

// ParseRole converts a wire name into a Role.
func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "customer":
		return RoleCustomer, nil
	case "kitchen":
		return RoleKitchen, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, fmt.Errorf("unknown role %q", raw)
	}
}

// Identity is a verified caller.
type Identity struct {
	UserID uint64
	Role   Role
}

// Verifier turns a bearer credential into a verified identity.
type Verifier interface {
	Verify(ctx context.Context, credential string) (Identity, error)
}

type contextKey struct{}

// WithIdentity stores id on ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored on ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
