package identity

import (
	"context"
	"testing"
)

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"customer": RoleCustomer,
		" Kitchen ": RoleKitchen,
		"ADMIN":    RoleAdmin,
	}
	for raw, want := range cases {
		got, err := ParseRole(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s, got %s", raw, want, got)
		}
	}
	if _, err := ParseRole("manager"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
	if Role(0).Valid() {
		t.Fatalf("zero role must be invalid")
	}
}

func TestIdentityContextRoundTrip(t *testing.T) {
	ctx := WithIdentity(context.Background(), Identity{UserID: 7, Role: RoleKitchen})
	id, ok := FromContext(ctx)
	if !ok || id.UserID != 7 || id.Role != RoleKitchen {
		t.Fatalf("unexpected identity %+v (ok=%v)", id, ok)
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("expected no identity on empty context")
	}
}
