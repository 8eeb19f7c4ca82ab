package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/larkspur-kitchen/rewards/internal/identity"
)

func TestJWTVerifierRoundTrip(t *testing.T) {
	token, err := GenerateToken("s3cret", 42, identity.RoleKitchen, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	id, err := NewJWTVerifier("s3cret").Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != 42 || id.Role != identity.RoleKitchen {
		t.Fatalf("unexpected identity %+v", id)
	}
	if _, err := NewJWTVerifier("other").Verify(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token with wrong secret, got %v", err)
	}
}

func TestJWTVerifierRejectsExpired(t *testing.T) {
	token, err := GenerateToken("s3cret", 1, identity.RoleCustomer, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewJWTVerifier("s3cret").Verify(context.Background(), token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected expired token, got %v", err)
	}
	if _, err := GenerateToken("s3cret", 1, identity.Role(0), time.Hour); err == nil {
		t.Fatalf("expected invalid role to be rejected")
	}
}

func TestPickupCodeHashing(t *testing.T) {
	code, err := GeneratePickupCode()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(code) != PickupCodeLength {
		t.Fatalf("unexpected code %q", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("non-digit in code %q", code)
		}
	}
	hash, err := HashPickupCode(code)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPickupCode(hash, code) {
		t.Fatalf("expected code to verify")
	}
	if CheckPickupCode(hash, "000000x") || CheckPickupCode("", code) {
		t.Fatalf("unexpected verification success")
	}
}
