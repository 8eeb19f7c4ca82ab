package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("redeem: %w", Conflict("insufficient points"))
	if !Is(err, KindConflict) {
		t.Fatalf("expected conflict kind, got %s", KindOf(err))
	}
	if got := Message(err); got != "insufficient points" {
		t.Fatalf("expected message %q, got %q", "insufficient points", got)
	}
	if got := HTTPStatus(err); got != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", got)
	}
}

func TestUnclassifiedErrorIsInternal(t *testing.T) {
	err := errors.New("boom")
	if KindOf(err) != KindInternal {
		t.Fatalf("expected internal kind")
	}
	if Message(err) != "internal error" {
		t.Fatalf("unexpected message %q", Message(err))
	}
	if HTTPStatus(err) != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", HTTPStatus(err))
	}
}

func TestInternalUnwrapsCause(t *testing.T) {
	cause := errors.New("tx aborted")
	err := Internal("storage failure", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	if Is(nil, KindInternal) {
		t.Fatalf("nil error must not match any kind")
	}
}

func TestHTTPStatusPerKind(t *testing.T) {
	cases := map[int]error{
		http.StatusBadRequest:   Validation("bad"),
		http.StatusNotFound:     NotFound("missing"),
		http.StatusBadGateway:   External("gateway down", errors.New("eof")),
		http.StatusUnauthorized: Unauthenticated("invalid signature", nil),
	}
	for want, err := range cases {
		if got := HTTPStatus(err); got != want {
			t.Fatalf("%s: expected %d, got %d", KindOf(err), want, got)
		}
	}
}
