package ingestion

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/larkspur-kitchen/rewards/internal/apperr"
)

// SignatureHeader carries the gateway signature.
const SignatureHeader = "Payment-Signature"

// DefaultTolerance is how far a signature timestamp may drift from now.
const DefaultTolerance = 5 * time.Minute

// Signature verification errors, wrapped in an UnauthenticatedError.
var (
	ErrMissingSignature  = errors.New("missing signature header")
	ErrMalformedHeader   = errors.New("malformed signature header")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrTimestampExpired  = errors.New("signature timestamp outside tolerance")
)

// SignatureVerifier authenticates a raw event payload against its signature header.
type SignatureVerifier interface {
	Verify(payload []byte, header string, now time.Time) error
}

// HMACVerifier checks `t=<unix>,v1=<hex>` headers where the signature is
// HMAC-SHA256(secret, "<unix>.<payload>").
type HMACVerifier struct {
	secret    string
	tolerance time.Duration
}

// NewHMACVerifier constructs an HMACVerifier; tolerance <= 0 uses DefaultTolerance.
func NewHMACVerifier(secret string, tolerance time.Duration) *HMACVerifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &HMACVerifier{secret: secret, tolerance: tolerance}
}

// ComputeSignature returns the hex HMAC for payload signed at timestamp.
func ComputeSignature(timestamp int64, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignHeader produces a header value for payload signed at timestamp.
func SignHeader(payload []byte, secret string, timestamp int64) string {
	return fmt.Sprintf("t=%d,v1=%s", timestamp, ComputeSignature(timestamp, payload, secret))
}

// Verify implements SignatureVerifier. Any v1 entry may match so that secrets can rotate.
func (v *HMACVerifier) Verify(payload []byte, header string, now time.Time) error {
	if v == nil || v.secret == "" {
		return apperr.External("webhook secret is not configured", nil)
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return apperr.Unauthenticated("invalid signature", ErrMissingSignature)
	}

	var (
		timestamp  int64
		haveTS     bool
		signatures []string
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts, errParse := strconv.ParseInt(value, 10, 64)
			if errParse != nil {
				return apperr.Unauthenticated("invalid signature", ErrMalformedHeader)
			}
			timestamp, haveTS = ts, true
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if !haveTS || len(signatures) == 0 {
		return apperr.Unauthenticated("invalid signature", ErrMalformedHeader)
	}

	drift := now.Sub(time.Unix(timestamp, 0))
	if drift < 0 {
		drift = -drift
	}
	if drift > v.tolerance {
		return apperr.Unauthenticated("invalid signature", ErrTimestampExpired)
	}

	expected := []byte(ComputeSignature(timestamp, payload, v.secret))
	for _, sig := range signatures {
		if hmac.Equal(expected, []byte(sig)) {
			return nil
		}
	}
	return apperr.Unauthenticated("invalid signature", ErrSignatureMismatch)
}
