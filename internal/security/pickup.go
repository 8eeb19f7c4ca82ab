package security

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/bcrypt"
)

// PickupCodeLength is the number of digits in an order pickup code.
const PickupCodeLength = 6

// pickupCodeCost is the bcrypt work factor for pickup codes.
var pickupCodeCost = bcrypt.DefaultCost

// GeneratePickupCode returns a random numeric code.
func GeneratePickupCode() (string, error) {
	buf := make([]byte, PickupCodeLength)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("generate pickup code: %w", err)
	}
	for i, b := range buf {
		buf[i] = '0' + b%10
	}
	return string(buf), nil
}

// HashPickupCode hashes a plaintext pickup code using bcrypt.
func HashPickupCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), pickupCodeCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPickupCode compares a bcrypt hash with a plaintext pickup code.
func CheckPickupCode(hash, code string) bool {
	if hash == "" || code == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
