package security

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/larkspur-kitchen/rewards/internal/identity"
)

// JWT validation errors.
var (
	// ErrInvalidToken indicates a token is malformed or fails validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates a token has expired.
	ErrExpiredToken = errors.New("token expired")
)

// Claims defines JWT claims for every caller; the role decides what it may do.
type Claims struct {
	UserID uint64 `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs a JWT for userID with the configured expiry.
func GenerateToken(secret string, userID uint64, role identity.Role, expiry time.Duration) (string, error) {
	if !role.Valid() {
		return "", errors.New("generate token: invalid role")
	}
	now := time.Now().UTC()
	claims := Claims{
		UserID: userID,
		Role:   role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a JWT and returns its claims.
func ParseToken(secret string, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// JWTVerifier verifies HS256 bearer tokens into caller identities.
type JWTVerifier struct {
	secret string
}

// NewJWTVerifier constructs a JWTVerifier.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

// Verify implements identity.Verifier.
func (v *JWTVerifier) Verify(_ context.Context, credential string) (identity.Identity, error) {
	if v == nil || v.secret == "" {
		return identity.Identity{}, ErrInvalidToken
	}
	claims, errParse := ParseToken(v.secret, credential)
	if errParse != nil {
		return identity.Identity{}, errParse
	}
	role, errRole := identity.ParseRole(claims.Role)
	if errRole != nil || claims.UserID == 0 {
		return identity.Identity{}, ErrInvalidToken
	}
	return identity.Identity{UserID: claims.UserID, Role: role}, nil
}
