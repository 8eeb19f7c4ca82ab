package ingestion

import (
	"context"
	"errors"
	"strings"

	"github.com/larkspur-kitchen/rewards/internal/apperr"
	"github.com/larkspur-kitchen/rewards/internal/models"
	"gorm.io/gorm"
)

// IdentityProvider resolves a customer email to a local user.
type IdentityProvider interface {
	LookupByEmail(ctx context.Context, email string) (userID uint64, found bool, err error)
}

// UserDirectory resolves emails against the users table. Disabled users do not resolve.
type UserDirectory struct {
	db *gorm.DB
}

// NewUserDirectory constructs a UserDirectory.
func NewUserDirectory(db *gorm.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

// LookupByEmail implements IdentityProvider.
func (d *UserDirectory) LookupByEmail(ctx context.Context, email string) (uint64, bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return 0, false, nil
	}
	var user models.User
	errFind := d.db.WithContext(ctx).
		Select("id", "disabled").
		Where("email = ?", email).
		Take(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, apperr.Internal("lookup user failed", errFind)
	}
	if user.Disabled {
		return 0, false, nil
	}
	return user.ID, true, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
