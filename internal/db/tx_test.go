package db

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/larkspur-kitchen/rewards/internal/apperr"
	"github.com/larkspur-kitchen/rewards/internal/models"
	"gorm.io/gorm"
)

func openMigrated(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestRunInTxRetriesConcurrentUpdate(t *testing.T) {
	conn := openMigrated(t)
	txRetryBackoff = time.Millisecond

	attempts := 0
	errRun := RunInTx(context.Background(), conn, func(tx *gorm.DB) error {
		attempts++
		if errCreate := tx.Create(&models.User{Email: fmt.Sprintf("try%d@example.com", attempts)}).Error; errCreate != nil {
			return errCreate
		}
		if attempts < 2 {
			return ErrConcurrentUpdate
		}
		return nil
	})
	if errRun != nil {
		t.Fatalf("run: %v", errRun)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	var count int64
	conn.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected rolled-back first attempt, found %d users", count)
	}
}

func TestRunInTxSurfacesInternalAfterRetries(t *testing.T) {
	conn := openMigrated(t)
	txRetryBackoff = time.Millisecond

	attempts := 0
	errRun := RunInTx(context.Background(), conn, func(tx *gorm.DB) error {
		attempts++
		return ErrConcurrentUpdate
	})
	if attempts != MaxTxAttempts {
		t.Fatalf("expected %d attempts, got %d", MaxTxAttempts, attempts)
	}
	if !apperr.Is(errRun, apperr.KindInternal) {
		t.Fatalf("expected internal error, got %v", errRun)
	}
	if !errors.Is(errRun, ErrConcurrentUpdate) {
		t.Fatalf("expected cause to be preserved")
	}
}

func TestRunInTxDoesNotRetryDomainErrors(t *testing.T) {
	conn := openMigrated(t)

	attempts := 0
	errRun := RunInTx(context.Background(), conn, func(tx *gorm.DB) error {
		attempts++
		return apperr.Conflict("insufficient points")
	})
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
	if !apperr.Is(errRun, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", errRun)
	}
}
