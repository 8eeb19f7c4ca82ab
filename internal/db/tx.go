package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/larkspur-kitchen/rewards/internal/apperr"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrConcurrentUpdate reports that a row changed between read and write inside a
// transaction. RunInTx retries the whole transaction when it sees it.
var ErrConcurrentUpdate = errors.New("db: concurrent update")

// MaxTxAttempts bounds how many times RunInTx runs a contended transaction.
const MaxTxAttempts = 3

// txRetryBackoff is the base delay between attempts; it doubles per attempt.
var txRetryBackoff = 15 * time.Millisecond

// RunInTx runs fn in a transaction, retrying transient storage conflicts.
//
// Classified errors (validation, conflict, not found) abort immediately and are
// returned unchanged. Contention that survives MaxTxAttempts and any other
// storage failure surface as an InternalError.
func RunInTx(ctx context.Context, conn *gorm.DB, fn func(tx *gorm.DB) error) error {
	if conn == nil {
		return apperr.Internal("storage unavailable", errors.New("db: nil connection"))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var lastErr error
	for attempt := 1; attempt <= MaxTxAttempts; attempt++ {
		errTx := conn.WithContext(ctx).Transaction(fn)
		if errTx == nil {
			return nil
		}
		var appErr *apperr.Error
		if errors.As(errTx, &appErr) {
			return errTx
		}
		if !IsRetryable(errTx) {
			return apperr.Internal("storage transaction failed", errTx)
		}
		lastErr = errTx
		log.WithError(errTx).WithField("attempt", attempt).Debug("db: retrying contended transaction")

		if attempt == MaxTxAttempts {
			break
		}
		timer := time.NewTimer(txRetryBackoff << (attempt - 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return apperr.Internal("storage transaction cancelled", ctx.Err())
		case <-timer.C:
		}
	}
	return apperr.Internal("storage contention: retries exhausted", lastErr)
}

// IsRetryable reports whether err is transient contention worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConcurrentUpdate) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "23505":
			return true
		}
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "unique constraint failed")
}
