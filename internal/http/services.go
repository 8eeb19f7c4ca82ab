// Package http holds the cross-cutting gin middleware and the service bundle the
// API route groups are built from.
package http

import (
	"github.com/larkspur-kitchen/rewards/internal/analytics"
	"github.com/larkspur-kitchen/rewards/internal/ingestion"
	"github.com/larkspur-kitchen/rewards/internal/ledger"
	"github.com/larkspur-kitchen/rewards/internal/orders"
	"github.com/larkspur-kitchen/rewards/internal/redemption"
	"github.com/larkspur-kitchen/rewards/internal/spin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services bundles the domain services behind the HTTP API.
type Services struct {
	DB          *gorm.DB
	Profiles    *ledger.Store
	Feed        *ledger.Feed // Nil disables the profile stream.
	Offers      *redemption.Catalog
	Redemptions *redemption.Service
	Spins       *spin.Service
	Orders      *orders.Service
	Ingestion   *ingestion.Service
	Analytics   *analytics.Aggregator
	Redis       redis.UniversalClient // Nil when profile publishing is disabled.
}

// NewServices wires every domain service onto one connection.
func NewServices(db *gorm.DB, feed *ledger.Feed, notifier ledger.Notifier, verifier ingestion.SignatureVerifier) Services {
	store := ledger.NewStore(db, notifier)
	return Services{
		DB:          db,
		Profiles:    store,
		Feed:        feed,
		Offers:      redemption.NewCatalog(db),
		Redemptions: redemption.NewService(db, store),
		Spins:       spin.NewService(db, store),
		Orders:      orders.NewService(db),
		Ingestion:   ingestion.NewService(db, verifier, ingestion.NewUserDirectory(db), ledger.NewKeywordPolicy(ledger.DefaultExcludedKeywords...), store),
		Analytics:   analytics.NewAggregator(db),
	}
}
