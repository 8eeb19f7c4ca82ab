package settings

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const defaultRefreshInterval = 30 * time.Second

// Refresher reloads the snapshot periodically so writes made by other
// instances become visible without a restart.
type Refresher struct {
	db       *gorm.DB
	interval time.Duration
}

// NewRefresher returns nil when db is nil.
func NewRefresher(db *gorm.DB, interval time.Duration) *Refresher {
	if db == nil {
		return nil
	}
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &Refresher{db: db, interval: interval}
}

// Start launches the refresh loop in a background goroutine.
func (r *Refresher) Start(ctx context.Context) {
	if r == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go r.run(ctx)
	log.Infof("settings refresher started (interval=%s)", r.interval)
}

func (r *Refresher) run(ctx context.Context) {
	for {
		timer := time.NewTimer(r.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
		if errRefresh := RefreshDBConfigSnapshot(ctx, r.db); errRefresh != nil && ctx.Err() == nil {
			log.WithError(errRefresh).Warn("settings: refresh snapshot failed")
		}
	}
}
