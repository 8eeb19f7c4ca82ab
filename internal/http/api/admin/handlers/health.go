package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	internalsettings "github.com/larkspur-kitchen/rewards/internal/settings"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	healthStatusOK       = "ok"
	healthStatusDegraded = "degraded"
	healthStatusDown     = "down"

	defaultSettingsMaxAge = 5 * time.Minute
	healthPingTimeout     = 2 * time.Second
)

// HealthHandler reports whether the rewards service can take traffic.
//
// The database is required; a failed ping answers 503. A stale settings
// snapshot or an unreachable redis only degrades the service: balances stay
// correct, but tunables may lag and profile changes are not published.
type HealthHandler struct {
	db             *gorm.DB
	redis          redis.UniversalClient
	settingsMaxAge time.Duration
	now            func() time.Time
}

// NewHealthHandler constructs a HealthHandler. redisClient may be nil.
func NewHealthHandler(db *gorm.DB, redisClient redis.UniversalClient) *HealthHandler {
	return &HealthHandler{
		db:             db,
		redis:          redisClient,
		settingsMaxAge: defaultSettingsMaxAge,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

type settingsHealth struct {
	LoadedAt   *time.Time `json:"loaded_at"`
	AgeSeconds int64      `json:"age_seconds"`
	Fresh      bool       `json:"fresh"`
}

type healthResponse struct {
	Status   string         `json:"status"`
	Database string         `json:"database"`
	Redis    string         `json:"redis"`
	Settings settingsHealth `json:"settings"`
}

// Healthz checks the database, the settings snapshot and redis.
func (h *HealthHandler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()

	resp := healthResponse{Status: healthStatusOK, Database: healthStatusOK, Redis: "disabled"}

	if errPing := h.pingDatabase(ctx); errPing != nil {
		log.WithError(errPing).Warn("healthz: database unreachable")
		resp.Status = healthStatusDown
		resp.Database = "unreachable"
	}

	loadedAt := internalsettings.DBConfigLoadedAt()
	if !loadedAt.IsZero() {
		age := h.now().Sub(loadedAt)
		resp.Settings = settingsHealth{LoadedAt: &loadedAt, AgeSeconds: int64(age / time.Second), Fresh: age <= h.settingsMaxAge}
	}
	if !resp.Settings.Fresh && resp.Status == healthStatusOK {
		resp.Status = healthStatusDegraded
	}

	if h.redis != nil {
		if errPing := h.redis.Ping(ctx).Err(); errPing != nil {
			log.WithError(errPing).Warn("healthz: redis unreachable")
			resp.Redis = "unreachable"
			if resp.Status == healthStatusOK {
				resp.Status = healthStatusDegraded
			}
		} else {
			resp.Redis = healthStatusOK
		}
	}

	status := http.StatusOK
	if resp.Status == healthStatusDown {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

func (h *HealthHandler) pingDatabase(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
