package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/larkspur-kitchen/rewards/internal/config"
	"github.com/larkspur-kitchen/rewards/internal/db"
	relayhttp "github.com/larkspur-kitchen/rewards/internal/http"
	"github.com/larkspur-kitchen/rewards/internal/http/api/admin"
	"github.com/larkspur-kitchen/rewards/internal/http/api/front"
	"github.com/larkspur-kitchen/rewards/internal/http/api/webhooks"
	"github.com/larkspur-kitchen/rewards/internal/ingestion"
	"github.com/larkspur-kitchen/rewards/internal/ledger"
	"github.com/larkspur-kitchen/rewards/internal/logging"
	"github.com/larkspur-kitchen/rewards/internal/security"
	internalsettings "github.com/larkspur-kitchen/rewards/internal/settings"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrMissingJWTSecret is returned when the server would start without a token secret.
var ErrMissingJWTSecret = errors.New("app: jwt secret is required")

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the rewards API and its background jobs and blocks until ctx ends.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	if !config.ConfigExists(configPath) {
		log.Infof("config file %s not found, using environment only", configPath)
	}
	appCfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logCloser, err := logging.Setup(appCfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()

	if appCfg.JWT.Secret == "" {
		return ErrMissingJWTSecret
	}
	if appCfg.Database.DSN == "" {
		return config.ErrMissingDSN
	}
	if appCfg.Webhook.Secret == "" {
		log.Warn("webhook secret is not configured; payment webhooks will be rejected")
	}

	conn, err := db.Open(appCfg.Database.DSN)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errRefresh := internalsettings.RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil {
		return fmt.Errorf("load settings: %w", errRefresh)
	}
	internalsettings.NewRefresher(conn, 0).Start(ctx)

	redisClient := newRedisClient(ctx, appCfg.Redis)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	engine, svc := NewEngine(appCfg, conn, redisClient)
	sweeper := ledger.NewExpirySweeper(conn, svc.Profiles, svc.Redemptions, appCfg.Loyalty.ExpirySweepInterval)
	sweeper.Start(ctx)

	server := &http.Server{
		Addr:              appCfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Infof("rewards server listening on %s (config=%s)", appCfg.Server.Addr, configPath)
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			serveErr <- errServe
		}
		close(serveErr)
	}()

	select {
	case errServe := <-serveErr:
		return errServe
	case <-ctx.Done():
	}

	log.Info("shutting down rewards server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.Server.ShutdownTimeout)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("shutdown: %w", errShutdown)
	}
	return nil
}

// NewEngine builds the gin engine with every route group registered. redisClient may be nil.
func NewEngine(cfg config.Config, conn *gorm.DB, redisClient redis.UniversalClient) (*gin.Engine, relayhttp.Services) {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	engine := gin.New()
	engine.Use(logging.GinLogger(), gin.Recovery())

	feed := ledger.NewFeed()
	notifier := ledger.Notifiers{feed}
	if publisher := ledger.NewRedisPublisher(redisClient, cfg.Redis.ChannelPrefix); publisher != nil {
		notifier = append(notifier, publisher)
	}
	svc := relayhttp.NewServices(conn, feed, notifier, ingestion.NewHMACVerifier(cfg.Webhook.Secret, cfg.Webhook.Tolerance))
	svc.Redis = redisClient
	verifier := security.NewJWTVerifier(cfg.JWT.Secret)

	admin.RegisterAdminRoutes(engine, verifier, svc)
	front.RegisterFrontRoutes(engine, verifier, svc)
	webhooks.RegisterWebhookRoutes(engine, svc.Ingestion)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return engine, svc
}

// newRedisClient connects when an address is configured. An unreachable server
// is logged and the client is still returned; publishes fail softly.
func newRedisClient(ctx context.Context, cfg config.RedisConfig) redis.UniversalClient {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.Addr},
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		log.WithError(errPing).Warnf("redis %s unreachable; profile changes will not be published until it recovers", cfg.Addr)
	} else {
		log.Infof("publishing profile changes to redis %s", cfg.Addr)
	}
	return client
}
