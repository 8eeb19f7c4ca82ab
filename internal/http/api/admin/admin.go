// Package admin registers the staff routes: kitchen order handling and the
// admin back office.
package admin

import (
	"github.com/gin-gonic/gin"
	relayhttp "github.com/larkspur-kitchen/rewards/internal/http"
	"github.com/larkspur-kitchen/rewards/internal/http/api/admin/handlers"
	"github.com/larkspur-kitchen/rewards/internal/identity"
)

// RegisterAdminRoutes registers the staff routes behind identity and permission checks.
func RegisterAdminRoutes(r *gin.Engine, verifier identity.Verifier, svc relayhttp.Services) {
	if r == nil || verifier == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(svc.DB, svc.Redis)
	r.GET("/healthz", healthHandler.Healthz)

	admin := r.Group("/v0/admin")
	admin.Use(relayhttp.IdentityMiddleware(verifier), adminPermissionMiddleware())

	orderHandler := handlers.NewOrderHandler(svc.Orders)
	admin.GET("/orders", orderHandler.List)
	admin.GET("/orders/:id", orderHandler.Get)
	admin.PUT("/orders/:id/status", orderHandler.UpdateStatus)
	admin.POST("/orders/:id/verify-pickup", orderHandler.VerifyPickup)

	offerHandler := handlers.NewOfferHandler(svc.Offers)
	admin.GET("/offers", offerHandler.List)
	admin.POST("/offers", offerHandler.Create)
	admin.PUT("/offers/:id", offerHandler.Update)

	userHandler := handlers.NewUserHandler(svc.DB, svc.Profiles)
	admin.GET("/users/:id/profile", userHandler.Profile)
	admin.GET("/users/:id/ledger", userHandler.Ledger)
	admin.GET("/users/:id/audit", userHandler.Audit)
	admin.POST("/users/:id/adjust", userHandler.Adjust)
	admin.PUT("/users/:id/tier", userHandler.SetTier)
	admin.PUT("/users/:id/can-spin", userHandler.SetCanSpin)

	analyticsHandler := handlers.NewAnalyticsHandler(svc.Analytics)
	admin.GET("/analytics", analyticsHandler.Report)

	settingsHandler := handlers.NewSettingsHandler(svc.DB)
	admin.GET("/settings", settingsHandler.List)
	admin.PUT("/settings/:key", settingsHandler.Update)
}
