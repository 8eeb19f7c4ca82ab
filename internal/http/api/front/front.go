package front

import (
	"github.com/gin-gonic/gin"
	relayhttp "github.com/larkspur-kitchen/rewards/internal/http"
	"github.com/larkspur-kitchen/rewards/internal/http/api/front/handlers"
	"github.com/larkspur-kitchen/rewards/internal/identity"
)

// RegisterFrontRoutes registers the authenticated customer routes.
func RegisterFrontRoutes(r *gin.Engine, verifier identity.Verifier, svc relayhttp.Services) {
	if r == nil || verifier == nil {
		return
	}

	front := r.Group("/v0/front")
	front.Use(relayhttp.IdentityMiddleware(verifier))

	profileHandler := handlers.NewProfileHandler(svc.Profiles, svc.Feed)
	front.GET("/profile", profileHandler.Get)
	front.GET("/profile/stream", profileHandler.Stream)
	front.GET("/ledger", profileHandler.History)

	offerHandler := handlers.NewOfferHandler(svc.Offers)
	front.GET("/offers", offerHandler.List)

	redemptionHandler := handlers.NewRedemptionHandler(svc.Redemptions)
	front.POST("/redemptions", redemptionHandler.Create)
	front.GET("/redemptions", redemptionHandler.List)
	front.POST("/redemptions/:id/use", redemptionHandler.Use)

	spinHandler := handlers.NewSpinHandler(svc.Spins)
	front.POST("/spin", spinHandler.Spin)

	orderHandler := handlers.NewOrderHandler(svc.Orders)
	front.GET("/orders/:id", orderHandler.Get)
	front.PUT("/orders/:id/status", orderHandler.UpdateStatus)
}
