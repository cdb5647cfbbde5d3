package front

import (
	"time"

	"github.com/IanTiba/unbox-surprise-gifts/internal/cache"
	"github.com/IanTiba/unbox-surprise-gifts/internal/checkout"
	"github.com/IanTiba/unbox-surprise-gifts/internal/http/api/front/handlers"
	"github.com/IanTiba/unbox-surprise-gifts/internal/media"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps carries the services the front routes call into.
type Deps struct {
	DB             *gorm.DB
	Checkout       *checkout.Service
	Media          *media.Service
	Boxes          handlers.BoxReader
	Records        *cache.RecordCache
	PublishableKey string
	Now            func() time.Time
}

// RegisterFrontRoutes registers the builder, checkout and reveal routes.
func RegisterFrontRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil || deps.Checkout == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.DB)
	r.GET("/healthz", healthHandler.Healthz)

	front := r.Group("/v0/front")
	front.GET("/healthz", healthHandler.Healthz)

	configHandler := handlers.NewConfigHandler(deps.PublishableKey)
	front.GET("/config", configHandler.Get)

	draftHandler := handlers.NewDraftHandler(deps.Checkout)
	front.POST("/drafts/new", draftHandler.New)
	front.POST("/quote", draftHandler.Quote)
	front.POST("/drafts/validate", draftHandler.Validate)
	front.POST("/drafts/cards", draftHandler.AddCard)
	front.POST("/drafts/cards/remove", draftHandler.RemoveCard)

	if deps.Media != nil {
		mediaHandler := handlers.NewMediaHandler(deps.Media)
		front.POST("/media", mediaHandler.Upload)
	}

	checkoutHandler := handlers.NewCheckoutHandler(deps.Checkout)
	private := front.Group("/checkout")
	private.Use(noStore())
	private.POST("", checkoutHandler.Begin)
	private.POST("/complete", checkoutHandler.Complete)
	private.POST("/cancel", checkoutHandler.Cancel)

	if deps.Boxes != nil {
		boxHandler := handlers.NewBoxHandler(deps.Boxes, deps.Records, deps.Checkout.ShareURL, deps.Now)
		front.GET("/boxes/:slug", boxHandler.Get)
		front.GET("/boxes/:slug/cards/:index", boxHandler.Card)
		front.GET("/boxes/:slug/qr.png", boxHandler.QR)
	}
}

// noStore keeps client secrets and tokens out of shared caches.
func noStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
