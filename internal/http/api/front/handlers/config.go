package handlers

import (
	"net/http"

	"github.com/IanTiba/unbox-surprise-gifts/internal/giftbox"
	"github.com/IanTiba/unbox-surprise-gifts/internal/pricing"
	internalsettings "github.com/IanTiba/unbox-surprise-gifts/internal/settings"
	"github.com/gin-gonic/gin"
)

// publicConfigResponse is the response payload for public config.
type publicConfigResponse struct {
	SiteName             string          `json:"site_name"`
	Limits               giftbox.Limits  `json:"limits"`
	Tiers                []quoteResponse `json:"tiers"`
	Themes               []giftbox.Theme `json:"themes"`
	DefaultEmoji         string          `json:"default_emoji"`
	StripePublishableKey string          `json:"stripe_publishable_key"`
}

// ConfigHandler serves the settings the builder UI needs before it renders.
type ConfigHandler struct {
	publishableKey string
}

// NewConfigHandler constructs a ConfigHandler.
func NewConfigHandler(publishableKey string) *ConfigHandler {
	return &ConfigHandler{publishableKey: publishableKey}
}

// Get returns public configuration for the front UI.
func (h *ConfigHandler) Get(c *gin.Context) {
	catalog := pricing.Catalog()
	tiers := make([]quoteResponse, 0, len(catalog))
	for _, entry := range catalog {
		tiers = append(tiers, newQuoteResponse(pricing.Quote{Tier: entry.Tier, AmountCents: entry.AmountCents, Currency: pricing.Currency}))
	}
	c.JSON(http.StatusOK, publicConfigResponse{
		SiteName:             internalsettings.SiteName(),
		Limits:               internalsettings.Limits(),
		Tiers:                tiers,
		Themes:               giftbox.Themes(),
		DefaultEmoji:         giftbox.DefaultEmoji,
		StripePublishableKey: h.publishableKey,
	})
}
