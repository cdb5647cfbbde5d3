package handlers

import (
	"errors"
	"net/http"

	"github.com/IanTiba/unbox-surprise-gifts/internal/checkout"
	"github.com/IanTiba/unbox-surprise-gifts/internal/giftbox"
	"github.com/IanTiba/unbox-surprise-gifts/internal/media"
	"github.com/IanTiba/unbox-surprise-gifts/internal/pricing"
	"github.com/IanTiba/unbox-surprise-gifts/internal/store"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// writeError maps domain errors to status codes and JSON bodies.
func writeError(c *gin.Context, err error) {
	var verr *giftbox.ValidationError
	var uploadErr *media.UploadError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid gift box", "fields": verr.Fields})
	case errors.Is(err, checkout.ErrUpstream), errors.As(err, &uploadErr):
		log.WithError(err).Warn("front: upstream failure")
		c.JSON(http.StatusBadGateway, gin.H{"error": "service temporarily unavailable, please try again", "retryable": true})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "gift box not found", "redirect": "/"})
	case errors.Is(err, checkout.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired checkout token"})
	case errors.Is(err, checkout.ErrPaymentIncomplete):
		c.JSON(http.StatusConflict, gin.H{"error": "payment not completed"})
	case errors.Is(err, checkout.ErrOrderCompleted):
		c.JSON(http.StatusConflict, gin.H{"error": "order already completed"})
	case errors.Is(err, checkout.ErrAmountMismatch):
		c.JSON(http.StatusConflict, gin.H{"error": "payment amount does not match the quote"})
	case errors.Is(err, giftbox.ErrCardLimit), errors.Is(err, giftbox.ErrLastCard):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, giftbox.ErrCardNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
	case errors.Is(err, media.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
	case errors.Is(err, media.ErrUnsupportedType), errors.Is(err, media.ErrUnsupportedKind):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
	case errors.Is(err, media.ErrEmpty):
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty file"})
	default:
		log.WithError(err).Error("front: request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// quoteResponse is the JSON view of a price quote.
type quoteResponse struct {
	Tier        string   `json:"tier"`
	AmountCents int64    `json:"amount_cents"`
	Amount      string   `json:"amount"`
	Currency    string   `json:"currency"`
	Features    []string `json:"features"`
}

func newQuoteResponse(q pricing.Quote) quoteResponse {
	return quoteResponse{
		Tier:        q.Tier.Name(),
		AmountCents: q.AmountCents,
		Amount:      q.AmountString(),
		Currency:    q.Currency,
		Features:    q.Tier.Features(),
	}
}
