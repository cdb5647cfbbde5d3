package handlers

import (
	"net/http"
	"strings"

	"github.com/IanTiba/unbox-surprise-gifts/internal/checkout"
	"github.com/IanTiba/unbox-surprise-gifts/internal/giftbox"
	"github.com/gin-gonic/gin"
)

// DraftHandler serves stateless builder operations. Drafts live on the client until checkout.
type DraftHandler struct {
	checkout *checkout.Service
}

// NewDraftHandler constructs a DraftHandler.
func NewDraftHandler(svc *checkout.Service) *DraftHandler {
	return &DraftHandler{checkout: svc}
}

type draftResponse struct {
	Draft giftbox.Draft `json:"draft"`
	Quote quoteResponse `json:"quote"`
}

type cardRequest struct {
	Draft  giftbox.Draft `json:"draft"`
	CardID string        `json:"card_id"`
}

// New returns a blank draft with its quote.
func (h *DraftHandler) New(c *gin.Context) {
	draft := giftbox.NewDraft()
	c.JSON(http.StatusOK, draftResponse{Draft: draft, Quote: newQuoteResponse(h.checkout.Quote(draft))})
}

// Quote prices the posted draft.
func (h *DraftHandler) Quote(c *gin.Context) {
	var draft giftbox.Draft
	if errBind := c.ShouldBindJSON(&draft); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"quote": newQuoteResponse(h.checkout.Quote(draft))})
}

// Validate reports whether the posted draft can go to checkout, and why not.
func (h *DraftHandler) Validate(c *gin.Context) {
	var draft giftbox.Draft
	if errBind := c.ShouldBindJSON(&draft); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	draft = draft.Normalize()
	fields := []giftbox.FieldError{}
	if errValidate := draft.Validate(h.checkout.Limits()); errValidate != nil {
		if verr, ok := errValidate.(*giftbox.ValidationError); ok {
			fields = verr.Fields
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"ready":  len(fields) == 0,
		"errors": fields,
		"quote":  newQuoteResponse(h.checkout.Quote(draft)),
	})
}

// AddCard appends a blank card to the posted draft.
func (h *DraftHandler) AddCard(c *gin.Context) {
	var body cardRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	draft := body.Draft.Normalize()
	card, errAdd := draft.AddCard(h.checkout.Limits())
	if errAdd != nil {
		writeError(c, errAdd)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"draft": draft,
		"card":  card,
		"quote": newQuoteResponse(h.checkout.Quote(draft)),
	})
}

// RemoveCard removes card_id from the posted draft.
func (h *DraftHandler) RemoveCard(c *gin.Context) {
	var body cardRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	cardID := strings.TrimSpace(body.CardID)
	if cardID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "card_id is required"})
		return
	}
	draft := body.Draft.Normalize()
	if errRemove := draft.RemoveCard(cardID); errRemove != nil {
		writeError(c, errRemove)
		return
	}
	c.JSON(http.StatusOK, draftResponse{Draft: draft, Quote: newQuoteResponse(h.checkout.Quote(draft))})
}
