package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/IanTiba/unbox-surprise-gifts/internal/checkout"
	"github.com/IanTiba/unbox-surprise-gifts/internal/giftbox"
	"github.com/gin-gonic/gin"
)

// CheckoutHandler turns a finished draft into a paid, persisted gift box.
type CheckoutHandler struct {
	checkout *checkout.Service
}

// NewCheckoutHandler constructs a CheckoutHandler.
func NewCheckoutHandler(svc *checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{checkout: svc}
}

type beginCheckoutRequest struct {
	Email string        `json:"email"`
	Draft giftbox.Draft `json:"draft"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type beginCheckoutResponse struct {
	OrderID         string        `json:"order_id"`
	PaymentIntentID string        `json:"payment_intent_id"`
	ClientSecret    string        `json:"client_secret"`
	Token           string        `json:"token"`
	ExpiresAt       time.Time     `json:"expires_at"`
	Quote           quoteResponse `json:"quote"`
}

type completeCheckoutResponse struct {
	Slug      string         `json:"slug"`
	ShareURL  string         `json:"share_url"`
	CreatedAt time.Time      `json:"created_at"`
	Created   bool           `json:"created"`
	Box       giftbox.Record `json:"box"`
}

// Begin validates the draft, records a pending order and opens a payment intent.
func (h *CheckoutHandler) Begin(c *gin.Context) {
	var body beginCheckoutRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	session, errBegin := h.checkout.Begin(c.Request.Context(), body.Draft, body.Email)
	if errBegin != nil {
		writeError(c, errBegin)
		return
	}
	c.JSON(http.StatusCreated, beginCheckoutResponse{
		OrderID:         session.OrderID,
		PaymentIntentID: session.PaymentIntentID,
		ClientSecret:    session.ClientSecret,
		Token:           session.Token,
		ExpiresAt:       session.ExpiresAt,
		Quote:           newQuoteResponse(session.Quote),
	})
}

// Complete persists the gift box once the payment provider reports success.
func (h *CheckoutHandler) Complete(c *gin.Context) {
	token, ok := bindToken(c)
	if !ok {
		return
	}
	result, errComplete := h.checkout.Complete(c.Request.Context(), token)
	if errComplete != nil {
		writeError(c, errComplete)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, completeCheckoutResponse{
		Slug:      result.Record.Slug,
		ShareURL:  result.ShareURL,
		CreatedAt: result.Record.CreatedAt,
		Created:   result.Created,
		Box:       result.Record,
	})
}

// Cancel abandons the checkout and hands the draft back for more editing.
func (h *CheckoutHandler) Cancel(c *gin.Context) {
	token, ok := bindToken(c)
	if !ok {
		return
	}
	draft, errCancel := h.checkout.Cancel(c.Request.Context(), token)
	if errCancel != nil {
		writeError(c, errCancel)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

func bindToken(c *gin.Context) (string, bool) {
	var body tokenRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return "", false
	}
	token := strings.TrimSpace(body.Token)
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return "", false
	}
	return token, true
}
