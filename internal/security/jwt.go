package security

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// checkoutIssuer scopes checkout tokens to this service.
const checkoutIssuer = "unboxme-checkout"

// JWT validation errors.
var (
	// ErrInvalidToken indicates a token is malformed or fails validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates a token has expired.
	ErrExpiredToken = errors.New("token expired")
)

// CheckoutClaims binds a checkout token to one order and its payment intent.
type CheckoutClaims struct {
	OrderID         string `json:"order_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	Tier            string `json:"tier"`
	AmountCents     int64  `json:"amount_cents"`
	jwt.RegisteredClaims
}

// GenerateCheckoutToken signs a checkout token with the configured expiry.
func GenerateCheckoutToken(secret string, claims CheckoutClaims, now time.Time, expiry time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("security: empty checkout secret")
	}
	now = now.UTC()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    checkoutIssuer,
		Subject:   claims.OrderID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseCheckoutToken validates a checkout token and returns its claims.
func ParseCheckoutToken(secret string, tokenString string, now time.Time) (*CheckoutClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CheckoutClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(checkoutIssuer),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*CheckoutClaims)
	if !ok || !token.Valid || claims.OrderID == "" || claims.PaymentIntentID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
