package payment

import (
	"context"
	"errors"
)

// IntentStatus is the provider-neutral state of a payment.
type IntentStatus string

// IntentStatus values.
const (
	// IntentPending is any state that may still end in success.
	IntentPending IntentStatus = "pending"
	// IntentSucceeded means funds were captured.
	IntentSucceeded IntentStatus = "succeeded"
	// IntentCanceled means the intent was canceled and can no longer be paid.
	IntentCanceled IntentStatus = "canceled"
	// IntentFailed means the last attempt was declined.
	IntentFailed IntentStatus = "failed"
)

// ErrIntentNotFound is returned when the provider does not know an intent id.
var ErrIntentNotFound = errors.New("payment: intent not found")

// IntentRequest describes a charge for one gift box.
type IntentRequest struct {
	// IdempotencyKey makes retried creates return the same intent.
	IdempotencyKey string
	AmountCents    int64
	Currency       string
	Email          string
	Metadata       map[string]string
}

// Intent is a payment as seen by the provider.
type Intent struct {
	ID           string
	ClientSecret string
	Status       IntentStatus
	AmountCents  int64
	Currency     string
	// FailureMessage is the provider's last decline reason, if any.
	FailureMessage string
}

// Provider is the external payment collaborator.
type Provider interface {
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
	GetIntent(ctx context.Context, id string) (Intent, error)
	CancelIntent(ctx context.Context, id string) (Intent, error)
}
