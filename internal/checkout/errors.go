package checkout

import "errors"

var (
	// ErrUpstream marks failures of the payment collaborator or the lock backend. Callers may retry.
	ErrUpstream = errors.New("checkout: upstream unavailable")
	// ErrInvalidToken is returned for malformed, forged or expired checkout tokens.
	ErrInvalidToken = errors.New("checkout: invalid checkout token")
	// ErrPaymentIncomplete is returned when completing a payment that has not succeeded.
	ErrPaymentIncomplete = errors.New("checkout: payment not completed")
	// ErrOrderCompleted is returned when canceling an order that was already paid.
	ErrOrderCompleted = errors.New("checkout: order already completed")
	// ErrAmountMismatch is returned when the provider charged a different amount than quoted.
	ErrAmountMismatch = errors.New("checkout: charged amount differs from quote")
)

// UpstreamError wraps a collaborator failure with the operation that hit it.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return "checkout: " + e.Op + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrUpstream) match every UpstreamError.
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }
