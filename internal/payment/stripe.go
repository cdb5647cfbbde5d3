package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/IanTiba/unbox-surprise-gifts/internal/util"
	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeProvider implements Provider with Stripe PaymentIntents.
type StripeProvider struct {
	api *client.API
}

// NewStripeProvider returns a provider authenticated with secretKey.
func NewStripeProvider(secretKey string) (*StripeProvider, error) {
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		return nil, errors.New("payment: empty stripe secret key")
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeProvider{api: api}, nil
}

// CreateIntent implements Provider. The buyer is attached to an existing customer with the
// same email, or a new one.
func (p *StripeProvider) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	customerID, errCustomer := p.customerFor(ctx, req.Email, req.Metadata)
	if errCustomer != nil {
		return Intent{}, errCustomer
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	}
	if req.Email != "" {
		params.ReceiptEmail = stripe.String(req.Email)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("payment: create intent: %w", err)
	}
	return fromStripe(pi), nil
}

// GetIntent implements Provider.
func (p *StripeProvider) GetIntent(ctx context.Context, id string) (Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := p.api.PaymentIntents.Get(id, params)
	if err != nil {
		return Intent{}, wrapLookupError("get intent", err)
	}
	return fromStripe(pi), nil
}

// CancelIntent implements Provider.
func (p *StripeProvider) CancelIntent(ctx context.Context, id string) (Intent, error) {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx
	pi, err := p.api.PaymentIntents.Cancel(id, params)
	if err != nil {
		return Intent{}, wrapLookupError("cancel intent", err)
	}
	return fromStripe(pi), nil
}

func (p *StripeProvider) customerFor(ctx context.Context, email string, metadata map[string]string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", nil
	}
	listParams := &stripe.CustomerListParams{Email: stripe.String(email)}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(1)
	iter := p.api.Customers.List(listParams)
	if iter.Next() {
		return iter.Customer().ID, nil
	}
	if errIter := iter.Err(); errIter != nil {
		return "", fmt.Errorf("payment: list customers: %w", errIter)
	}

	params := &stripe.CustomerParams{Email: stripe.String(email)}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	cus, err := p.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("payment: create customer: %w", err)
	}
	log.Debugf("payment: created stripe customer for %s", util.MaskEmail(email))
	return cus.ID, nil
}

func wrapLookupError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
		return fmt.Errorf("payment: %s: %w", op, ErrIntentNotFound)
	}
	return fmt.Errorf("payment: %s: %w", op, err)
}

func fromStripe(pi *stripe.PaymentIntent) Intent {
	out := Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       mapStatus(pi),
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
	}
	if pi.LastPaymentError != nil {
		out.FailureMessage = pi.LastPaymentError.Msg
	}
	return out
}

func mapStatus(pi *stripe.PaymentIntent) IntentStatus {
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return IntentSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return IntentCanceled
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		if pi.LastPaymentError != nil {
			return IntentFailed
		}
		return IntentPending
	default:
		return IntentPending
	}
}
