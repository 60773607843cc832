package stripe

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/customer"
	"github.com/stripe/stripe-go/v84/ephemeralkey"
	"github.com/stripe/stripe-go/v84/paymentintent"
)

// Intent statuses the reconciler cares about.
const (
	IntentStatusSucceeded             = string(stripe.PaymentIntentStatusSucceeded)
	IntentStatusRequiresPaymentMethod = string(stripe.PaymentIntentStatusRequiresPaymentMethod)
	IntentStatusCanceled              = string(stripe.PaymentIntentStatusCanceled)
)

// PaymentIntent is the processor-neutral view of a Stripe intent.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	Status       string
	Metadata     map[string]string
}

// Mutable reports whether Stripe still accepts amount updates for the intent.
func (p *PaymentIntent) Mutable() bool {
	if p == nil {
		return false
	}
	switch p.Status {
	case IntentStatusSucceeded, IntentStatusCanceled, string(stripe.PaymentIntentStatusProcessing):
		return false
	default:
		return true
	}
}

// PaymentIntentInput carries the fields used to open a new intent.
type PaymentIntentInput struct {
	Amount     int64
	Currency   string
	CustomerID string
	Metadata   map[string]string
}

// Gateway is the payment processor surface used by the payment sheet and the
// webhook reconciler.
type Gateway interface {
	CreateCustomer(ctx context.Context, email string) (string, error)
	CreateEphemeralKey(ctx context.Context, customerID string) (string, error)
	CreatePaymentIntent(ctx context.Context, input PaymentIntentInput) (*PaymentIntent, error)
	UpdatePaymentIntentAmount(ctx context.Context, intentID string, amount int64) (*PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error)
}

type apiGateway struct {
	currency string
}

// NewGateway binds the resource packages to the initialized client.
func NewGateway(client *Client) (Gateway, error) {
	if client == nil {
		return nil, errors.New("stripe client required")
	}
	return &apiGateway{currency: client.Currency()}, nil
}

func (g *apiGateway) CreateCustomer(ctx context.Context, email string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(strings.TrimSpace(email)),
	}
	params.Context = ctx
	cust, err := customer.New(params)
	if err != nil {
		return "", err
	}
	return cust.ID, nil
}

func (g *apiGateway) CreateEphemeralKey(ctx context.Context, customerID string) (string, error) {
	params := &stripe.EphemeralKeyParams{
		Customer:      stripe.String(customerID),
		StripeVersion: stripe.String(stripe.APIVersion),
	}
	params.Context = ctx
	key, err := ephemeralkey.New(params)
	if err != nil {
		return "", err
	}
	return key.Secret, nil
}

func (g *apiGateway) CreatePaymentIntent(ctx context.Context, input PaymentIntentInput) (*PaymentIntent, error) {
	currency := input.Currency
	if currency == "" {
		currency = g.currency
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(input.Amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if input.CustomerID != "" {
		params.Customer = stripe.String(input.CustomerID)
	}
	for key, value := range input.Metadata {
		params.AddMetadata(key, value)
	}
	params.Context = ctx

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, err
	}
	return FromStripeIntent(intent), nil
}

func (g *apiGateway) UpdatePaymentIntentAmount(ctx context.Context, intentID string, amount int64) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount: stripe.Int64(amount),
	}
	params.Context = ctx
	intent, err := paymentintent.Update(intentID, params)
	if err != nil {
		return nil, err
	}
	return FromStripeIntent(intent), nil
}

func (g *apiGateway) GetPaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	intent, err := paymentintent.Get(intentID, params)
	if err != nil {
		return nil, err
	}
	return FromStripeIntent(intent), nil
}

// FromStripeIntent converts the SDK type into the gateway view.
func FromStripeIntent(intent *stripe.PaymentIntent) *PaymentIntent {
	if intent == nil {
		return nil
	}
	metadata := make(map[string]string, len(intent.Metadata))
	for k, v := range intent.Metadata {
		metadata[k] = v
	}
	return &PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     string(intent.Currency),
		Status:       string(intent.Status),
		Metadata:     metadata,
	}
}
