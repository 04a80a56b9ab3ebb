// Package gateway provides the Stripe implementation of the payment
// gateway capability. The client is constructed once at process start
// and injected; no global Stripe state is used.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"bookpay/internal/services/payment"

	"github.com/shopspring/decimal"
	stripe "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"github.com/stripe/stripe-go/v72/webhook"
)

// ErrMissingSecretKey is returned when no Stripe secret key is
// configured.
var ErrMissingSecretKey = errors.New("stripe secret key is not set")

var centsPerUnit = decimal.NewFromInt(100)

// StripeGateway implements payment.Gateway on top of the Stripe API.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

// NewStripeGateway creates a gateway bound to the given credentials.
func NewStripeGateway(secretKey, webhookSecret string) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, ErrMissingSecretKey
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{
		api:           api,
		webhookSecret: webhookSecret,
	}, nil
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*payment.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(amount)),
		Currency: stripe.String(strings.ToLower(currency)),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, wrapStripeError(err)
	}
	return toIntent(pi), nil
}

func (g *StripeGateway) RetrieveIntent(ctx context.Context, ref string) (*payment.Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.Get(ref, params)
	if err != nil {
		return nil, wrapStripeError(err)
	}
	return toIntent(pi), nil
}

func (g *StripeGateway) ConfirmIntent(ctx context.Context, ref, paymentMethod string) (*payment.Intent, error) {
	params := &stripe.PaymentIntentConfirmParams{
		OffSession: stripe.Bool(true),
	}
	params.Context = ctx
	if paymentMethod != "" {
		params.PaymentMethod = stripe.String(paymentMethod)
	}

	pi, err := g.api.PaymentIntents.Confirm(ref, params)
	if err != nil {
		return nil, wrapStripeError(err)
	}
	return toIntent(pi), nil
}

func (g *StripeGateway) Refund(ctx context.Context, intentRef string) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentRef),
	}
	params.Context = ctx

	r, err := g.api.Refunds.New(params)
	if err != nil {
		return "", wrapStripeError(err)
	}
	return r.ID, nil
}

func (g *StripeGateway) VerifyWebhookSignature(payload []byte, signature string) (*payment.WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook signature: %w", err)
	}

	out := &payment.WebhookEvent{Type: event.Type}
	if strings.HasPrefix(event.Type, "payment_intent.") {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("malformed payment intent event: %w", err)
		}
		out.IntentRef = pi.ID
	}
	return out, nil
}

func toIntent(pi *stripe.PaymentIntent) *payment.Intent {
	intent := &payment.Intent{
		Ref:          pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       toIntentStatus(pi.Status),
	}
	if pi.PaymentMethod != nil {
		intent.PaymentMethod = pi.PaymentMethod.ID
	}
	return intent
}

func toIntentStatus(status stripe.PaymentIntentStatus) payment.IntentStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return payment.IntentStatusSucceeded
	case stripe.PaymentIntentStatusProcessing:
		return payment.IntentStatusProcessing
	case stripe.PaymentIntentStatusRequiresAction,
		stripe.PaymentIntentStatusRequiresConfirmation,
		stripe.PaymentIntentStatusRequiresPaymentMethod:
		return payment.IntentStatusRequiresAction
	default:
		return payment.IntentStatusFailed
	}
}

// toMinorUnits converts a decimal major-unit amount to gateway cents.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(centsPerUnit).Round(0).IntPart()
}

// wrapStripeError converts a Stripe error into the orchestrator's
// classified GatewayError.
func wrapStripeError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return err
	}
	return payment.NewGatewayError(string(stripeErr.Code), err)
}
