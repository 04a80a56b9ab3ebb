package payment

import (
	"context"

	"bookpay/internal/models"

	"github.com/shopspring/decimal"
)

// Service defines the payment orchestrator interface exposed to
// controllers and webhooks.
type Service interface {
	CreatePayment(ctx context.Context, in CreatePaymentInput) (*CreatePaymentResult, error)
	GetPayment(ctx context.Context, id uint) (*models.Payment, error)

	// Gateway signals. Both are idempotent on the intent reference.
	OnGatewaySuccess(ctx context.Context, intentRef string) error
	OnGatewayFailure(ctx context.Context, intentRef string) error
	HandleWebhook(ctx context.Context, payload []byte, signature string) error

	Refund(ctx context.Context, paymentID uint, reason string) (*models.Payment, error)
}

// Gateway is the external payment gateway capability. Implementations
// are injected at process start; the orchestrator never reaches for
// ambient state.
type Gateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*Intent, error)
	RetrieveIntent(ctx context.Context, ref string) (*Intent, error)
	ConfirmIntent(ctx context.Context, ref, paymentMethod string) (*Intent, error)
	Refund(ctx context.Context, intentRef string) (string, error)
	VerifyWebhookSignature(payload []byte, signature string) (*WebhookEvent, error)
}

// Intent is a gateway-side handle for an in-progress external charge.
type Intent struct {
	Ref           string
	ClientSecret  string
	Status        IntentStatus
	PaymentMethod string
}

// IntentStatus is the gateway's view of an intent.
type IntentStatus string

const (
	IntentStatusSucceeded      IntentStatus = "succeeded"
	IntentStatusRequiresAction IntentStatus = "requires_action"
	IntentStatusProcessing     IntentStatus = "processing"
	IntentStatusFailed         IntentStatus = "failed"
)

// Webhook event types the orchestrator reacts to.
const (
	WebhookIntentSucceeded = "payment_intent.succeeded"
	WebhookIntentFailed    = "payment_intent.payment_failed"
)

// WebhookEvent is a verified gateway notification.
type WebhookEvent struct {
	Type      string
	IntentRef string
}

// BookingService is the booking collaborator notified on payment
// outcomes.
type BookingService interface {
	MarkPaid(ctx context.Context, bookingID uint) error
	MarkPaymentFailed(ctx context.Context, bookingID uint) error
}

// LedgerService is the wallet capability the orchestrator settles
// wallet-method payments against.
type LedgerService interface {
	Credit(ctx context.Context, userID uint, amount decimal.Decimal, currency, description, reference string) (*models.Wallet, error)
	Debit(ctx context.Context, userID uint, amount decimal.Decimal, currency, description, reference string) (*models.Wallet, error)
}

// DiscountService resolves discount codes on the charge path.
type DiscountService interface {
	Redeem(ctx context.Context, code string, orderAmount decimal.Decimal, itemType string) (decimal.Decimal, error)
}
