package payment

import (
	"bookpay/internal/models"

	"github.com/shopspring/decimal"
)

// CreatePaymentInput carries everything needed to start a payment.
type CreatePaymentInput struct {
	UserID   uint
	Amount   decimal.Decimal
	Currency string
	Method   models.PaymentMethod

	BookingID *uint

	// DiscountCode, when set, is resolved and consumed before charging.
	// ItemType scopes the discount check.
	DiscountCode string
	ItemType     string
}

// CreatePaymentResult is returned to the caller boundary.
type CreatePaymentResult struct {
	Payment *models.Payment

	// ClientSecret is the continuation token the client needs to finish
	// a gateway payment. Empty for wallet payments.
	ClientSecret string
}
