package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment statuses. Transitions are monotonic forward except the
// explicit completed -> refunded path.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// PaymentMethod identifies how a payment is settled.
type PaymentMethod string

const (
	PaymentMethodGateway PaymentMethod = "gateway"
	PaymentMethodWallet  PaymentMethod = "wallet"
)

// Payment is one payment attempt. Gateway payments reference an external
// payment intent and are only completed on an authoritative success
// signal; wallet payments settle synchronously against the ledger.
type Payment struct {
	ID        uint            `gorm:"primarykey"`
	UserID    uint            `gorm:"index;not null"`
	BookingID *uint           `gorm:"index"`
	Amount    decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Currency  string          `gorm:"size:3;not null"`
	Status    PaymentStatus   `gorm:"size:16;not null;default:'pending'"`
	Method    PaymentMethod   `gorm:"size:16;not null"`

	// Reference is the internally generated identifier handed to callers.
	Reference string `gorm:"uniqueIndex"`

	// GatewayRef is the current payment intent id at the gateway. Retries
	// replace it with the fresh intent's id.
	GatewayRef       string `gorm:"index"`
	GatewayRefundRef string
	PaymentMethodRef string // gateway-side payment method, used for off-session confirms

	DiscountCode   string
	RefundReason   string
	RetryAttempted bool `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanTransitionTo reports whether moving to the given status respects the
// payment state machine.
func (p *Payment) CanTransitionTo(next PaymentStatus) bool {
	switch p.Status {
	case PaymentStatusPending:
		return next == PaymentStatusCompleted || next == PaymentStatusFailed
	case PaymentStatusFailed:
		// late gateway success or a scheduler retry may still complete it
		return next == PaymentStatusCompleted
	case PaymentStatusCompleted:
		return next == PaymentStatusRefunded
	default:
		return false
	}
}
