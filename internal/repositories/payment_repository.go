package repositories

import (
	"errors"
	"time"

	"bookpay/internal/models"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrStatusConflict is returned when a conditional status
	// transition finds the payment already moved by another writer.
	ErrStatusConflict = errors.New("payment status conflict")
)

// PaymentRepository defines the interface for payment persistence.
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByID(id uint) (*models.Payment, error)
	GetByGatewayRef(ref string) (*models.Payment, error)
	Update(payment *models.Payment) error

	// TransitionStatus flips the payment status only while the current
	// status is one of from, as a single conditional statement. Returns
	// ErrStatusConflict when another writer got there first, which makes
	// concurrent duplicate signals safe.
	TransitionStatus(id uint, to models.PaymentStatus, from ...models.PaymentStatus) error

	// ListFailedGatewayPayments returns failed gateway payments updated
	// at or after since that have not been retried yet.
	ListFailedGatewayPayments(since time.Time) ([]*models.Payment, error)

	// MarkRetryAttempted flags a payment as consumed by the retry
	// scheduler so later runs skip it.
	MarkRetryAttempted(id uint) error
}
