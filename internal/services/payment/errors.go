package payment

import (
	"errors"
	"fmt"
)

// Service errors
var (
	ErrPaymentNotFound          = errors.New("payment not found")
	ErrAlreadyRefunded          = errors.New("payment already refunded")
	ErrNotRefundable            = errors.New("payment is not in a refundable state")
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")
	ErrGatewayNotConfigured     = errors.New("payment gateway not configured")
	ErrInvalidAmount            = errors.New("amount must be greater than zero")
)

// Gateway error codes that must never be retried: the card itself is the
// problem and a fresh attempt cannot fix it.
var nonRetryableCodes = map[string]bool{
	"card_declined":           true,
	"expired_card":            true,
	"authentication_required": true,
}

// GatewayError wraps a gateway failure with its retryability class.
type GatewayError struct {
	Code      string
	Retryable bool
	Err       error
}

// NewGatewayError classifies a gateway failure by its error code.
func NewGatewayError(code string, err error) *GatewayError {
	return &GatewayError{
		Code:      code,
		Retryable: !nonRetryableCodes[code],
		Err:       err,
	}
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway error (%s): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("gateway error (%s)", e.Code)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// IsRetryableGatewayError reports whether err is a gateway failure worth
// retrying. Unclassified errors (network timeouts and the like) count as
// retryable.
func IsRetryableGatewayError(err error) bool {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Retryable
	}
	return true
}
