package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Service errors
var (
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrUnsupportedCurrency  = errors.New("unsupported currency")
	ErrCurrencyChangeOnHold = errors.New("currency was changed recently, try again later")
	ErrWalletBusy           = errors.New("wallet is being updated, try again")
)

// InsufficientFundsError is returned when a debit exceeds the available
// balance. Both figures are in the wallet's currency so callers can show
// the shortfall to the user.
type InsufficientFundsError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
	Currency  string
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance %s %s, requested %s %s (short %s %s)",
		e.Available.StringFixed(2), e.Currency,
		e.Requested.StringFixed(2), e.Currency,
		e.Shortfall().StringFixed(2), e.Currency)
}

// Shortfall returns how much is missing to cover the requested debit.
func (e *InsufficientFundsError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}
