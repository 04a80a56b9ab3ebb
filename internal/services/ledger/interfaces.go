package ledger

import (
	"context"

	"bookpay/internal/models"

	"github.com/shopspring/decimal"
)

// Service defines the main ledger service interface.
type Service interface {
	// Core wallet operations
	GetOrCreateWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	Credit(ctx context.Context, userID uint, amount decimal.Decimal, currency, description, reference string) (*models.Wallet, error)
	Debit(ctx context.Context, userID uint, amount decimal.Decimal, currency, description, reference string) (*models.Wallet, error)

	// Currency management
	SetCurrency(ctx context.Context, userID uint, newCurrency string) (*models.Wallet, error)

	// History and audit
	ListTransactions(ctx context.Context, userID uint, limit, offset int) ([]models.LedgerEntry, error)
	VerifyBalance(ctx context.Context, userID uint) error
}

// Converter is the currency conversion capability the ledger depends on.
type Converter interface {
	Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error)
	Supports(code string) bool
}
