package repositories

import (
	"context"
	"errors"

	"bookpay/internal/models"
)

var (
	ErrWalletNotFound  = errors.New("wallet not found")
	ErrVersionConflict = errors.New("wallet version conflict")
)

// WalletRepository defines the interface for wallet and ledger entry
// database operations.
type WalletRepository interface {
	// Core wallet operations
	Create(wallet *models.Wallet) error
	GetByUserID(userID uint) (*models.Wallet, error)

	// UpdateWithVersion persists the wallet only if its Version column
	// still matches wallet.Version, then bumps it. Returns
	// ErrVersionConflict if another writer got there first.
	UpdateWithVersion(wallet *models.Wallet) error

	// Ledger entry operations. Entries are append-only.
	CreateEntry(entry *models.LedgerEntry) error
	ListEntries(ctx context.Context, walletID uint, limit, offset int) ([]models.LedgerEntry, error)

	// ExecuteInTransaction runs fn against a repository bound to a single
	// database transaction.
	ExecuteInTransaction(fn func(WalletRepository) error) error
}
