package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Wallet is a per-user internal balance usable as a payment method.
// Balance always equals the sum of signed ledger entry amounts and never
// goes negative. Wallets are created lazily and never deleted.
type Wallet struct {
	ID       uint            `gorm:"primarykey"`
	UserID   uint            `gorm:"uniqueIndex;not null"`
	Balance  decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Currency string          `gorm:"size:3;not null;default:'USD'"`

	// ReferenceBalanceUSD is an audit shadow of Balance expressed in USD,
	// recomputed in full after every mutation. Nothing reads it for
	// decisions; it exists for reconciliation reports.
	ReferenceBalanceUSD decimal.Decimal `gorm:"type:numeric(20,2);not null"`

	// Version guards concurrent balance updates via compare-and-swap.
	Version   uint `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	// Ensure balance starts at 0
	w.Balance = decimal.Zero
	w.ReferenceBalanceUSD = decimal.Zero
	return nil
}
