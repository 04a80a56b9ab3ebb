package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// EntryDirection tags how a ledger entry moves the balance.
type EntryDirection string

const (
	DirectionCredit     EntryDirection = "credit"
	DirectionDebit      EntryDirection = "debit"
	DirectionConversion EntryDirection = "conversion"
)

// LedgerEntry is an immutable record of a wallet balance change. Entries
// are append-only; corrections are new offsetting entries, never edits.
type LedgerEntry struct {
	ID          uint            `gorm:"primarykey"`
	WalletID    uint            `gorm:"index;not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(20,2);not null"` // positive magnitude
	Direction   EntryDirection  `gorm:"size:16;not null"`
	Description string
	Reference   string    `gorm:"index"` // optional link to a payment or booking
	Meta        EntryMeta `gorm:"type:jsonb"`
	CreatedAt   time.Time
}

// SignedAmount returns the entry's contribution to the wallet balance.
// Conversion entries restate the whole balance and carry no delta of
// their own; the before/after figures live in Meta.
func (e *LedgerEntry) SignedAmount() decimal.Decimal {
	switch e.Direction {
	case DirectionDebit:
		return e.Amount.Neg()
	case DirectionConversion:
		return decimal.Zero
	default:
		return e.Amount
	}
}

// EntryMeta is the closed set of extra fields a ledger entry may carry.
// Credit/debit entries that crossed currencies record the original
// figures; conversion entries record the full before/after balances.
type EntryMeta struct {
	OriginalAmount   *decimal.Decimal `json:"original_amount,omitempty"`
	OriginalCurrency string           `json:"original_currency,omitempty"`
	ConvertedAmount  *decimal.Decimal `json:"converted_amount,omitempty"`
	NewCurrency      string           `json:"new_currency,omitempty"`
}

// Value implements the driver.Valuer interface
func (m EntryMeta) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface
func (m *EntryMeta) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("unsupported ledger entry meta type")
	}
	return json.Unmarshal(bytes, m)
}

// IsZero reports whether the meta carries no fields at all.
func (m EntryMeta) IsZero() bool {
	return m.OriginalAmount == nil && m.OriginalCurrency == "" &&
		m.ConvertedAmount == nil && m.NewCurrency == ""
}
