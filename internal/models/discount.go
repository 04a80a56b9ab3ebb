package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountKind selects how a discount reduces an order amount.
type DiscountKind string

const (
	DiscountKindPercentage DiscountKind = "percentage"
	DiscountKindFixed      DiscountKind = "fixed"
)

// DiscountScopeAll makes a discount applicable to every item type.
const DiscountScopeAll = "all"

// Discount is a redeemable rule that reduces an order's chargeable
// amount. Codes are stored uppercase and looked up case-insensitively.
// Discounts referenced by historical payments are deactivated, never
// physically deleted.
type Discount struct {
	ID          uint            `gorm:"primarykey"`
	Code        string          `gorm:"uniqueIndex;size:64;not null"`
	Kind        DiscountKind    `gorm:"size:16;not null"`
	Value       decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	MaxUses     int             `gorm:"not null"`
	CurrentUses int             `gorm:"not null;default:0"`
	ExpiresAt   time.Time       `gorm:"not null"`

	MinOrderValue     *decimal.Decimal `gorm:"type:numeric(20,2)"`
	MaxDiscountAmount *decimal.Decimal `gorm:"type:numeric(20,2)"`

	// AppliesTo is either DiscountScopeAll or a single item type
	// (venue, equipment, tutorial).
	AppliesTo string `gorm:"size:32;not null;default:'all'"`
	Active    bool   `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
