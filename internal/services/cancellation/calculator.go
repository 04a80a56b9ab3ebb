// Package cancellation computes refund percentages from time-to-event.
// The calculator is pure: results are recomputed on demand and never
// stored as source of truth.
package cancellation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Item types with dedicated policies.
const (
	ItemTypeVenue     = "venue"
	ItemTypeEquipment = "equipment"
	ItemTypeTutorial  = "tutorial"
)

// FeeResult describes the outcome of a cancellation request quote.
type FeeResult struct {
	CanCancel     bool
	RefundPercent int64
	RefundAmount  decimal.Decimal
	FeeAmount     decimal.Decimal
	Reason        string
}

// Calculator is a stateless fee calculator.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// CalculateFee returns the refund split for cancelling a booking of the
// given item type at the given moment. Tier lower bounds are inclusive:
// exactly 24 hours before a venue booking still refunds 100%.
func (c *Calculator) CalculateFee(itemType string, bookingDate, now time.Time, totalAmount decimal.Decimal) FeeResult {
	if bookingDate.Before(now) {
		return FeeResult{
			CanCancel:     false,
			RefundPercent: 0,
			RefundAmount:  decimal.Zero,
			FeeAmount:     totalAmount,
			Reason:        "booking time has already passed",
		}
	}

	hours := bookingDate.Sub(now).Hours()
	var percent int64
	var reason string

	switch itemType {
	case ItemTypeVenue:
		switch {
		case hours >= 24:
			percent, reason = 100, "cancelled 24 or more hours before the booking"
		case hours >= 12:
			percent, reason = 80, "cancelled between 12 and 24 hours before the booking"
		case hours >= 6:
			percent, reason = 50, "cancelled between 6 and 12 hours before the booking"
		default:
			percent, reason = 0, "cancelled less than 6 hours before the booking"
		}
	case ItemTypeEquipment, ItemTypeTutorial:
		days := hours / 24
		switch {
		case days >= 2:
			percent, reason = 100, "cancelled 2 or more days before the booking"
		case days >= 1:
			percent, reason = 70, "cancelled between 1 and 2 days before the booking"
		default:
			percent, reason = 0, "cancelled less than 1 day before the booking"
		}
	default:
		// unknown item types get a 24-hour all-or-nothing policy
		if hours >= 24 {
			percent, reason = 100, "cancelled 24 or more hours before the booking"
		} else {
			percent, reason = 0, "cancelled less than 24 hours before the booking"
		}
	}

	refund := totalAmount.Mul(decimal.NewFromInt(percent)).Div(decimal.NewFromInt(100)).Round(2)
	return FeeResult{
		CanCancel:     true,
		RefundPercent: percent,
		RefundAmount:  refund,
		FeeAmount:     totalAmount.Sub(refund),
		Reason:        fmt.Sprintf("%s: %d%% refund", reason, percent),
	}
}
