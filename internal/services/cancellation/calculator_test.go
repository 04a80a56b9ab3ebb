package cancellation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculateFee(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	total := decimal.NewFromInt(100)

	tests := []struct {
		name        string
		itemType    string
		until       time.Duration
		canCancel   bool
		wantPercent int64
		wantRefund  string
		wantFee     string
	}{
		{"venue 25h full refund", "venue", 25 * time.Hour, true, 100, "100.00", "0.00"},
		{"venue exactly 24h full refund", "venue", 24 * time.Hour, true, 100, "100.00", "0.00"},
		{"venue 18h", "venue", 18 * time.Hour, true, 80, "80.00", "20.00"},
		{"venue exactly 12h", "venue", 12 * time.Hour, true, 80, "80.00", "20.00"},
		{"venue 10h half refund", "venue", 10 * time.Hour, true, 50, "50.00", "50.00"},
		{"venue exactly 6h", "venue", 6 * time.Hour, true, 50, "50.00", "50.00"},
		{"venue 2h no refund", "venue", 2 * time.Hour, true, 0, "0.00", "100.00"},
		{"equipment 3d full refund", "equipment", 72 * time.Hour, true, 100, "100.00", "0.00"},
		{"equipment exactly 2d", "equipment", 48 * time.Hour, true, 100, "100.00", "0.00"},
		{"equipment 30h", "equipment", 30 * time.Hour, true, 70, "70.00", "30.00"},
		{"equipment exactly 1d", "equipment", 24 * time.Hour, true, 70, "70.00", "30.00"},
		{"equipment 18h no refund", "equipment", 18 * time.Hour, true, 0, "0.00", "100.00"},
		{"tutorial 30h", "tutorial", 30 * time.Hour, true, 70, "70.00", "30.00"},
		{"unknown type 36h", "workshop", 36 * time.Hour, true, 100, "100.00", "0.00"},
		{"unknown type 12h", "workshop", 12 * time.Hour, true, 0, "0.00", "100.00"},
		{"past booking", "venue", -time.Hour, false, 0, "0.00", "100.00"},
	}

	calc := NewCalculator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.CalculateFee(tt.itemType, now.Add(tt.until), now, total)
			assert.Equal(t, tt.canCancel, got.CanCancel)
			assert.Equal(t, tt.wantPercent, got.RefundPercent)
			assert.Equal(t, tt.wantRefund, got.RefundAmount.StringFixed(2))
			assert.Equal(t, tt.wantFee, got.FeeAmount.StringFixed(2))
			assert.NotEmpty(t, got.Reason)
		})
	}
}

func TestCalculateFee_RefundPlusFeeEqualsTotal(t *testing.T) {
	now := time.Now()
	total := decimal.RequireFromString("99.99")

	calc := NewCalculator()
	for _, until := range []time.Duration{2 * time.Hour, 10 * time.Hour, 18 * time.Hour, 48 * time.Hour} {
		got := calc.CalculateFee("venue", now.Add(until), now, total)
		assert.True(t, got.RefundAmount.Add(got.FeeAmount).Equal(total),
			"refund %s + fee %s != total %s", got.RefundAmount, got.FeeAmount, total)
	}
}
