package ledger

import "time"

// Config holds configuration for ledger operations.
type Config struct {
	// DefaultCurrency is assigned to lazily created wallets.
	DefaultCurrency string

	// CurrencyChangeCooldown is the minimum time between successive
	// currency switches on the same wallet.
	CurrencyChangeCooldown time.Duration
}
