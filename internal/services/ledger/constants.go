package ledger

import "time"

// Default configuration values
const (
	DefaultCurrency         = "USD"
	DefaultCurrencyCooldown = 24 * time.Hour

	// maxCASRetries bounds the optimistic-concurrency retry loop around
	// each balance mutation.
	maxCASRetries = 5
)

// referenceCurrency is the currency the audit shadow balance is kept in.
const referenceCurrency = "USD"
