package repositories

import (
	"context"
	"errors"
	"time"

	"bookpay/internal/models"
)

// ErrCacheMiss is returned when a key is not in the cache.
var ErrCacheMiss = errors.New("cache miss")

// CacheRepository defines the cache operations the ledger core relies on.
type CacheRepository interface {
	// Wallet-specific operations
	GetWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	SetWallet(ctx context.Context, userID uint, wallet *models.Wallet) error
	DeleteWallet(ctx context.Context, userID uint) error

	// CooldownActive reports whether a cooldown claimed via
	// StartCooldown is still within its TTL.
	CooldownActive(ctx context.Context, key string) (bool, error)

	// StartCooldown claims a cooldown slot for the key. Callers start
	// the cooldown only after the guarded operation has succeeded.
	StartCooldown(ctx context.Context, key string, ttl time.Duration) error
}

// Default cache expiration time
const DefaultExpiration = 24 * time.Hour
