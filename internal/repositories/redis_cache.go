package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bookpay/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisCacheRepository struct {
	client *redis.Client
}

func NewRedisCacheRepository(client *redis.Client) CacheRepository {
	return &RedisCacheRepository{
		client: client,
	}
}

func walletCacheKey(userID uint) string {
	return fmt.Sprintf("wallet:user:%d", userID)
}

func (r *RedisCacheRepository) GetWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	val, err := r.client.Get(ctx, walletCacheKey(userID)).Result()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var wallet models.Wallet
	if err := json.Unmarshal([]byte(val), &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *RedisCacheRepository) SetWallet(ctx context.Context, userID uint, wallet *models.Wallet) error {
	data, err := json.Marshal(wallet)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, walletCacheKey(userID), data, DefaultExpiration).Err()
}

func (r *RedisCacheRepository) DeleteWallet(ctx context.Context, userID uint) error {
	return r.client.Del(ctx, walletCacheKey(userID)).Err()
}

func (r *RedisCacheRepository) CooldownActive(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisCacheRepository) StartCooldown(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Err()
}
