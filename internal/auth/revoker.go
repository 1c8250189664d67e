package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker records logged-out session ids until their tokens expire.
type Revoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisRevoker keeps one expiring key per revoked session.
type RedisRevoker struct {
	client *redis.Client
	prefix string
}

func NewRedisRevoker(redisURL string) (*RedisRevoker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisRevokerWithClient(client), nil
}

func NewRedisRevokerWithClient(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{
		client: client,
		prefix: "casedesk:revoked:",
	}
}

func (r *RedisRevoker) key(jti string) string {
	return r.prefix + jti
}

func (r *RedisRevoker) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil // already unusable
	}
	if err := r.client.Set(ctx, r.key(jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("lookup revoked session: %w", err)
	}
	return n > 0, nil
}

func (r *RedisRevoker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRevoker) Close() error {
	return r.client.Close()
}

// RevocationStore is the slice of the data store used by StoreRevoker.
type RevocationStore interface {
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// StoreRevoker keeps revocations in the relational store when no Redis is configured.
type StoreRevoker struct {
	store RevocationStore
}

func NewStoreRevoker(store RevocationStore) *StoreRevoker {
	return &StoreRevoker{store: store}
}

func (r *StoreRevoker) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	return r.store.RevokeToken(ctx, jti, expiresAt)
}

func (r *StoreRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return r.store.IsTokenRevoked(ctx, jti)
}
