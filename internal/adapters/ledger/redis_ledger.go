package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"go.uber.org/zap"
)

// RedisKeyPrefix prefixes every ledger key
const RedisKeyPrefix = "cardmail:ledger:"

// RedisLedger stores entries as JSON values whose TTL is the entry's expiry
type RedisLedger struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisLedger connects to redis and checks the connection
func NewRedisLedger(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*RedisLedger, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisLedgerWithClient(client, logger), nil
}

// NewRedisLedgerWithClient wraps an existing client
func NewRedisLedgerWithClient(client *redis.Client, logger *zap.Logger) *RedisLedger {
	return &RedisLedger{client: client, logger: logger}
}

// Get retrieves the entry for a message
func (l *RedisLedger) Get(ctx context.Context, messageID string) (*core.LedgerEntry, error) {
	data, err := l.client.Get(ctx, RedisKeyPrefix+messageID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}

	var entry core.LedgerEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode ledger entry: %w", err)
	}
	return &entry, nil
}

// Set stores an entry. Entries that are already expired are not written.
func (l *RedisLedger) Set(ctx context.Context, entry *core.LedgerEntry) error {
	var ttl time.Duration
	if !entry.ExpiresAt.IsZero() {
		ttl = time.Until(entry.ExpiresAt)
		if ttl <= 0 {
			return nil
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode ledger entry: %w", err)
	}
	if err := l.client.Set(ctx, RedisKeyPrefix+entry.MessageID, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store ledger entry: %w", err)
	}
	return nil
}

// Delete removes an entry
func (l *RedisLedger) Delete(ctx context.Context, messageID string) error {
	if err := l.client.Del(ctx, RedisKeyPrefix+messageID).Err(); err != nil {
		return fmt.Errorf("failed to delete ledger entry: %w", err)
	}
	return nil
}

// Cleanup is a no-op: redis expires keys itself
func (l *RedisLedger) Cleanup(ctx context.Context) error {
	return nil
}

// Stop closes the client
func (l *RedisLedger) Stop() {
	if err := l.client.Close(); err != nil {
		l.logger.Error("Failed to close redis client", zap.Error(err))
	}
}
