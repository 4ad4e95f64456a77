package idempotency

import (
	"context"
	"time"
)

// KeyRepository manages idempotency keys for the REST API.
// Implementations must ensure thread-safety and atomic operations.
type KeyRepository interface {
	// AcquireLock attempts to acquire a lock for the given idempotency key.
	// Returns the existing or newly created key, a boolean indicating if this
	// is a new key, and an error. The operation must be atomic.
	AcquireLock(ctx context.Context, key *IdempotencyKey) (*IdempotencyKey, bool, error)

	// ReleaseLock releases the lock on an idempotency key, typically after a
	// failed request so a retry can proceed.
	ReleaseLock(ctx context.Context, keyID string) error

	// StoreResponse stores the final response for a completed request and
	// marks the key completed.
	StoreResponse(ctx context.Context, keyID string, responseCode int, responseBody []byte, headers map[string]string) error

	// Get retrieves an idempotency key by its key string and service ID
	Get(ctx context.Context, key, serviceID string) (*IdempotencyKey, error)

	// Clean removes expired idempotency keys and returns the number deleted
	Clean(ctx context.Context, before time.Time) (int64, error)

	// EnsureIndexes ensures that all required indexes are created
	EnsureIndexes(ctx context.Context) error
}

// MessageRepository manages processed messages for Kafka consumers.
type MessageRepository interface {
	// MarkProcessed records a message as processed. Returns
	// ErrMessageAlreadyProcessed if it was recorded before.
	MarkProcessed(ctx context.Context, msg *ProcessedMessage) error

	// IsProcessed checks if a message has been processed
	IsProcessed(ctx context.Context, messageID, topic, consumerGroup string) (bool, error)

	// Clean removes expired processed messages and returns the number deleted
	Clean(ctx context.Context, before time.Time) (int64, error)

	// EnsureIndexes ensures that all required indexes are created
	EnsureIndexes(ctx context.Context) error
}
