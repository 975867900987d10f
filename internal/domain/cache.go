package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations. Supports two-phase
// caching: local LRU (Community) + Redis (Pro). Kestrel caches account
// history summaries so repeated classifications of the same origin do not
// re-query the repository.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// GetHistorySummary retrieves a cached account history summary.
	GetHistorySummary(ctx context.Context, originID string) (*HistorySummary, error)

	// SetHistorySummary caches an account history summary.
	SetHistorySummary(ctx context.Context, originID string, summary *HistorySummary, ttl time.Duration) error

	// IncrementCounter atomically increments a counter and returns the
	// new value. Used for per-account classification rate tracking.
	IncrementCounter(ctx context.Context, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// HistorySummary is the cached digest of an origin account's recent
// activity, consumed by the account-behavior signal.
type HistorySummary struct {
	OriginID      string  `json:"originId"`
	Transactions  int     `json:"transactions"`
	FraudCount    int     `json:"fraudCount"`
	FraudRate     float64 `json:"fraudRate"` // percent
	TransferCount int     `json:"transferCount"`
	CashOutCount  int     `json:"cashOutCount"`
	AvgAmount     float64 `json:"avgAmount"`
	MaxAmount     float64 `json:"maxAmount"`
}

// HighRiskCount returns the number of prior TRANSFER/CASH_OUT
// transactions, the pattern a trusted account repeats.
func (s *HistorySummary) HighRiskCount() int {
	return s.TransferCount + s.CashOutCount
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings (Community tier)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (Pro tier)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}
