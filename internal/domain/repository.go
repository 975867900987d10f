// Package domain defines the core interfaces and types for Kestrel.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for transaction history persistence.
// It stores dataset transactions (the account-behavior signal's evidence)
// only; classification verdicts are never persisted.
type Repository interface {
	// SaveTransaction stores a single transaction record.
	SaveTransaction(ctx context.Context, tx *Transaction) error

	// SaveTransactions stores a batch of transaction records in one
	// database transaction. Used by the dataset importer.
	SaveTransactions(ctx context.Context, txs []*Transaction) error

	// GetTransaction retrieves a transaction by ID.
	GetTransaction(ctx context.Context, txID string) (*Transaction, error)

	// GetTransactionsByOrigin retrieves the most recent transactions sent
	// by an origin account, newest first, up to limit.
	GetTransactionsByOrigin(ctx context.Context, originID string, limit int) ([]*Transaction, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
