// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

const insertTransaction = `
	INSERT INTO transactions (
		id, step, type, origin_id, origin_old_balance, origin_new_balance,
		dest_id, dest_old_balance, dest_new_balance, amount, is_fraud,
		timestamp, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectTransaction = `
	SELECT id, step, type, origin_id, origin_old_balance, origin_new_balance,
		   dest_id, dest_old_balance, dest_new_balance, amount, is_fraud,
		   timestamp, created_at
	FROM transactions
`

// SaveTransaction stores a transaction record.
func (r *SQLRepository) SaveTransaction(ctx context.Context, tx *domain.Transaction) error {
	if tx == nil || tx.ID == "" {
		return fmt.Errorf("%w: transaction with ID is required", ErrInvalidInput)
	}

	_, err := r.db.ExecContext(ctx, r.rebind(insertTransaction),
		tx.ID, tx.Step, tx.Type,
		tx.OriginID, tx.OriginOldBalance, tx.OriginNewBalance,
		tx.DestID, tx.DestOldBalance, tx.DestNewBalance,
		tx.Amount, boolToInt(tx.IsFraud),
		tx.Timestamp, tx.CreatedAt,
	)
	return err
}

// SaveTransactions stores a batch of records inside one database
// transaction. The importer relies on this for throughput.
func (r *SQLRepository) SaveTransactions(ctx context.Context, txs []*domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx, r.rebind(insertTransaction))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, tx := range txs {
		if tx == nil || tx.ID == "" {
			return fmt.Errorf("%w: transaction with ID is required", ErrInvalidInput)
		}
		if _, err := stmt.ExecContext(ctx,
			tx.ID, tx.Step, tx.Type,
			tx.OriginID, tx.OriginOldBalance, tx.OriginNewBalance,
			tx.DestID, tx.DestOldBalance, tx.DestNewBalance,
			tx.Amount, boolToInt(tx.IsFraud),
			tx.Timestamp, tx.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert %s: %w", tx.ID, err)
		}
	}

	return dbTx.Commit()
}

// GetTransaction retrieves a transaction by ID.
func (r *SQLRepository) GetTransaction(ctx context.Context, txID string) (*domain.Transaction, error) {
	if txID == "" {
		return nil, fmt.Errorf("%w: txID is required", ErrInvalidInput)
	}

	query := selectTransaction + ` WHERE id = ?`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, r.rebind(query), txID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// GetTransactionsByOrigin retrieves the most recent transactions sent by
// an origin account, newest first.
func (r *SQLRepository) GetTransactionsByOrigin(ctx context.Context, originID string, limit int) ([]*domain.Transaction, error) {
	if originID == "" {
		return nil, fmt.Errorf("%w: originID is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 10
	}

	query := selectTransaction + `
		WHERE origin_id = ?
		ORDER BY step DESC, created_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), originID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var isFraud int

	err := row.Scan(
		&tx.ID, &tx.Step, &tx.Type,
		&tx.OriginID, &tx.OriginOldBalance, &tx.OriginNewBalance,
		&tx.DestID, &tx.DestOldBalance, &tx.DestNewBalance,
		&tx.Amount, &isFraud,
		&tx.Timestamp, &tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.IsFraud = isFraud == 1
	return &tx, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
