package repository

// Schema definitions for the Kestrel database.
// Compatible with both SQLite and PostgreSQL.

const schemaTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    step INTEGER NOT NULL,
    type TEXT NOT NULL,
    origin_id TEXT NOT NULL,
    origin_old_balance REAL NOT NULL,
    origin_new_balance REAL NOT NULL,
    dest_id TEXT NOT NULL,
    dest_old_balance REAL NOT NULL,
    dest_new_balance REAL NOT NULL,
    amount REAL NOT NULL,
    is_fraud INTEGER NOT NULL DEFAULT 0,
    timestamp TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_origin ON transactions(origin_id, step);
CREATE INDEX IF NOT EXISTS idx_transactions_dest ON transactions(dest_id);
CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions(timestamp);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaTransactions,
	}
}
