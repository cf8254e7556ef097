package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"go.uber.org/zap"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS transactions (
		source_message_id TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		amount INTEGER NOT NULL,
		currency TEXT NOT NULL,
		merchant TEXT,
		merchant_raw TEXT,
		category TEXT,
		subscription BOOLEAN,
		tx_date INTEGER NOT NULL,
		confidence INTEGER,
		trust TEXT,
		card_last4 TEXT,
		issuer TEXT,
		wallet TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(tx_date);
`

const mysqlSchema = `
	CREATE TABLE IF NOT EXISTS transactions (
		source_message_id VARCHAR(255) PRIMARY KEY,
		id CHAR(36) NOT NULL,
		amount BIGINT NOT NULL,
		currency VARCHAR(8) NOT NULL,
		merchant VARCHAR(255),
		merchant_raw VARCHAR(255),
		category VARCHAR(64),
		subscription BOOLEAN,
		tx_date BIGINT NOT NULL,
		confidence INT,
		trust VARCHAR(16),
		card_last4 VARCHAR(4),
		issuer VARCHAR(128),
		wallet VARCHAR(32),
		created_at BIGINT NOT NULL,
		INDEX idx_transactions_date (tx_date)
	)
`

const columns = `source_message_id, id, amount, currency, merchant, merchant_raw, category, subscription,
		tx_date, confidence, trust, card_last4, issuer, wallet, created_at`

const sqliteUpsert = `INSERT OR REPLACE INTO transactions (` + columns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const mysqlUpsert = `INSERT INTO transactions (` + columns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		id = VALUES(id), amount = VALUES(amount), currency = VALUES(currency), merchant = VALUES(merchant),
		merchant_raw = VALUES(merchant_raw), category = VALUES(category), subscription = VALUES(subscription),
		tx_date = VALUES(tx_date), confidence = VALUES(confidence), trust = VALUES(trust),
		card_last4 = VALUES(card_last4), issuer = VALUES(issuer), wallet = VALUES(wallet),
		created_at = VALUES(created_at)`

// SQLStore keeps transactions in a SQL table, one row per source message
type SQLStore struct {
	db      *sql.DB
	dialect string
	upsert  string
	logger  *zap.Logger
}

// NewSQLiteStore opens (or creates) a SQLite transaction store
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return newSQLStore(db, "sqlite", sqliteSchema, sqliteUpsert, logger)
}

// NewMySQLStore connects to MySQL and ensures the transactions table exists
func NewMySQLStore(dsn string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}
	return newSQLStore(db, "mysql", mysqlSchema, mysqlUpsert, logger)
}

func newSQLStore(db *sql.DB, dialect, schema, upsert string, logger *zap.Logger) (*SQLStore, error) {
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return &SQLStore{db: db, dialect: dialect, upsert: upsert, logger: logger}, nil
}

// Save inserts or replaces the transaction for its source message
func (s *SQLStore) Save(ctx context.Context, tx *core.Transaction) error {
	_, err := s.db.ExecContext(ctx, s.upsert,
		tx.SourceMessageID, tx.ID, tx.Amount, tx.Currency, tx.Merchant, tx.MerchantRaw, tx.Category, tx.Subscription,
		tx.Date.Unix(), tx.Confidence, tx.Trust.String(), tx.CardLast4, tx.Issuer, tx.Wallet, tx.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

// List returns transactions dated on or after since, oldest first
func (s *SQLStore) List(ctx context.Context, since time.Time) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+`
		FROM transactions
		WHERE tx_date >= ?
		ORDER BY tx_date ASC, source_message_id ASC
	`, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var tx core.Transaction
		var merchant, merchantRaw, category, trust, last4, issuer, wallet sql.NullString
		var subscription sql.NullBool
		var confidence sql.NullInt64
		var date, created int64

		if err := rows.Scan(&tx.SourceMessageID, &tx.ID, &tx.Amount, &tx.Currency, &merchant, &merchantRaw, &category,
			&subscription, &date, &confidence, &trust, &last4, &issuer, &wallet, &created); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		tx.Merchant = merchant.String
		tx.MerchantRaw = merchantRaw.String
		tx.Category = category.String
		tx.Subscription = subscription.Bool
		tx.Date = time.Unix(date, 0)
		tx.Confidence = int(confidence.Int64)
		tx.Trust = core.ParseTrustLevel(trust.String)
		tx.CardLast4 = last4.String
		tx.Issuer = issuer.String
		tx.Wallet = wallet.String
		tx.CreatedAt = time.Unix(created, 0)
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}
	return out, nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close transaction store", zap.String("dialect", s.dialect), zap.Error(err))
		return err
	}
	return nil
}
