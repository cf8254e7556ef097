package ledger

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS processed_messages (
		message_id TEXT PRIMARY KEY,
		outcome TEXT NOT NULL,
		confidence INTEGER NOT NULL DEFAULT 0,
		processed_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_processed_expires_at ON processed_messages(expires_at);
`

const sqliteUpsert = `
	INSERT OR REPLACE INTO processed_messages (message_id, outcome, confidence, processed_at, expires_at)
	VALUES (?, ?, ?, ?, ?)
`

// NewSQLiteLedger opens (or creates) a SQLite ledger at dbPath
func NewSQLiteLedger(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLLedger, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	return newSQLLedger(db, "sqlite", sqliteSchema, sqliteUpsert, logger, cleanupFreq)
}
