package ledger

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

const mysqlSchema = `
	CREATE TABLE IF NOT EXISTS processed_messages (
		message_id VARCHAR(255) PRIMARY KEY,
		outcome VARCHAR(128) NOT NULL,
		confidence INT NOT NULL DEFAULT 0,
		processed_at BIGINT NOT NULL,
		expires_at BIGINT NOT NULL,
		INDEX idx_processed_expires_at (expires_at)
	)
`

const mysqlUpsert = `
	INSERT INTO processed_messages (message_id, outcome, confidence, processed_at, expires_at)
	VALUES (?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		outcome = VALUES(outcome),
		confidence = VALUES(confidence),
		processed_at = VALUES(processed_at),
		expires_at = VALUES(expires_at)
`

// NewMySQLLedger connects to MySQL and ensures the ledger table exists
func NewMySQLLedger(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLLedger, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	return newSQLLedger(db, "mysql", mysqlSchema, mysqlUpsert, logger, cleanupFreq)
}
