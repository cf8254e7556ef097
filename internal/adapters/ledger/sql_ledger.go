package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"go.uber.org/zap"
)

// SQLLedger stores entries in a SQL table. Timestamps are unix seconds so the same
// queries work on SQLite and MySQL.
type SQLLedger struct {
	db          *sql.DB
	dialect     string
	upsert      string
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

func newSQLLedger(db *sql.DB, dialect, schema, upsert string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLLedger, error) {
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	l := &SQLLedger{
		db:          db,
		dialect:     dialect,
		upsert:      upsert,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	if cleanupFreq > 0 {
		go l.startCleanupTask()
	}

	return l, nil
}

// Get retrieves an unexpired entry for a message
func (l *SQLLedger) Get(ctx context.Context, messageID string) (*core.LedgerEntry, error) {
	var entry core.LedgerEntry
	var processedAt, expiresAt int64

	err := l.db.QueryRowContext(ctx, `
		SELECT message_id, outcome, confidence, processed_at, expires_at
		FROM processed_messages
		WHERE message_id = ? AND expires_at > ?
	`, messageID, time.Now().Unix()).Scan(&entry.MessageID, &entry.Outcome, &entry.Confidence, &processedAt, &expiresAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}

	entry.ProcessedAt = time.Unix(processedAt, 0)
	entry.ExpiresAt = time.Unix(expiresAt, 0)
	return &entry, nil
}

// Set inserts or replaces an entry
func (l *SQLLedger) Set(ctx context.Context, entry *core.LedgerEntry) error {
	_, err := l.db.ExecContext(ctx, l.upsert,
		entry.MessageID, entry.Outcome, entry.Confidence, entry.ProcessedAt.Unix(), entry.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to store ledger entry: %w", err)
	}
	return nil
}

// Delete removes an entry
func (l *SQLLedger) Delete(ctx context.Context, messageID string) error {
	_, err := l.db.ExecContext(ctx, `
		DELETE FROM processed_messages
		WHERE message_id = ?
	`, messageID)

	if err != nil {
		return fmt.Errorf("failed to delete ledger entry: %w", err)
	}

	return nil
}

// Cleanup removes expired entries
func (l *SQLLedger) Cleanup(ctx context.Context) error {
	result, err := l.db.ExecContext(ctx, `
		DELETE FROM processed_messages
		WHERE expires_at <= ?
	`, time.Now().Unix())

	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		l.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		l.logger.Debug("Cleaned up expired ledger entries",
			zap.String("dialect", l.dialect),
			zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

func (l *SQLLedger) startCleanupTask() {
	ticker := time.NewTicker(l.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := l.Cleanup(context.Background()); err != nil {
				l.logger.Error("Failed to clean up ledger", zap.Error(err))
			}
		case <-l.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database connection
func (l *SQLLedger) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		if err := l.db.Close(); err != nil {
			l.logger.Error("Failed to close ledger database", zap.String("dialect", l.dialect), zap.Error(err))
		}
	})
}
