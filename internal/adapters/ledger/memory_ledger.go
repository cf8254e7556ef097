// Package ledger records which messages have already been handled so later runs
// never fetch them again.
package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when a ledger entry is not found
	ErrNotFound = errors.New("ledger entry not found")
	// ErrExpired is returned when a ledger entry has expired
	ErrExpired = errors.New("ledger entry expired")
)

// MemoryLedger is an in-memory implementation of core.MessageLedger
type MemoryLedger struct {
	entries     map[string]core.LedgerEntry
	mu          sync.RWMutex
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	now         func() time.Time
}

// NewMemoryLedger creates a new in-memory ledger. A zero cleanupFreq disables the
// background cleanup task.
func NewMemoryLedger(logger *zap.Logger, cleanupFreq time.Duration) *MemoryLedger {
	l := &MemoryLedger{
		entries:     make(map[string]core.LedgerEntry),
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
		now:         time.Now,
	}

	if cleanupFreq > 0 {
		go l.startCleanupTask()
	}

	return l
}

// Get retrieves the entry for a message
func (l *MemoryLedger) Get(ctx context.Context, messageID string) (*core.LedgerEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.entries[messageID]
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.ExpiresAt.IsZero() && l.now().After(entry.ExpiresAt) {
		return nil, ErrExpired
	}
	return &entry, nil
}

// Set stores an entry
func (l *MemoryLedger) Set(ctx context.Context, entry *core.LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[entry.MessageID] = *entry
	return nil
}

// Delete removes an entry
func (l *MemoryLedger) Delete(ctx context.Context, messageID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.entries, messageID)
	return nil
}

// Cleanup removes expired entries
func (l *MemoryLedger) Cleanup(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	expiredCount := 0

	for id, entry := range l.entries {
		if !entry.ExpiresAt.IsZero() && now.After(entry.ExpiresAt) {
			delete(l.entries, id)
			expiredCount++
		}
	}

	l.logger.Debug("Cleaned up expired ledger entries", zap.Int("expired_count", expiredCount))
	return nil
}

// Len returns the number of stored entries, expired ones included
func (l *MemoryLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *MemoryLedger) startCleanupTask() {
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

// Stop stops the background cleanup task
func (l *MemoryLedger) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}
