// Package store persists accepted transactions.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/s1f10230230/credit-visual-sub000/internal/core"
)

// MemoryStore keeps transactions in memory, keyed by source message
type MemoryStore struct {
	mu  sync.RWMutex
	txs map[string]core.Transaction
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{txs: make(map[string]core.Transaction)}
}

// Save inserts or replaces the transaction for its source message
func (s *MemoryStore) Save(ctx context.Context, tx *core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.txs[tx.SourceMessageID] = *tx
	return nil
}

// List returns transactions dated on or after since, oldest first
func (s *MemoryStore) List(ctx context.Context, since time.Time) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		if tx.Date.Before(since) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].SourceMessageID < out[j].SourceMessageID
	})
	return out, nil
}
