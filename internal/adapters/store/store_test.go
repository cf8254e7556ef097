package store

import (
	"context"
	"testing"
	"time"

	"github.com/s1f10230230/credit-visual-sub000/internal/core"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	day := func(d int) time.Time { return time.Date(2025, 8, d, 0, 0, 0, 0, time.UTC) }
	for _, tx := range []core.Transaction{
		{SourceMessageID: "b", Amount: 200, Date: day(10)},
		{SourceMessageID: "a", Amount: 100, Date: day(1)},
		{SourceMessageID: "c", Amount: 300, Date: day(20)},
		{SourceMessageID: "b", Amount: 250, Date: day(10)},
	} {
		tx := tx
		if err := s.Save(ctx, &tx); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	got, err := s.List(ctx, day(5))
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() returned %d transactions, want 2", len(got))
	}
	if got[0].SourceMessageID != "b" || got[0].Amount != 250 {
		t.Errorf("first = %+v, want replaced b", got[0])
	}
	if got[1].SourceMessageID != "c" {
		t.Errorf("second = %+v, want c", got[1])
	}
}
