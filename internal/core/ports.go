package core

import (
	"context"
	"errors"
	"time"
)

// ErrBudgetExhausted is returned by callers that stop a run once the body fetch budget is used up
var ErrBudgetExhausted = errors.New("body fetch budget exhausted")

// MailSource is the upstream mail API
type MailSource interface {
	// ListMessageIDs returns one page of message ids and the token for the next page ("" when done)
	ListMessageIDs(ctx context.Context, q SearchQuery, pageToken string) ([]string, string, error)

	// GetMessage fetches a message in the requested format
	GetMessage(ctx context.Context, id string, format Format) (*Message, error)
}

// MetadataGate decides whether a message is worth fetching in full
type MetadataGate interface {
	Evaluate(meta *MailMeta) GateDecision
}

// DecodeReport describes how a body was decoded
type DecodeReport struct {
	Charset  string
	Detected bool
	Fallback bool
}

// BodyDecoder turns a MIME tree into text
type BodyDecoder interface {
	Decode(part *MessagePart) (MailText, DecodeReport)

	// Flatten returns the authoritative body as normalized plain text
	Flatten(text MailText) string
}

// Classifier decides whether a message is a card usage notice and extracts its details
type Classifier interface {
	Classify(meta *MailMeta, text MailText) *ClassificationResult
}

// Enricher maps extracted merchant text to a normalized merchant and category
type Enricher interface {
	Enrich(ctx context.Context, in EnrichInput) Enrichment
}

// MerchantCategorizer is an optional model-backed fallback for unknown merchants
type MerchantCategorizer interface {
	CategorizeMerchant(ctx context.Context, q *MerchantQuery) (*MerchantCategory, error)
}

// MessageLedger remembers which messages have already been handled
type MessageLedger interface {
	// Get retrieves the entry for a message id
	Get(ctx context.Context, messageID string) (*LedgerEntry, error)

	// Set stores an entry
	Set(ctx context.Context, entry *LedgerEntry) error

	// Delete removes an entry
	Delete(ctx context.Context, messageID string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// TransactionStore persists accepted transactions
type TransactionStore interface {
	// Save inserts or replaces the transaction for its source message
	Save(ctx context.Context, tx *Transaction) error

	// List returns transactions dated on or after since, oldest first
	List(ctx context.Context, since time.Time) ([]Transaction, error)
}

// QueryBuilder builds the upstream search query for a lookback window
type QueryBuilder interface {
	Query(lookbackDays int, now time.Time) SearchQuery
}
