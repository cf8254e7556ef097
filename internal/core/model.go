package core

import (
	"net/mail"
	"sort"
	"strings"
	"time"
)

// Format selects how much of a message a MailSource returns
type Format string

const (
	// FormatMetadata returns headers and labels only
	FormatMetadata Format = "metadata"
	// FormatFull returns the complete MIME tree
	FormatFull Format = "full"
)

// SearchQuery is the upstream search expression plus the window it covers
type SearchQuery struct {
	Expression string
	Since      time.Time
}

// MailMeta is the metadata view of a message. It is not modified after it is fetched.
type MailMeta struct {
	ID       string
	ThreadID string
	From     string
	Subject  string
	Labels   []string
	Headers  map[string]string
	Date     time.Time
}

// Header returns a header value using a case-insensitive name lookup
func (m *MailMeta) Header(name string) string {
	if v, ok := m.Headers[name]; ok {
		return v
	}
	for k, v := range m.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// HasLabel reports whether the message carries the given label
func (m *MailMeta) HasLabel(label string) bool {
	for _, l := range m.Labels {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}

// SenderDomain returns the lowercased domain of the From address
func (m *MailMeta) SenderDomain() string {
	return DomainOf(m.From)
}

// DomainOf extracts the lowercased domain from an address or a full From header
func DomainOf(from string) string {
	addr := strings.TrimSpace(from)
	if parsed, err := mail.ParseAddress(addr); err == nil {
		addr = parsed.Address
	} else if i := strings.LastIndex(addr, "<"); i >= 0 {
		addr = strings.TrimSuffix(addr[i+1:], ">")
	}

	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(strings.Trim(addr[at+1:], " >.\t"))
}

// MessagePart is a node of the MIME tree. Body holds the part's bytes before charset conversion.
type MessagePart struct {
	MimeType string
	Filename string
	Headers  map[string]string
	Body     []byte
	Parts    []*MessagePart
}

// Header returns a part header using a case-insensitive name lookup
func (p *MessagePart) Header(name string) string {
	for k, v := range p.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Message is a fetched message. Payload is nil for FormatMetadata.
type Message struct {
	Meta    MailMeta
	Payload *MessagePart
}

// MailText holds the decoded bodies. Plain is authoritative when it is not blank.
type MailText struct {
	Plain string
	HTML  string
}

// IsEmpty reports whether neither body carries any text
func (t MailText) IsEmpty() bool {
	return strings.TrimSpace(t.Plain) == "" && strings.TrimSpace(t.HTML) == ""
}

// TrustLevel is a coarse confidence bucket
type TrustLevel int

const (
	TrustLow TrustLevel = iota
	TrustMedium
	TrustHigh
)

func (t TrustLevel) String() string {
	switch t {
	case TrustHigh:
		return "high"
	case TrustMedium:
		return "medium"
	default:
		return "low"
	}
}

// ParseTrustLevel is the inverse of TrustLevel.String
func ParseTrustLevel(s string) TrustLevel {
	switch strings.ToLower(s) {
	case "high":
		return TrustHigh
	case "medium":
		return TrustMedium
	default:
		return TrustLow
	}
}

// AmountCandidate is one amount-like token found in a body
type AmountCandidate struct {
	Raw            string
	Offset         int
	Score          int
	Value          int64
	CurrencyMarked bool
	// Context is set when a monetary keyword was found near the number
	Context bool
	Rule    string
}

// CardHints carries the card details a notice mentions
type CardHints struct {
	Issuer string
	Last4  string
	// TokenLast4 is the wallet token's number, never the card's
	TokenLast4 string
	Wallet     string
}

// ClassificationResult is the classifier's verdict for one message
type ClassificationResult struct {
	OK         bool
	Trust      TrustLevel
	Amount     int64
	Currency   string
	Date       string
	Merchant   string
	Confidence int
	Reasons    []string
	Card       CardHints
}

// HasReason reports whether the result carries the given reason tag
func (r *ClassificationResult) HasReason(reason string) bool {
	for _, rr := range r.Reasons {
		if rr == reason {
			return true
		}
	}
	return false
}

// RejectReason returns the terminal reason of a rejected result
func (r *ClassificationResult) RejectReason() string {
	if r.OK || len(r.Reasons) == 0 {
		return ""
	}
	return r.Reasons[len(r.Reasons)-1]
}

// GateDecision is the metadata gate's verdict. Weight is only meaningful when Pass is true.
type GateDecision struct {
	Pass   bool
	Reason string
	Weight int
}

// EnrichInput is what the enrichment stage looks at
type EnrichInput struct {
	Merchant     string
	Snippet      string
	Amount       int64
	SenderDomain string
}

// Enrichment is the normalized merchant view of an accepted result
type Enrichment struct {
	Merchant     string
	Category     string
	Subscription bool
	Billing      string
	Confidence   float64
	Source       string
}

// MerchantQuery is sent to an LLM categorizer when the dictionary has no confident match
type MerchantQuery struct {
	Merchant     string
	Snippet      string
	Amount       int64
	SenderDomain string
}

// MerchantCategory is an LLM categorizer's answer
type MerchantCategory struct {
	Merchant     string
	Category     string
	Subscription bool
	Confidence   float64
	ModelUsed    string
}

// Transaction is an accepted card usage handed to the store
type Transaction struct {
	ID              string
	SourceMessageID string
	Amount          int64
	Currency        string
	Merchant        string
	MerchantRaw     string
	Category        string
	Subscription    bool
	Date            time.Time
	Confidence      int
	Trust           TrustLevel
	CardLast4       string
	Issuer          string
	Wallet          string
	CreatedAt       time.Time
}

// LedgerEntry records that a message has been handled so later runs skip it
type LedgerEntry struct {
	MessageID   string
	Outcome     string
	Confidence  int
	ProcessedAt time.Time
	ExpiresAt   time.Time
}

// Pipeline stages used as RunReport.Rejections keys
const (
	StageList     = "list"
	StageDedup    = "dedup"
	StageMetadata = "metadata"
	StageGate     = "gate"
	StageBody     = "body"
	StageDecode   = "decode"
	StageClassify = "classify"
	StageStore    = "store"
)

// RunReport summarises one pipeline run
type RunReport struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Listed       int
	Unique       int
	Gated        int
	Fetched      int
	Classified   int
	Accepted     int
	Rejections   map[string]map[string]int
	FetchOrder   []string
	Transactions []Transaction
}

// NewRunReport creates an empty report
func NewRunReport(runID string) *RunReport {
	return &RunReport{
		RunID:      runID,
		StartedAt:  time.Now(),
		Rejections: make(map[string]map[string]int),
	}
}

// Reject counts one rejection for a stage
func (r *RunReport) Reject(stage, reason string) {
	m, ok := r.Rejections[stage]
	if !ok {
		m = make(map[string]int)
		r.Rejections[stage] = m
	}
	m[reason]++
}

// Count returns the number of rejections recorded for a stage and reason
func (r *RunReport) Count(stage, reason string) int {
	return r.Rejections[stage][reason]
}

// Stages returns the stages that recorded rejections, sorted
func (r *RunReport) Stages() []string {
	stages := make([]string, 0, len(r.Rejections))
	for s := range r.Rejections {
		stages = append(stages, s)
	}
	sort.Strings(stages)
	return stages
}
