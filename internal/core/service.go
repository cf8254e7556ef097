package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var jst = time.FixedZone("JST", 9*60*60)

// PipelineOptions are the defaults applied to every run
type PipelineOptions struct {
	LookbackDays   int
	MaxPages       int
	MaxBodyFetches int
	Concurrency    int
	LedgerTTL      time.Duration
}

// RunOptions override PipelineOptions for a single run. Zero values keep the defaults.
type RunOptions struct {
	LookbackDays   int
	MaxBodyFetches int
	Concurrency    int
}

// ProcessResult is the outcome of pushing a single message through the pipeline
type ProcessResult struct {
	Duplicate   bool
	Decision    GateDecision
	Decode      DecodeReport
	Result      *ClassificationResult
	Transaction *Transaction
}

// Pipeline sequences query, gate, body decode, classification, enrichment and storage
type Pipeline struct {
	source     MailSource
	gate       MetadataGate
	decoder    BodyDecoder
	classifier Classifier
	enricher   Enricher
	ledger     MessageLedger
	store      TransactionStore
	queries    QueryBuilder
	opts       PipelineOptions
	logger     *zap.Logger
	now        func() time.Time
}

// NewPipeline creates a new pipeline. source, ledger and store may be nil.
func NewPipeline(
	source MailSource,
	gate MetadataGate,
	decoder BodyDecoder,
	classifier Classifier,
	enricher Enricher,
	ledger MessageLedger,
	store TransactionStore,
	queries QueryBuilder,
	opts PipelineOptions,
	logger *zap.Logger,
) *Pipeline {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 30
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.LedgerTTL <= 0 {
		opts.LedgerTTL = 90 * 24 * time.Hour
	}
	return &Pipeline{
		source:     source,
		gate:       gate,
		decoder:    decoder,
		classifier: classifier,
		enricher:   enricher,
		ledger:     ledger,
		store:      store,
		queries:    queries,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

type gatedCandidate struct {
	meta     *MailMeta
	decision GateDecision
}

type bodyOutcome struct {
	stage      string
	reason     string
	decode     DecodeReport
	result     *ClassificationResult
	enrichment Enrichment
}

// Run executes one pass over the configured source
func (p *Pipeline) Run(ctx context.Context, ro RunOptions) (*RunReport, error) {
	if p.source == nil {
		return nil, fmt.Errorf("pipeline has no mail source")
	}

	days := p.opts.LookbackDays
	if ro.LookbackDays > 0 {
		days = ro.LookbackDays
	}
	budget := p.opts.MaxBodyFetches
	if ro.MaxBodyFetches > 0 {
		budget = ro.MaxBodyFetches
	}
	concurrency := p.opts.Concurrency
	if ro.Concurrency > 0 {
		concurrency = ro.Concurrency
	}

	report := NewRunReport(uuid.NewString())
	defer func() { report.FinishedAt = time.Now() }()

	logger := p.logger.With(zap.String("run_id", report.RunID))
	q := p.queries.Query(days, p.now())
	logger.Info("Starting pipeline run",
		zap.String("query", q.Expression),
		zap.Int("lookback_days", days),
		zap.Int("max_body_fetches", budget),
		zap.Int("concurrency", concurrency))

	ids, err := p.listAll(ctx, q, report, logger)
	if err != nil {
		return report, err
	}
	report.Listed = len(ids)

	ids = p.dedup(ctx, ids, report)
	report.Unique = len(ids)

	metas := p.fetchMetadata(ctx, ids, concurrency, report, logger)
	if err := ctx.Err(); err != nil {
		return report, err
	}

	var passed []gatedCandidate
	for _, meta := range metas {
		if meta == nil {
			continue
		}
		decision := p.gate.Evaluate(meta)
		if !decision.Pass {
			report.Reject(StageGate, decision.Reason)
			p.remember(ctx, meta.ID, "gate:"+decision.Reason, 0, logger)
			continue
		}
		passed = append(passed, gatedCandidate{meta: meta, decision: decision})
	}
	report.Gated = len(passed)

	// Higher gate weight is fetched first; equal weights keep list order.
	sort.SliceStable(passed, func(i, j int) bool {
		return passed[i].decision.Weight > passed[j].decision.Weight
	})

	if budget > 0 && len(passed) > budget {
		for range passed[budget:] {
			report.Reject(StageBody, "budget-exhausted")
		}
		passed = passed[:budget]
	}

	outcomes := make([]*bodyOutcome, len(passed))
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i := range passed {
		if ctx.Err() != nil {
			break
		}
		c := passed[i]
		slot := i
		report.FetchOrder = append(report.FetchOrder, c.meta.ID)
		g.Go(func() error {
			outcomes[slot] = p.processCandidate(ctx, c.meta, logger)
			return nil
		})
	}
	_ = g.Wait()

	for i, out := range outcomes {
		if out == nil {
			report.Reject(StageBody, "cancelled")
			continue
		}
		if out.stage == StageBody {
			report.Reject(out.stage, out.reason)
			continue
		}
		report.Fetched++
		if out.decode.Fallback {
			report.Reject(StageDecode, "charset-fallback")
		}

		report.Classified++
		meta := passed[i].meta
		if !out.result.OK {
			report.Reject(StageClassify, out.result.RejectReason())
			p.remember(ctx, meta.ID, "rejected:"+out.result.RejectReason(), out.result.Confidence, logger)
			continue
		}

		tx := newTransaction(meta, out.result, out.enrichment, p.now())
		if p.store != nil {
			if err := p.store.Save(ctx, tx); err != nil {
				logger.Error("Failed to store transaction",
					zap.String("message_id", meta.ID),
					zap.Error(err))
				report.Reject(StageStore, "store-error")
				continue
			}
		}
		report.Accepted++
		report.Transactions = append(report.Transactions, *tx)
		p.remember(ctx, meta.ID, "accepted", out.result.Confidence, logger)
	}

	logger.Info("Pipeline run finished",
		zap.Int("listed", report.Listed),
		zap.Int("unique", report.Unique),
		zap.Int("gated", report.Gated),
		zap.Int("fetched", report.Fetched),
		zap.Int("accepted", report.Accepted),
		zap.Any("rejections", report.Rejections))

	return report, ctx.Err()
}

// listAll pages through the source. A failed page stops listing but keeps what was already listed.
func (p *Pipeline) listAll(ctx context.Context, q SearchQuery, report *RunReport, logger *zap.Logger) ([]string, error) {
	var ids []string
	token := ""
	for page := 0; ; page++ {
		if err := ctx.Err(); err != nil {
			return ids, err
		}
		if p.opts.MaxPages > 0 && page >= p.opts.MaxPages {
			logger.Warn("Stopping listing at page limit", zap.Int("max_pages", p.opts.MaxPages))
			break
		}

		pageIDs, next, err := p.source.ListMessageIDs(ctx, q, token)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ids, ctxErr
			}
			logger.Error("Failed to list messages", zap.Int("page", page), zap.Error(err))
			report.Reject(StageList, "list-error")
			break
		}
		ids = append(ids, pageIDs...)
		if next == "" {
			break
		}
		token = next
	}
	return ids, nil
}

func (p *Pipeline) dedup(ctx context.Context, ids []string, report *RunReport) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			report.Reject(StageDedup, "duplicate-id")
			continue
		}
		seen[id] = struct{}{}
		if p.alreadyProcessed(ctx, id) {
			report.Reject(StageDedup, "already-processed")
			continue
		}
		out = append(out, id)
	}
	return out
}

func (p *Pipeline) alreadyProcessed(ctx context.Context, id string) bool {
	if p.ledger == nil {
		return false
	}
	entry, err := p.ledger.Get(ctx, id)
	return err == nil && entry != nil
}

func (p *Pipeline) fetchMetadata(ctx context.Context, ids []string, concurrency int, report *RunReport, logger *zap.Logger) []*MailMeta {
	metas := make([]*MailMeta, len(ids))
	failed := make([]bool, len(ids))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i := range ids {
		if ctx.Err() != nil {
			break
		}
		slot := i
		g.Go(func() error {
			msg, err := p.source.GetMessage(ctx, ids[slot], FormatMetadata)
			if err != nil {
				logger.Warn("Failed to fetch message metadata",
					zap.String("message_id", ids[slot]),
					zap.Error(err))
				failed[slot] = true
				return nil
			}
			meta := msg.Meta
			if meta.ID == "" {
				meta.ID = ids[slot]
			}
			metas[slot] = &meta
			return nil
		})
	}
	_ = g.Wait()

	for _, f := range failed {
		if f {
			report.Reject(StageMetadata, "fetch-error")
		}
	}
	return metas
}

func (p *Pipeline) processCandidate(ctx context.Context, meta *MailMeta, logger *zap.Logger) *bodyOutcome {
	if ctx.Err() != nil {
		return &bodyOutcome{stage: StageBody, reason: "cancelled"}
	}

	msg, err := p.source.GetMessage(ctx, meta.ID, FormatFull)
	if err != nil {
		logger.Warn("Failed to fetch message body",
			zap.String("message_id", meta.ID),
			zap.Error(err))
		return &bodyOutcome{stage: StageBody, reason: "fetch-error"}
	}
	if msg.Payload == nil {
		return &bodyOutcome{stage: StageBody, reason: "empty-payload"}
	}

	out := p.classifyPayload(ctx, meta, msg.Payload)
	if out.decode.Fallback {
		logger.Debug("Body decoded with UTF-8 fallback",
			zap.String("message_id", meta.ID),
			zap.String("charset", out.decode.Charset))
	}
	return out
}

func (p *Pipeline) classifyPayload(ctx context.Context, meta *MailMeta, payload *MessagePart) *bodyOutcome {
	text, decodeReport := p.decoder.Decode(payload)
	result := p.classifier.Classify(meta, text)

	out := &bodyOutcome{decode: decodeReport, result: result}
	if result.OK && p.enricher != nil {
		out.enrichment = p.enricher.Enrich(ctx, EnrichInput{
			Merchant:     result.Merchant,
			Snippet:      p.decoder.Flatten(text),
			Amount:       result.Amount,
			SenderDomain: meta.SenderDomain(),
		})
	}
	return out
}

// ProcessMessage pushes one already-fetched message through gate, classifier, enrichment and store
func (p *Pipeline) ProcessMessage(ctx context.Context, msg *Message) (*ProcessResult, error) {
	meta := &msg.Meta
	logger := p.logger.With(zap.String("message_id", meta.ID))

	if p.alreadyProcessed(ctx, meta.ID) {
		logger.Debug("Skipping already processed message")
		return &ProcessResult{Duplicate: true}, nil
	}

	res := &ProcessResult{Decision: p.gate.Evaluate(meta)}
	if !res.Decision.Pass {
		logger.Info("Message rejected by gate", zap.String("reason", res.Decision.Reason))
		p.remember(ctx, meta.ID, "gate:"+res.Decision.Reason, 0, logger)
		return res, nil
	}
	if msg.Payload == nil {
		return res, fmt.Errorf("message %s has no body", meta.ID)
	}

	out := p.classifyPayload(ctx, meta, msg.Payload)
	res.Decode = out.decode
	res.Result = out.result
	if !out.result.OK {
		logger.Info("Message not classified as card usage",
			zap.Strings("reasons", out.result.Reasons),
			zap.Int("confidence", out.result.Confidence))
		p.remember(ctx, meta.ID, "rejected:"+out.result.RejectReason(), out.result.Confidence, logger)
		return res, nil
	}

	tx := newTransaction(meta, out.result, out.enrichment, p.now())
	if p.store != nil {
		if err := p.store.Save(ctx, tx); err != nil {
			return res, fmt.Errorf("failed to store transaction: %w", err)
		}
	}
	res.Transaction = tx
	p.remember(ctx, meta.ID, "accepted", out.result.Confidence, logger)

	logger.Info("Accepted card usage",
		zap.Int64("amount", tx.Amount),
		zap.String("merchant", tx.Merchant),
		zap.String("category", tx.Category),
		zap.Int("confidence", tx.Confidence))
	return res, nil
}

func (p *Pipeline) remember(ctx context.Context, id, outcome string, confidence int, logger *zap.Logger) {
	if p.ledger == nil || id == "" {
		return
	}
	now := p.now()
	entry := &LedgerEntry{
		MessageID:   id,
		Outcome:     outcome,
		Confidence:  confidence,
		ProcessedAt: now,
		ExpiresAt:   now.Add(p.opts.LedgerTTL),
	}
	if err := p.ledger.Set(ctx, entry); err != nil {
		logger.Error("Failed to update ledger", zap.String("message_id", id), zap.Error(err))
	}
}

func newTransaction(meta *MailMeta, res *ClassificationResult, en Enrichment, now time.Time) *Transaction {
	merchant := en.Merchant
	if merchant == "" {
		merchant = res.Merchant
	}
	category := en.Category
	if category == "" {
		category = "other"
	}
	currency := res.Currency
	if currency == "" {
		currency = "JPY"
	}

	return &Transaction{
		ID:              uuid.NewString(),
		SourceMessageID: meta.ID,
		Amount:          res.Amount,
		Currency:        currency,
		Merchant:        merchant,
		MerchantRaw:     res.Merchant,
		Category:        category,
		Subscription:    en.Subscription,
		Date:            transactionDate(res.Date, meta.Date, now),
		Confidence:      res.Confidence,
		Trust:           res.Trust,
		CardLast4:       res.Card.Last4,
		Issuer:          res.Card.Issuer,
		Wallet:          res.Card.Wallet,
		CreatedAt:       now,
	}
}

// transactionDate prefers the date printed in the notice, then the message date
func transactionDate(extracted string, received, now time.Time) time.Time {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, extracted, jst); err == nil {
			return t
		}
	}
	if !received.IsZero() {
		return received
	}
	return now
}
