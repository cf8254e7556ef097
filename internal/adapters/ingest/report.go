package ingest

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"github.com/s1f10230230/credit-visual-sub000/internal/subscription"
	"go.uber.org/zap"
)

// ReportPrinter renders pipeline results for the command line
type ReportPrinter struct {
	out     io.Writer
	logger  *zap.Logger
	verbose bool
}

// NewReportPrinter creates a new report printer
func NewReportPrinter(out io.Writer, logger *zap.Logger, verbose bool) *ReportPrinter {
	return &ReportPrinter{
		out:     out,
		logger:  logger,
		verbose: verbose,
	}
}

// PrintRun prints a run summary, the accepted transactions and the rejection counts
func (p *ReportPrinter) PrintRun(report *core.RunReport) {
	p.logger.Debug("Printing run report", zap.String("run_id", report.RunID))

	fmt.Fprintf(p.out, "\n=== Run Summary ===\n")
	fmt.Fprintf(p.out, "Run ID: %s\n", report.RunID)
	if !report.FinishedAt.IsZero() {
		fmt.Fprintf(p.out, "Duration: %v\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	}
	fmt.Fprintf(p.out, "Listed: %d  Unique: %d  Gated: %d  Fetched: %d  Classified: %d  Accepted: %d\n",
		report.Listed, report.Unique, report.Gated, report.Fetched, report.Classified, report.Accepted)

	fmt.Fprintf(p.out, "\n=== Transactions ===\n")
	if len(report.Transactions) == 0 {
		fmt.Fprintf(p.out, "(none)\n")
	}
	for i := range report.Transactions {
		p.printTransaction(&report.Transactions[i])
	}

	fmt.Fprintf(p.out, "\n=== Rejections ===\n")
	stages := report.Stages()
	if len(stages) == 0 {
		fmt.Fprintf(p.out, "(none)\n")
	}
	for _, stage := range stages {
		reasons := make([]string, 0, len(report.Rejections[stage]))
		for r := range report.Rejections[stage] {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			fmt.Fprintf(p.out, "%-10s %-32s %d\n", stage, r, report.Rejections[stage][r])
		}
	}

	if p.verbose && len(report.FetchOrder) > 0 {
		fmt.Fprintf(p.out, "\nFetch order: %s\n", strings.Join(report.FetchOrder, ", "))
	}
}

// PrintResult prints the outcome of a single message
func (p *ReportPrinter) PrintResult(meta *core.MailMeta, res *core.ProcessResult) {
	fmt.Fprintf(p.out, "\n=== Message ===\n")
	fmt.Fprintf(p.out, "From: %s\n", meta.From)
	fmt.Fprintf(p.out, "Subject: %s\n", meta.Subject)

	fmt.Fprintf(p.out, "\n=== Results ===\n")
	switch {
	case res.Duplicate:
		fmt.Fprintf(p.out, "Already processed\n")
		return
	case !res.Decision.Pass:
		fmt.Fprintf(p.out, "Gate: rejected (%s)\n", res.Decision.Reason)
		return
	}

	fmt.Fprintf(p.out, "Gate: %s (weight %d)\n", res.Decision.Reason, res.Decision.Weight)
	if res.Decode.Charset != "" {
		fmt.Fprintf(p.out, "Charset: %s (detected %t, fallback %t)\n", res.Decode.Charset, res.Decode.Detected, res.Decode.Fallback)
	}
	if r := res.Result; r != nil {
		fmt.Fprintf(p.out, "Card usage: %t\n", r.OK)
		fmt.Fprintf(p.out, "Confidence: %d (%s)\n", r.Confidence, r.Trust)
		fmt.Fprintf(p.out, "Reasons: %s\n", strings.Join(r.Reasons, ", "))
	}
	if res.Transaction != nil {
		fmt.Fprintf(p.out, "\n")
		p.printTransaction(res.Transaction)
	}
}

// PrintSubscriptions prints recurring-charge candidates
func (p *ReportPrinter) PrintSubscriptions(candidates []subscription.Candidate) {
	fmt.Fprintf(p.out, "\n=== Subscriptions ===\n")
	if len(candidates) == 0 {
		fmt.Fprintf(p.out, "(none)\n")
		return
	}
	for _, c := range candidates {
		amount := fmt.Sprintf("¥%d", c.AmountMedian)
		if c.AmountMin != c.AmountMax {
			amount = fmt.Sprintf("¥%d-%d", c.AmountMin, c.AmountMax)
		}
		fmt.Fprintf(p.out, "%-24s %-8s %-12s x%-3d next %s  confidence %.2f\n",
			c.Merchant, c.Cadence, amount, c.Occurrences, c.NextExpected.Format("2006-01-02"), c.Confidence)
	}
}

func (p *ReportPrinter) printTransaction(tx *core.Transaction) {
	card := tx.Issuer
	if tx.CardLast4 != "" {
		card = strings.TrimSpace(card + " *" + tx.CardLast4)
	}
	if tx.Wallet != "" {
		card = strings.TrimSpace(card + " via " + tx.Wallet)
	}

	fmt.Fprintf(p.out, "%s  %10s  %-24s %-12s conf %3d  %s\n",
		tx.Date.Format("2006-01-02"),
		fmt.Sprintf("¥%d", tx.Amount),
		tx.Merchant,
		tx.Category,
		tx.Confidence,
		card)

	if p.verbose {
		fmt.Fprintf(p.out, "    message %s  raw merchant %q  trust %s\n", tx.SourceMessageID, tx.MerchantRaw, tx.Trust)
	}
}
