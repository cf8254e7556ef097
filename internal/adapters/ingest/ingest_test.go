package ingest

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"github.com/s1f10230230/credit-visual-sub000/internal/subscription"
	"go.uber.org/zap"
)

type fakeProcessor struct {
	res  *core.ProcessResult
	err  error
	seen []*core.Message
}

func (f *fakeProcessor) ProcessMessage(_ context.Context, msg *core.Message) (*core.ProcessResult, error) {
	f.seen = append(f.seen, msg)
	return f.res, f.err
}

const forwarded = "From: user@example.com\r\n" +
	"To: cards@localhost\r\n" +
	"Subject: Fwd: ご利用のお知らせ\r\n" +
	"Message-ID: <fwd-1@example.com>\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"ご利用金額 1,200円\r\n"

func newTestServer(p MessageProcessor) *SMTPServer {
	return NewSMTPServer(p, zap.NewNop(), "127.0.0.1:0", "", 1<<20, time.Second, time.Second)
}

func TestDeliver(t *testing.T) {
	storeErr := errors.New("disk full")

	tests := []struct {
		name     string
		res      *core.ProcessResult
		err      error
		wantCode int
	}{
		{"accepted", &core.ProcessResult{Decision: core.GateDecision{Pass: true}, Result: &core.ClassificationResult{OK: true}}, nil, 0},
		{"rejected by gate", &core.ProcessResult{Decision: core.GateDecision{Reason: "block-domain"}}, nil, 0},
		{"duplicate", &core.ProcessResult{Duplicate: true}, nil, 0},
		{"store failure", &core.ProcessResult{Decision: core.GateDecision{Pass: true}, Result: &core.ClassificationResult{OK: true}}, storeErr, 451},
		{"no body", &core.ProcessResult{Decision: core.GateDecision{Pass: true}}, errors.New("no body"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProcessor{res: tt.res, err: tt.err}
			err := newTestServer(p).Deliver(context.Background(), "user@example.com", []byte(forwarded))

			if tt.wantCode == 0 {
				if err != nil {
					t.Fatalf("Deliver() error = %v, want nil", err)
				}
			} else {
				var smtpErr *smtp.SMTPError
				if !errors.As(err, &smtpErr) || smtpErr.Code != tt.wantCode {
					t.Fatalf("Deliver() error = %v, want SMTP %d", err, tt.wantCode)
				}
			}

			if len(p.seen) != 1 {
				t.Fatalf("processor saw %d messages, want 1", len(p.seen))
			}
			if got := p.seen[0].Meta.Subject; got != "Fwd: ご利用のお知らせ" {
				t.Errorf("Subject = %q", got)
			}
			if got := p.seen[0].Meta.ID; got != "fwd-1@example.com" {
				t.Errorf("ID = %q", got)
			}
		})
	}
}

func TestSessionData(t *testing.T) {
	p := &fakeProcessor{res: &core.ProcessResult{Duplicate: true}}
	srv := newTestServer(p)

	sess, err := (&smtpBackend{server: srv}).NewSession(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.Mail("user@example.com", nil); err != nil {
		t.Fatal(err)
	}
	if err := sess.Rcpt("cards@localhost", nil); err != nil {
		t.Fatal(err)
	}
	if err := sess.Data(strings.NewReader(forwarded)); err != nil {
		t.Fatalf("Data() error = %v", err)
	}
	sess.Reset()
	if err := sess.Logout(); err != nil {
		t.Fatal(err)
	}

	if len(p.seen) != 1 {
		t.Errorf("processor saw %d messages, want 1", len(p.seen))
	}
}

func TestStopWithoutStart(t *testing.T) {
	if err := newTestServer(&fakeProcessor{}).Stop(); err != nil {
		t.Errorf("Stop() = %v", err)
	}
}

func TestPrintRun(t *testing.T) {
	report := core.NewRunReport("run-1")
	report.Listed, report.Unique, report.Gated, report.Fetched, report.Classified, report.Accepted = 5, 4, 3, 3, 3, 1
	report.Reject(core.StageGate, "block-domain")
	report.Reject(core.StageClassify, "no-amount")
	report.Reject(core.StageClassify, "no-amount")
	report.Transactions = []core.Transaction{{
		Amount:     1490,
		Merchant:   "Netflix",
		Category:   "video",
		Confidence: 85,
		Issuer:     "JCB",
		CardLast4:  "1234",
		Date:       time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC),
	}}

	var buf bytes.Buffer
	NewReportPrinter(&buf, zap.NewNop(), false).PrintRun(report)
	out := buf.String()

	for _, want := range []string{"Run ID: run-1", "Accepted: 1", "2025-08-10", "¥1490", "Netflix", "JCB *1234", "block-domain", "no-amount"} {
		if !strings.Contains(out, want) {
			t.Errorf("output misses %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "classify   no-amount") {
		t.Errorf("rejection line not aligned:\n%s", out)
	}
}

func TestPrintResultAndSubscriptions(t *testing.T) {
	var buf bytes.Buffer
	printer := NewReportPrinter(&buf, zap.NewNop(), true)

	printer.PrintResult(&core.MailMeta{From: "a@b", Subject: "s"}, &core.ProcessResult{
		Decision: core.GateDecision{Reason: "promo-subject"},
	})
	printer.PrintSubscriptions([]subscription.Candidate{{
		Merchant:     "Spotify",
		Cadence:      "monthly",
		Occurrences:  3,
		AmountMin:    980,
		AmountMax:    980,
		AmountMedian: 980,
		NextExpected: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		Confidence:   1,
	}})

	out := buf.String()
	for _, want := range []string{"Gate: rejected (promo-subject)", "Spotify", "monthly", "¥980", "2025-09-01", "1.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output misses %q:\n%s", want, out)
		}
	}
}
