// Package ingest contains the inbound transports: an SMTP listener that card
// notices can be forwarded to, and the report printer used by the CLI.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"github.com/s1f10230230/credit-visual-sub000/internal/mimetext"
	"go.uber.org/zap"
)

// MessageProcessor is the single-message entry point of the pipeline
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, msg *core.Message) (*core.ProcessResult, error)
}

// SMTPServer accepts forwarded card notices over SMTP. Every message that can be
// parsed is answered with 250 whatever the classification; only a failure to
// store an accepted transaction is reported as a temporary error.
type SMTPServer struct {
	processor       MessageProcessor
	logger          *zap.Logger
	listenAddr      string
	domain          string
	maxMessageBytes int64
	readTimeout     time.Duration
	writeTimeout    time.Duration
	processTimeout  time.Duration
	server          *smtp.Server
}

// NewSMTPServer creates a new SMTP ingest server
func NewSMTPServer(
	processor MessageProcessor,
	logger *zap.Logger,
	listenAddr string,
	domain string,
	maxMessageBytes int64,
	readTimeout time.Duration,
	writeTimeout time.Duration,
) *SMTPServer {
	if domain == "" {
		domain = "localhost"
	}
	return &SMTPServer{
		processor:       processor,
		logger:          logger,
		listenAddr:      listenAddr,
		domain:          domain,
		maxMessageBytes: maxMessageBytes,
		readTimeout:     readTimeout,
		writeTimeout:    writeTimeout,
		processTimeout:  30 * time.Second,
	}
}

// Start starts the SMTP listener in the background
func (s *SMTPServer) Start() error {
	s.server = smtp.NewServer(&smtpBackend{server: s})

	s.server.Addr = s.listenAddr
	s.server.Domain = s.domain
	s.server.ReadTimeout = s.readTimeout
	s.server.WriteTimeout = s.writeTimeout
	s.server.MaxMessageBytes = s.maxMessageBytes
	s.server.MaxRecipients = 50

	s.logger.Info("SMTP ingest server starting", zap.String("address", s.listenAddr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			s.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the SMTP listener
func (s *SMTPServer) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// Deliver parses one raw message and runs it through the pipeline
func (s *SMTPServer) Deliver(ctx context.Context, sender string, raw []byte) error {
	msg, err := mimetext.ParseRFC822(bytes.NewReader(raw))
	if err != nil {
		s.logger.Warn("Failed to parse forwarded message",
			zap.String("sender", sender),
			zap.Error(err))
		return &smtp.SMTPError{
			Code:         554,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Message could not be parsed",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.processTimeout)
	defer cancel()

	res, err := s.processor.ProcessMessage(ctx, msg)
	if err != nil {
		s.logger.Error("Failed to process forwarded message",
			zap.String("sender", sender),
			zap.String("message_id", msg.Meta.ID),
			zap.Error(err))
		if res != nil && res.Result != nil && res.Result.OK {
			return &smtp.SMTPError{
				Code:         451,
				EnhancedCode: smtp.EnhancedCode{4, 3, 0},
				Message:      "Temporary failure storing transaction",
			}
		}
		return nil
	}

	fields := []zap.Field{
		zap.String("sender", sender),
		zap.String("message_id", msg.Meta.ID),
		zap.Bool("duplicate", res.Duplicate),
		zap.Bool("gate_pass", res.Decision.Pass),
	}
	if res.Result != nil {
		fields = append(fields,
			zap.Bool("accepted", res.Result.OK),
			zap.Int("confidence", res.Result.Confidence),
			zap.Strings("reasons", res.Result.Reasons))
	}
	s.logger.Info("Processed forwarded message", fields...)

	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	server *SMTPServer
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{server: b.server}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	server *SMTPServer
	sender string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt accepts any recipient; the listener is a drop box
func (s *smtpSession) Rcpt(_ string, _ *smtp.RcptOptions) error {
	return nil
}

// Data reads the message and hands it to the pipeline
func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.server.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}
	return s.server.Deliver(context.Background(), s.sender, raw)
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
