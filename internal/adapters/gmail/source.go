// Package gmail reads card notices through the Gmail API.
package gmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"github.com/s1f10230230/credit-visual-sub000/internal/mimetext"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// MetadataHeaders are requested explicitly for metadata fetches
var MetadataHeaders = []string{"From", "Subject", "List-Unsubscribe", "Date", "Message-ID"}

// Config holds what the Gmail source needs to authenticate
type Config struct {
	CredentialsFile string
	TokenFile       string
	User            string
	PageSize        int64
}

// Source implements core.MailSource over the Gmail API
type Source struct {
	svc      *gmailapi.Service
	user     string
	pageSize int64
	cb       *gobreaker.CircuitBreaker
	logger   *zap.Logger
}

// NewSource authenticates with an installed-app OAuth client and a stored token
func NewSource(ctx context.Context, cfg Config, logger *zap.Logger) (*Source, error) {
	creds, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read Gmail credentials: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(creds, gmailapi.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Gmail credentials: %w", err)
	}

	token, err := loadToken(cfg.TokenFile)
	if err != nil {
		return nil, err
	}

	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(oauthConfig.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return NewSourceWithService(svc, cfg.User, cfg.PageSize, logger), nil
}

// NewSourceWithService wraps an existing Gmail service
func NewSourceWithService(svc *gmailapi.Service, user string, pageSize int64, logger *zap.Logger) *Source {
	if user == "" {
		user = "me"
	}
	if pageSize <= 0 {
		pageSize = 100
	}

	settings := gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		IsSuccessful: func(err error) bool {
			var nce *nonCircuitError
			return err == nil || errors.As(err, &nce)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Source{
		svc:      svc,
		user:     user,
		pageSize: pageSize,
		cb:       gobreaker.NewCircuitBreaker(settings),
		logger:   logger,
	}
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read Gmail token: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse Gmail token: %w", err)
	}
	return &token, nil
}

// ListMessageIDs returns one page of ids matching the query
func (s *Source) ListMessageIDs(ctx context.Context, q core.SearchQuery, pageToken string) ([]string, string, error) {
	call := s.svc.Users.Messages.List(s.user).Q(q.Expression).MaxResults(s.pageSize).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	var resp *gmailapi.ListMessagesResponse
	err := s.execute("ListMessages", func() error {
		var apiErr error
		resp, apiErr = call.Do()
		return apiErr
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to list messages: %w", err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return ids, resp.NextPageToken, nil
}

// GetMessage fetches a message in the requested format
func (s *Source) GetMessage(ctx context.Context, id string, format core.Format) (*core.Message, error) {
	call := s.svc.Users.Messages.Get(s.user, id).Context(ctx)
	if format == core.FormatMetadata {
		call = call.Format("metadata").MetadataHeaders(MetadataHeaders...)
	} else {
		call = call.Format("full")
	}

	var msg *gmailapi.Message
	err := s.execute("GetMessage", func() error {
		var apiErr error
		msg, apiErr = call.Do()
		return apiErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	out := &core.Message{Meta: convertMeta(msg)}
	if format == core.FormatFull && msg.Payload != nil {
		out.Payload = convertPart(msg.Payload, s.logger)
	}
	return out, nil
}

// State returns the circuit breaker state
func (s *Source) State() string {
	return s.cb.State().String()
}

func convertMeta(msg *gmailapi.Message) core.MailMeta {
	meta := core.MailMeta{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Labels:   msg.LabelIds,
		Headers:  make(map[string]string),
	}
	if msg.InternalDate > 0 {
		meta.Date = time.UnixMilli(msg.InternalDate)
	}
	if msg.Payload == nil {
		return meta
	}

	for _, h := range msg.Payload.Headers {
		if _, ok := meta.Headers[h.Name]; !ok {
			meta.Headers[h.Name] = mimetext.DecodeHeader(h.Value)
		}
	}
	meta.From = meta.Header("From")
	meta.Subject = meta.Header("Subject")
	return meta
}

// convertPart maps a Gmail payload onto the neutral part tree. Gmail has already
// undone the transfer encoding, so that header is dropped.
func convertPart(p *gmailapi.MessagePart, logger *zap.Logger) *core.MessagePart {
	part := &core.MessagePart{
		MimeType: strings.ToLower(p.MimeType),
		Filename: p.Filename,
		Headers:  make(map[string]string, len(p.Headers)),
	}
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, "Content-Transfer-Encoding") {
			continue
		}
		part.Headers[h.Name] = h.Value
	}

	if p.Body != nil && p.Body.Data != "" {
		body, err := mimetext.DecodeBase64URL(p.Body.Data)
		if err != nil {
			logger.Warn("Failed to decode Gmail part body",
				zap.String("mime_type", p.MimeType),
				zap.Error(err))
		} else {
			part.Body = body
		}
	}

	for _, child := range p.Parts {
		part.Parts = append(part.Parts, convertPart(child, logger))
	}
	return part
}
