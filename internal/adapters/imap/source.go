// Package imap reads card notices from an IMAP mailbox.
package imap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"github.com/s1f10230230/credit-visual-sub000/internal/mimetext"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a UID no longer exists in the mailbox
var ErrNotFound = errors.New("imap: message not found")

// Config holds the IMAP connection settings
type Config struct {
	Server   string
	Port     int
	Username string
	Password string
	Mailbox  string
	TLS      bool
	PageSize int
}

// Source implements core.MailSource over IMAP. UIDs are the message ids; the page
// token is an offset into the search result.
type Source struct {
	cfg    Config
	logger *zap.Logger

	mu     sync.Mutex
	client *client.Client
	uids   map[string][]uint32
}

// NewSource creates a source. The connection is opened on first use.
func NewSource(cfg Config, logger *zap.Logger) *Source {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.Port == 0 {
		cfg.Port = 993
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	return &Source{cfg: cfg, logger: logger, uids: make(map[string][]uint32)}
}

// connect dials, logs in and selects the mailbox read-only. Callers hold s.mu.
func (s *Source) connect() (*client.Client, error) {
	if s.client != nil {
		return s.client, nil
	}

	address := fmt.Sprintf("%s:%d", s.cfg.Server, s.cfg.Port)

	var c *client.Client
	var err error
	if s.cfg.TLS {
		c, err = client.DialTLS(address, &tls.Config{ServerName: s.cfg.Server})
	} else {
		c, err = client.Dial(address)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := c.Login(s.cfg.Username, s.cfg.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	if _, err := c.Select(s.cfg.Mailbox, true); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("failed to select %s: %w", s.cfg.Mailbox, err)
	}

	s.logger.Info("Connected to IMAP server",
		zap.String("address", address),
		zap.String("mailbox", s.cfg.Mailbox))

	s.client = c
	return c, nil
}

// ListMessageIDs searches once per query and pages through the sorted UIDs
func (s *Source) ListMessageIDs(ctx context.Context, q core.SearchQuery, pageToken string) ([]string, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	offset := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil || n < 0 {
			return nil, "", fmt.Errorf("invalid page token %q", pageToken)
		}
		offset = n
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := q.Since.UTC().Format("2006-01-02")
	uids, ok := s.uids[key]
	if !ok || offset == 0 {
		c, err := s.connect()
		if err != nil {
			return nil, "", err
		}

		criteria := imap.NewSearchCriteria()
		if !q.Since.IsZero() {
			criteria.Since = q.Since
		}
		uids, err = c.UidSearch(criteria)
		if err != nil {
			s.reset()
			return nil, "", fmt.Errorf("failed to search: %w", err)
		}
		// newest first, like the web mail APIs
		sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })
		s.uids[key] = uids
	}

	if offset >= len(uids) {
		return nil, "", nil
	}
	end := min(offset+s.cfg.PageSize, len(uids))

	ids := make([]string, 0, end-offset)
	for _, uid := range uids[offset:end] {
		ids = append(ids, strconv.FormatUint(uint64(uid), 10))
	}

	next := ""
	if end < len(uids) {
		next = strconv.Itoa(end)
	}
	return ids, next, nil
}

// GetMessage fetches the header (metadata) or the whole message (full) without
// setting \Seen
func (s *Source) GetMessage(ctx context.Context, id string, format core.Format) (*core.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid IMAP uid %q: %w", id, err)
	}

	section := &imap.BodySectionName{Peek: true}
	if format == core.FormatMetadata {
		section.BodyPartName = imap.BodyPartName{Specifier: imap.HeaderSpecifier}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.connect()
	if err != nil {
		return nil, err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uint32(uid))

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, []imap.FetchItem{section.FetchItem(), imap.FetchFlags, imap.FetchUid}, messages)
	}()

	var fetched *imap.Message
	for m := range messages {
		fetched = m
	}
	if err := <-done; err != nil {
		s.reset()
		return nil, fmt.Errorf("failed to fetch uid %d: %w", uid, err)
	}
	if fetched == nil {
		return nil, fmt.Errorf("uid %d: %w", uid, ErrNotFound)
	}

	body := fetched.GetBody(section)
	if body == nil {
		return nil, fmt.Errorf("uid %d: server returned no body section", uid)
	}

	var msg *core.Message
	if format == core.FormatMetadata {
		meta, err := mimetext.ParseHeaders(body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse headers of uid %d: %w", uid, err)
		}
		msg = &core.Message{Meta: *meta}
	} else {
		msg, err = mimetext.ParseRFC822(body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse uid %d: %w", uid, err)
		}
	}

	msg.Meta.ID = id
	msg.Meta.Labels = append(msg.Meta.Labels, fetched.Flags...)
	return msg, nil
}

// reset drops a connection after a protocol error so the next call redials. Callers hold s.mu.
func (s *Source) reset() {
	if s.client == nil {
		return
	}
	_ = s.client.Logout()
	s.client = nil
}

// Close logs out
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Logout()
	s.client = nil
	return err
}
