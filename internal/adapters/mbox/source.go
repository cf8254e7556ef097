// Package mbox replays card notices from an mbox export, for backfills and tests.
package mbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/emersion/go-mbox"
	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"github.com/s1f10230230/credit-visual-sub000/internal/mimetext"
	"go.uber.org/zap"
)

// ErrNotFound is returned for ids that are not in the file
var ErrNotFound = errors.New("mbox: message not found")

// Source implements core.MailSource over an mbox file. The file is parsed once on
// first use; ids are Message-IDs and the page token is an offset.
type Source struct {
	path     string
	pageSize int
	logger   *zap.Logger

	once     sync.Once
	loadErr  error
	order    []string
	messages map[string]*core.Message
}

// NewSource creates a source for the file at path
func NewSource(path string, pageSize int, logger *zap.Logger) *Source {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Source{path: path, pageSize: pageSize, logger: logger}
}

func (s *Source) load() error {
	s.once.Do(func() {
		f, err := os.Open(s.path)
		if err != nil {
			s.loadErr = fmt.Errorf("failed to open mbox: %w", err)
			return
		}
		defer f.Close()
		s.loadErr = s.read(f)
	})
	return s.loadErr
}

func (s *Source) read(r io.Reader) error {
	s.messages = make(map[string]*core.Message)

	reader := mbox.NewReader(r)
	for i := 0; ; i++ {
		mr, err := reader.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read message %d: %w", i, err)
		}

		msg, err := mimetext.ParseRFC822(mr)
		if err != nil {
			s.logger.Warn("Skipping unparsable message", zap.Int("index", i), zap.Error(err))
			continue
		}
		if _, dup := s.messages[msg.Meta.ID]; dup {
			continue
		}
		s.messages[msg.Meta.ID] = msg
		s.order = append(s.order, msg.Meta.ID)
	}

	s.logger.Info("Loaded mbox", zap.String("path", s.path), zap.Int("messages", len(s.order)))
	return nil
}

// ListMessageIDs returns the messages received on or after q.Since, newest first
func (s *Source) ListMessageIDs(ctx context.Context, q core.SearchQuery, pageToken string) ([]string, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	if err := s.load(); err != nil {
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

	matched := make([]*core.Message, 0, len(s.order))
	for _, id := range s.order {
		m := s.messages[id]
		if !q.Since.IsZero() && !m.Meta.Date.IsZero() && m.Meta.Date.Before(q.Since) {
			continue
		}
		matched = append(matched, m)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Meta.Date.After(matched[j].Meta.Date)
	})

	if offset >= len(matched) {
		return nil, "", nil
	}
	end := min(offset+s.pageSize, len(matched))

	ids := make([]string, 0, end-offset)
	for _, m := range matched[offset:end] {
		ids = append(ids, m.Meta.ID)
	}

	next := ""
	if end < len(matched) {
		next = strconv.Itoa(end)
	}
	return ids, next, nil
}

// GetMessage returns a copy of the parsed message. Metadata requests drop the payload.
func (s *Source) GetMessage(ctx context.Context, id string, format core.Format) (*core.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.load(); err != nil {
		return nil, err
	}

	m, ok := s.messages[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}

	out := &core.Message{Meta: m.Meta}
	if format == core.FormatFull {
		out.Payload = m.Payload
	}
	return out, nil
}
