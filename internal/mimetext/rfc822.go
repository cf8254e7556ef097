package mimetext

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/mail"
	"net/textproto"
	"strings"

	"github.com/emersion/go-message"
	"github.com/s1f10230230/credit-visual-sub000/internal/core"
)

// maxPartDepth bounds multipart nesting
const maxPartDepth = 16

var wordDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

// DecodeHeader decodes RFC 2047 encoded words. Undecodable input is returned as is.
func DecodeHeader(s string) string {
	decoded, err := wordDecoder.DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}

// ParseRFC822 reads a raw message into the neutral message model. Transfer encodings
// are removed; text bodies keep their original charset so the decoder can verify it.
func ParseRFC822(r io.Reader) (*core.Message, error) {
	entity, err := message.Read(r)
	if entity == nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if err != nil && !tolerable(err) {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	meta := metaFromHeader(entity.Header)
	payload, err := partFromEntity(entity, err, 0)
	if err != nil {
		return nil, err
	}

	if meta.ID == "" {
		meta.ID = syntheticID(meta)
	}
	return &core.Message{Meta: meta, Payload: payload}, nil
}

// ParseHeaders reads only the header block of a message into a MailMeta
func ParseHeaders(r io.Reader) (*core.MailMeta, error) {
	entity, err := message.Read(r)
	if entity == nil {
		return nil, fmt.Errorf("failed to parse headers: %w", err)
	}
	meta := metaFromHeader(entity.Header)
	if meta.ID == "" {
		meta.ID = syntheticID(meta)
	}
	return &meta, nil
}

func tolerable(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}

func metaFromHeader(h message.Header) core.MailMeta {
	headers := headerMap(h)
	meta := core.MailMeta{
		ID:      strings.Trim(strings.TrimSpace(h.Get("Message-Id")), "<>"),
		From:    DecodeHeader(h.Get("From")),
		Subject: DecodeHeader(h.Get("Subject")),
		Headers: headers,
	}
	if date, err := mail.ParseDate(h.Get("Date")); err == nil {
		meta.Date = date
	}
	return meta
}

func headerMap(h message.Header) map[string]string {
	headers := make(map[string]string)
	fields := h.Fields()
	for fields.Next() {
		key := textproto.CanonicalMIMEHeaderKey(fields.Key())
		if _, ok := headers[key]; ok {
			continue
		}
		headers[key] = DecodeHeader(fields.Value())
	}
	return headers
}

func partFromEntity(e *message.Entity, entityErr error, depth int) (*core.MessagePart, error) {
	if depth > maxPartDepth {
		return nil, errors.New("multipart nesting too deep")
	}

	mediaType, _, _ := e.Header.ContentType()
	part := &core.MessagePart{
		MimeType: strings.ToLower(mediaType),
		Headers:  headerMap(e.Header),
	}
	if _, params, err := e.Header.ContentDisposition(); err == nil {
		part.Filename = params["filename"]
	}
	if part.Filename == "" {
		_, params, _ := e.Header.ContentType()
		part.Filename = params["name"]
	}

	// go-message already removed a known transfer encoding
	if !message.IsUnknownEncoding(entityErr) {
		delete(part.Headers, "Content-Transfer-Encoding")
	}

	if mr := e.MultipartReader(); mr != nil {
		for {
			child, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if child == nil {
				// a broken trailing part keeps the parts read so far
				break
			}
			cp, cerr := partFromEntity(child, err, depth+1)
			if cerr != nil {
				return nil, cerr
			}
			part.Parts = append(part.Parts, cp)
		}
		return part, nil
	}

	body, err := io.ReadAll(e.Body)
	if err != nil && len(body) == 0 {
		return nil, fmt.Errorf("failed to read %s part: %w", part.MimeType, err)
	}
	part.Body = body
	return part, nil
}

func syntheticID(meta core.MailMeta) string {
	sum := sha1.Sum([]byte(meta.From + "\x00" + meta.Subject + "\x00" + meta.Date.String()))
	return "sha1-" + hex.EncodeToString(sum[:])
}
