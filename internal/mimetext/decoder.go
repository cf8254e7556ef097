package mimetext

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/quotedprintable"
	"regexp"
	"strings"

	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"github.com/s1f10230230/credit-visual-sub000/internal/utils"
	"go.uber.org/zap"
)

var qpEscape = regexp.MustCompile(`=[0-9A-F]{2}`)

// Decoder selects the text part of a MIME tree and converts it to UTF-8.
// It keeps no per-message state and is safe for concurrent use.
type Decoder struct {
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewDecoder creates a new body decoder
func NewDecoder(logger *zap.Logger, textProcessor *utils.TextProcessor) *Decoder {
	return &Decoder{
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Decode returns the decoded text of the preferred body part. Charset failures fall
// back to UTF-8 and are flagged in the report instead of failing the message.
func (d *Decoder) Decode(part *core.MessagePart) (core.MailText, core.DecodeReport) {
	leaf, isHTML := SelectTextPart(part)
	if leaf == nil {
		return core.MailText{}, core.DecodeReport{}
	}

	body := DecodeTransfer(leaf.Body, leaf.Header("Content-Transfer-Encoding"))
	declared := ""
	if _, params, err := mime.ParseMediaType(leaf.Header("Content-Type")); err == nil {
		declared = params["charset"]
	}

	charset, detected := ResolveCharset(body, declared)
	report := core.DecodeReport{Charset: charset, Detected: detected}

	text, err := Convert(body, charset)
	if err != nil {
		d.logger.Debug("Charset conversion failed, falling back to UTF-8",
			zap.String("declared", declared),
			zap.String("charset", charset),
			zap.Error(err))
		text = d.textProcessor.SanitizeUTF8(string(body))
		report.Fallback = true
	}

	if isHTML {
		return core.MailText{HTML: text}, report
	}
	return core.MailText{Plain: text}, report
}

// Flatten returns the decoded text as normalized plain text with HTML collapsed
func (d *Decoder) Flatten(text core.MailText) string {
	return Flatten(text)
}

// SelectTextPart walks the tree depth-first. A non-empty text/plain leaf wins, then the
// first text/html leaf, then any other text leaf. Attachments are skipped.
func SelectTextPart(root *core.MessagePart) (*core.MessagePart, bool) {
	if root == nil {
		return nil, false
	}

	var plain, htmlPart, other *core.MessagePart
	var walk func(p *core.MessagePart)
	walk = func(p *core.MessagePart) {
		if len(p.Parts) > 0 {
			for _, child := range p.Parts {
				walk(child)
			}
			return
		}
		if isAttachment(p) || len(bytes.TrimSpace(p.Body)) == 0 {
			return
		}

		mt := mediaType(p)
		switch {
		case mt == "text/plain" && plain == nil:
			plain = p
		case mt == "text/html" && htmlPart == nil:
			htmlPart = p
		case strings.HasPrefix(mt, "text/") && mt != "text/calendar" && other == nil:
			other = p
		}
	}
	walk(root)

	switch {
	case plain != nil:
		return plain, false
	case htmlPart != nil:
		return htmlPart, true
	case other != nil:
		return other, false
	}
	return nil, false
}

func mediaType(p *core.MessagePart) string {
	mt := strings.ToLower(p.MimeType)
	if mt == "" {
		if parsed, _, err := mime.ParseMediaType(p.Header("Content-Type")); err == nil {
			mt = parsed
		}
	}
	if mt == "" {
		// RFC 2045 default
		mt = "text/plain"
	}
	return mt
}

func isAttachment(p *core.MessagePart) bool {
	if p.Filename != "" {
		return true
	}
	disposition, _, _ := mime.ParseMediaType(p.Header("Content-Disposition"))
	return disposition == "attachment"
}

// DecodeTransfer undoes a transfer encoding that is still present on body.
// Bodies that do not look encoded are returned unchanged.
func DecodeTransfer(body []byte, cte string) []byte {
	switch strings.ToLower(strings.TrimSpace(cte)) {
	case "quoted-printable":
		if !looksQuotedPrintable(body) {
			return body
		}
		decoded, err := io.ReadAll(quotedprintable.NewReader(bytes.NewReader(body)))
		if err != nil {
			return body
		}
		return decoded
	case "base64":
		compact := bytes.Map(func(r rune) rune {
			if r == '\r' || r == '\n' || r == ' ' || r == '\t' {
				return -1
			}
			return r
		}, body)
		decoded, err := base64.StdEncoding.DecodeString(string(compact))
		if err != nil {
			return body
		}
		return decoded
	}
	return body
}

// looksQuotedPrintable reports whether body still carries quoted-printable escapes.
// Bodies without any were decoded upstream.
func looksQuotedPrintable(body []byte) bool {
	if bytes.Contains(body, []byte("=\r\n")) || bytes.Contains(body, []byte("=\n")) {
		return true
	}
	// ISO-2022-JP text can contain "=XX" byte pairs by accident
	if bytes.IndexByte(body, 0x1b) >= 0 {
		return false
	}
	return qpEscape.Match(body)
}

// DecodeBase64URL decodes the URL-safe base64 used by the Gmail API, with or without padding
func DecodeBase64URL(s string) ([]byte, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	return base64.RawURLEncoding.DecodeString(s)
}
