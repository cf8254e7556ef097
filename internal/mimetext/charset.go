package mimetext

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// minDetectConfidence is the chardet confidence below which a detection is ignored
const minDetectConfidence = 30

var charsetAliases = map[string]string{
	"cp932":       "shift_jis",
	"ms932":       "shift_jis",
	"sjis":        "shift_jis",
	"x-sjis":      "shift_jis",
	"shift-jis":   "shift_jis",
	"utf8":        "utf-8",
	"ascii":       "us-ascii",
	"x-euc-jp":    "euc-jp",
	"iso2022jp":   "iso-2022-jp",
	"csiso2022jp": "iso-2022-jp",
}

// NormalizeCharset lowercases a charset label and resolves common aliases
func NormalizeCharset(label string) string {
	label = strings.ToLower(strings.Trim(strings.TrimSpace(label), `"'`))
	if alias, ok := charsetAliases[label]; ok {
		return alias
	}
	return label
}

// ResolveCharset picks the charset to decode body with. The declared charset is used
// unless it is missing or contradicted by the bytes, in which case detection wins.
func ResolveCharset(body []byte, declared string) (string, bool) {
	declared = NormalizeCharset(declared)
	if declared != "" && !inconsistent(body, declared) {
		return declared, false
	}
	if detected, ok := DetectCharset(body); ok {
		return detected, true
	}
	if declared != "" {
		return declared, false
	}
	return "utf-8", false
}

// DetectCharset guesses the charset of body
func DetectCharset(body []byte) (string, bool) {
	if len(body) == 0 {
		return "", false
	}
	if hasISO2022Escape(body) && !hasHighBit(body) {
		return "iso-2022-jp", true
	}
	if !hasHighBit(body) {
		return "us-ascii", true
	}
	if utf8.Valid(body) {
		return "utf-8", true
	}

	result, err := chardet.NewTextDetector().DetectBest(body)
	if err != nil || result == nil || result.Confidence < minDetectConfidence {
		return "", false
	}
	return NormalizeCharset(result.Charset), true
}

// inconsistent reports whether the bytes contradict the declared charset
func inconsistent(body []byte, declared string) bool {
	switch declared {
	case "utf-8":
		return !utf8.Valid(body)
	case "iso-2022-jp":
		return hasHighBit(body)
	case "shift_jis", "windows-31j", "euc-jp":
		return hasHighBit(body) && utf8.Valid(body)
	case "us-ascii":
		return hasISO2022Escape(body) || hasHighBit(body)
	case "iso-8859-1", "windows-1252", "latin1":
		return hasISO2022Escape(body) || (hasHighBit(body) && utf8.Valid(body))
	}
	return false
}

// Convert decodes body from charset to a UTF-8 string
func Convert(body []byte, charset string) (string, error) {
	charset = NormalizeCharset(charset)
	switch charset {
	case "", "utf-8", "us-ascii":
		if !utf8.Valid(body) {
			return "", fmt.Errorf("body is not valid %s", orDefault(charset, "utf-8"))
		}
		return string(body), nil
	}

	enc, err := lookupEncoding(charset)
	if err != nil {
		return "", err
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s body: %w", charset, err)
	}
	return string(out), nil
}

func lookupEncoding(charset string) (encoding.Encoding, error) {
	if enc, err := htmlindex.Get(charset); err == nil && enc != nil {
		return enc, nil
	}
	if enc, err := ianaindex.MIME.Encoding(charset); err == nil && enc != nil {
		return enc, nil
	}
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", charset, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
	return enc, nil
}

// charsetReader is used by mime.WordDecoder for encoded header words
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	charset = NormalizeCharset(charset)
	if charset == "" || charset == "utf-8" || charset == "us-ascii" {
		return input, nil
	}
	enc, err := lookupEncoding(charset)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

func hasHighBit(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return true
		}
	}
	return false
}

func hasISO2022Escape(b []byte) bool {
	return bytes.Contains(b, []byte("\x1b$B")) ||
		bytes.Contains(b, []byte("\x1b$@")) ||
		bytes.Contains(b, []byte("\x1b(J"))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
