package mimetext

import (
	"strings"

	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"golang.org/x/text/unicode/norm"
)

var spaceReplacer = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\t", " ",
	"\u00a0", " ",
	"\u3000", " ",
	"\u200b", "",
	"\ufeff", "",
)

// Normalize folds whitespace and applies NFKC so full-width digits, letters and
// currency signs match half-width patterns. Blank lines are dropped. Normalize is idempotent.
func Normalize(s string) string {
	s = norm.NFKC.String(spaceReplacer.Replace(s))

	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// Flatten returns the authoritative body as normalized text: the plain body when it
// has content, otherwise the collapsed HTML body.
func Flatten(t core.MailText) string {
	if strings.TrimSpace(t.Plain) != "" {
		return Normalize(t.Plain)
	}
	if strings.TrimSpace(t.HTML) != "" {
		return Normalize(HTMLToText(t.HTML))
	}
	return ""
}
