package mimetext

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// boundary marks an inline tag edge until we know whether a digit touches it
const boundary = '\uE000'

var (
	skippedElements = map[atom.Atom]bool{
		atom.Script:   true,
		atom.Style:    true,
		atom.Head:     true,
		atom.Noscript: true,
		atom.Template: true,
	}

	blockElements = map[atom.Atom]bool{
		atom.Br: true, atom.P: true, atom.Div: true, atom.Tr: true, atom.Li: true,
		atom.Table: true, atom.Tbody: true, atom.Thead: true, atom.Tfoot: true,
		atom.Ul: true, atom.Ol: true, atom.Dl: true, atom.Dt: true, atom.Dd: true,
		atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
		atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true,
		atom.Blockquote: true, atom.Pre: true, atom.Hr: true, atom.Center: true, atom.Form: true,
	}

	cellElements = map[atom.Atom]bool{
		atom.Td: true, atom.Th: true,
	}

	tagPattern      = regexp.MustCompile(`(?s)<[^>]*>`)
	digitBeforeUnit = regexp.MustCompile(`(\p{Nd})([年月日時分])`)
	unitBeforeDigit = regexp.MustCompile(`([年月日時分])(\p{Nd})`)
)

// HTMLToText collapses an HTML document to plain text. Script and style blocks are
// dropped, block elements become newlines and digits are kept apart from neighbouring
// tags and date units so separate numbers cannot merge into one token.
func HTMLToText(src string) string {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return separateDateUnits(tagPattern.ReplaceAllString(src, " "))
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			if skippedElements[n.DataAtom] {
				return
			}
		case html.CommentNode, html.DoctypeNode:
			return
		}

		before, after := separatorFor(n)
		sb.WriteString(before)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		sb.WriteString(after)
	}
	walk(doc)

	return separateDateUnits(resolveBoundaries(sb.String()))
}

func separatorFor(n *html.Node) (string, string) {
	if n.Type != html.ElementNode {
		return "", ""
	}
	switch {
	case n.DataAtom == atom.Br || n.DataAtom == atom.Hr:
		return "\n", ""
	case blockElements[n.DataAtom]:
		return "\n", "\n"
	case cellElements[n.DataAtom]:
		return " ", " "
	default:
		return string(boundary), string(boundary)
	}
}

// resolveBoundaries turns inline tag markers into a space when a digit sits on either side
func resolveBoundaries(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	var prev rune
	for i, r := range s {
		if r != boundary {
			sb.WriteRune(r)
			prev = r
			continue
		}
		next := nextNonBoundary(s[i+utf8.RuneLen(r):])
		if unicode.IsDigit(prev) || unicode.IsDigit(next) {
			if prev != ' ' {
				sb.WriteByte(' ')
				prev = ' '
			}
		}
	}
	return sb.String()
}

func nextNonBoundary(s string) rune {
	for _, r := range s {
		if r != boundary {
			return r
		}
	}
	return 0
}

func separateDateUnits(s string) string {
	s = digitBeforeUnit.ReplaceAllString(s, "$1 $2")
	return unitBeforeDigit.ReplaceAllString(s, "$1 $2")
}
