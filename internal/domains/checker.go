package domains

import (
	"strings"

	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"go.uber.org/zap"
)

// MatchKind says how specifically a domain matched a list entry
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchSuffix
	MatchExact
)

// Checker matches sender domains against a list, exactly or by dot-suffix
type Checker struct {
	name    string
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new domain checker
func NewChecker(name string, domains []string, logger *zap.Logger) *Checker {
	normalized := make([]string, 0, len(domains))
	for _, domain := range domains {
		d := strings.Trim(strings.ToLower(strings.TrimSpace(domain)), ".")
		d = strings.TrimPrefix(d, "@")
		if d != "" {
			normalized = append(normalized, d)
		}
	}

	if len(normalized) > 0 && logger != nil {
		logger.Debug("Initialized domain checker",
			zap.String("list", name),
			zap.Strings("domains", normalized))
	}

	return &Checker{
		name:    name,
		domains: normalized,
		logger:  logger,
	}
}

// Match reports the most specific match for domain and the list entry it matched
func (c *Checker) Match(domain string) (MatchKind, string) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if c == nil || domain == "" {
		return MatchNone, ""
	}

	best, entry := MatchNone, ""
	for _, d := range c.domains {
		switch {
		case domain == d:
			return MatchExact, d
		case strings.HasSuffix(domain, "."+d):
			// prefer the longest suffix, e.g. mail.cr.mufg.jp over mufg.jp
			if best == MatchNone || len(d) > len(entry) {
				best, entry = MatchSuffix, d
			}
		}
	}
	return best, entry
}

// Contains reports whether domain is listed, exactly or as a subdomain
func (c *Checker) Contains(domain string) bool {
	kind, _ := c.Match(domain)
	return kind != MatchNone
}

// IsListed checks the domain of a From address
func (c *Checker) IsListed(from string) bool {
	domain := core.DomainOf(from)
	listed := c.Contains(domain)
	if listed && c.logger != nil {
		c.logger.Debug("Domain is listed",
			zap.String("list", c.name),
			zap.String("domain", domain))
	}
	return listed
}

// Len returns the number of entries
func (c *Checker) Len() int {
	if c == nil {
		return 0
	}
	return len(c.domains)
}
