// Package match selects structure nodes by tag-name pattern.
package match

import (
	"fmt"
	"regexp"

	"github.com/jackzampolin/doctag/internal/doc"
)

// Config configures a Matcher.
type Config struct {
	// Pattern is a regular expression over tag names. It is anchored at the
	// start of the name, so "Fig" matches "Figure" but "gure" does not.
	Pattern string

	// IgnoreCase makes matching case-insensitive.
	IgnoreCase bool
}

// Matcher filters nodes whose tag name matches a pattern.
type Matcher struct {
	re *regexp.Regexp
}

// New compiles the pattern.
func New(cfg Config) (*Matcher, error) {
	p := cfg.Pattern
	if cfg.IgnoreCase {
		p = "(?i)" + p
	}
	re, err := regexp.Compile("^(?:" + p + ")")
	if err != nil {
		return nil, fmt.Errorf("invalid tag pattern %q: %w", cfg.Pattern, err)
	}
	return &Matcher{re: re}, nil
}

// MatchName reports whether a single tag name matches.
func (m *Matcher) MatchName(name string) bool {
	return m.re.MatchString(name)
}

// Filter returns the subset of nodes whose raw or role-mapped tag name
// matches, preserving the input (document traversal) order.
func (m *Matcher) Filter(nodes []doc.Node) []doc.Node {
	var out []doc.Node
	for _, n := range nodes {
		if m.MatchName(n.Tag()) || m.MatchName(n.RoleTag()) {
			out = append(out, n)
		}
	}
	return out
}
