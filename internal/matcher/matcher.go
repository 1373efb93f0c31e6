// Package matcher matches entity-name labels against policy patterns.
// Inputs and patterns are compared after Unicode normalization so that
// labels extracted with compatibility characters or stray whitespace
// still match the plain-text pattern.
package matcher

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// PatternType represents the type of pattern matching to use.
type PatternType int

const (
	// Exact matches the whole normalized label.
	Exact PatternType = iota
	// Contains matches a substring of the label.
	Contains
	// Prefix matches the start of the label.
	Prefix
	// Glob uses shell-style glob patterns (*, ?, []).
	Glob
	// Regex uses regular expressions.
	Regex
)

// Matcher is the main interface for pattern matching operations.
type Matcher interface {
	// Match checks if the input matches the pattern
	Match(input string) bool
	// Pattern returns the original pattern string.
	Pattern() string
	// Type returns the pattern type being used.
	Type() PatternType
}

// Options configures the matcher behavior.
type Options struct {
	// CaseInsensitive folds case before comparing
	CaseInsensitive bool
}

type matcher struct {
	pattern         string
	patternType     PatternType
	normalized      string
	compiled        *regexp.Regexp
	caseInsensitive bool
	folder          cases.Caser
}

// New creates a new Matcher with the specified pattern and type.
func New(patternType PatternType, pattern string, opts ...*Options) (Matcher, error) {
	options := &Options{}
	if len(opts) > 0 && opts[0] != nil {
		options = opts[0]
	}

	m := &matcher{
		pattern:         pattern,
		patternType:     patternType,
		caseInsensitive: options.CaseInsensitive,
		folder:          cases.Fold(),
	}
	if err := m.compile(); err != nil {
		return nil, fmt.Errorf("failed to compile pattern %q: %w", pattern, err)
	}
	return m, nil
}

func (m *matcher) compile() error {
	switch m.patternType {
	case Exact, Contains, Prefix:
		m.normalized = m.prepare(m.pattern)
	case Glob:
		m.normalized = m.prepare(m.pattern)
		if _, err := filepath.Match(m.normalized, ""); err != nil {
			return fmt.Errorf("invalid glob pattern: %w", err)
		}
	case Regex:
		pattern := m.pattern
		if m.caseInsensitive && !strings.HasPrefix(pattern, "(?i)") {
			pattern = "(?i)" + pattern
		}
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		m.compiled = compiled
	default:
		return fmt.Errorf("unsupported pattern type: %v", m.patternType)
	}
	return nil
}

func (m *matcher) prepare(s string) string {
	s = Normalize(s)
	if m.caseInsensitive {
		s = m.folder.String(s)
	}
	return s
}

// Match checks if the input matches the pattern.
func (m *matcher) Match(input string) bool {
	switch m.patternType {
	case Exact:
		return m.prepare(input) == m.normalized
	case Contains:
		return strings.Contains(m.prepare(input), m.normalized)
	case Prefix:
		return strings.HasPrefix(m.prepare(input), m.normalized)
	case Glob:
		matched, _ := filepath.Match(m.normalized, m.prepare(input))
		return matched
	case Regex:
		return m.compiled.MatchString(Normalize(input))
	default:
		return false
	}
}

// Pattern returns the original pattern string.
func (m *matcher) Pattern() string {
	return m.pattern
}

// Type returns the pattern type being used.
func (m *matcher) Type() PatternType {
	return m.patternType
}

// Normalize applies NFKC, trims, and collapses internal whitespace runs
// (including non-breaking spaces) to a single space.
func Normalize(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

// String returns a string representation of the PatternType.
func (pt PatternType) String() string {
	switch pt {
	case Exact:
		return "exact"
	case Contains:
		return "contains"
	case Prefix:
		return "prefix"
	case Glob:
		return "glob"
	case Regex:
		return "regex"
	default:
		return "unknown"
	}
}

// ParsePatternType parses the textual form used in policy files.
func ParsePatternType(s string) (PatternType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exact":
		return Exact, nil
	case "contains":
		return Contains, nil
	case "prefix":
		return Prefix, nil
	case "glob":
		return Glob, nil
	case "regex":
		return Regex, nil
	}
	return Exact, fmt.Errorf("unknown match type %q", s)
}

// MultiMatcher handles multiple patterns simultaneously.
type MultiMatcher struct {
	matchers []Matcher
}

// NewMultiMatcher creates a matcher with multiple patterns.
func NewMultiMatcher(patterns []string, patternType PatternType, opts ...*Options) (*MultiMatcher, error) {
	mm := &MultiMatcher{
		matchers: make([]Matcher, 0, len(patterns)),
	}

	for _, pattern := range patterns {
		m, err := New(patternType, pattern, opts...)
		if err != nil {
			return nil, err
		}
		mm.matchers = append(mm.matchers, m)
	}

	return mm, nil
}

// Match returns true if any pattern matches.
func (mm *MultiMatcher) Match(input string) bool {
	for _, m := range mm.matchers {
		if m.Match(input) {
			return true
		}
	}
	return false
}

// MatchFirst returns the first matching matcher, or nil.
func (mm *MultiMatcher) MatchFirst(input string) Matcher {
	for _, m := range mm.matchers {
		if m.Match(input) {
			return m
		}
	}
	return nil
}

// Len returns the number of patterns.
func (mm *MultiMatcher) Len() int {
	return len(mm.matchers)
}
