package clean

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/covid19datasets/sitrep/internal/matcher"
	"github.com/covid19datasets/sitrep/pkg/errors"
)

// Action is what the filter does with a matching row.
type Action string

const (
	// Drop removes the row.
	Drop Action = "drop"
	// Warn keeps the row and reports it.
	Warn Action = "warn"
)

// Rule maps a label pattern to an action.
type Rule struct {
	Pattern string `yaml:"pattern,omitempty"`
	// Patterns lists further labels handled by the same rule.
	Patterns []string `yaml:"patterns,omitempty"`
	// Match is one of exact, contains, prefix, glob or regex. Default exact.
	Match  string `yaml:"match,omitempty"`
	Action Action `yaml:"action,omitempty"`
	// Column is the zero-based column the pattern applies to. Default 0.
	Column          int  `yaml:"column,omitempty"`
	CaseInsensitive bool `yaml:"case_insensitive,omitempty"`
	// Reason is included in filter reports.
	Reason string `yaml:"reason,omitempty"`

	matcher labelMatcher
}

type labelMatcher interface {
	Match(input string) bool
}

// String renders the rule for logs.
func (r *Rule) String() string {
	match := r.Match
	if match == "" {
		match = "exact"
	}
	if len(r.Patterns) > 0 {
		return fmt.Sprintf("%s %s %d labels (column %d)", r.action(), match, len(r.patterns()), r.Column)
	}
	return fmt.Sprintf("%s %s %q (column %d)", r.action(), match, r.Pattern, r.Column)
}

func (r *Rule) action() Action {
	if r.Action == "" {
		return Drop
	}
	return r.Action
}

func (r *Rule) patterns() []string {
	var out []string
	if strings.TrimSpace(r.Pattern) != "" {
		out = append(out, r.Pattern)
	}
	return append(out, r.Patterns...)
}

func (r *Rule) compile() error {
	pt := matcher.Exact
	if r.Match != "" {
		var err error
		if pt, err = matcher.ParsePatternType(r.Match); err != nil {
			return err
		}
	}
	switch r.action() {
	case Drop, Warn:
	default:
		return fmt.Errorf("unknown action %q", r.Action)
	}
	if r.Column < 0 {
		return fmt.Errorf("negative column %d", r.Column)
	}
	opts := &matcher.Options{CaseInsensitive: r.CaseInsensitive}
	if len(r.Patterns) == 0 {
		m, err := matcher.New(pt, r.Pattern, opts)
		if err != nil {
			return err
		}
		r.matcher = m
		return nil
	}
	mm, err := matcher.NewMultiMatcher(r.patterns(), pt, opts)
	if err != nil {
		return err
	}
	r.matcher = mm
	return nil
}

// Matches reports whether the rule applies to value.
func (r *Rule) Matches(value string) bool {
	return r.matcher != nil && r.matcher.Match(value)
}

// Policy is an ordered rule table. The first matching drop rule wins; warn
// rules that match before it are all reported.
type Policy struct {
	Rules []*Rule `yaml:"rules"`
}

// NewPolicy compiles rules into a policy.
func NewPolicy(rules ...Rule) (*Policy, error) {
	p := &Policy{Rules: make([]*Rule, 0, len(rules))}
	for i := range rules {
		r := rules[i]
		if err := r.compile(); err != nil {
			return nil, errors.NewConfigError("policy", fmt.Sprintf("rule %d: %v", i, err), err)
		}
		p.Rules = append(p.Rules, &r)
	}
	return p, nil
}

// defaultLabels are aggregate, region and header labels seen in report
// tables, including fragments left when a label is split across cells.
var defaultLabels = []string{
	"Western Pacific Region",
	"Territories**",
	"Territory/Area†",
	"European Region",
	"South-East Asia Region",
	"Eastern Mediterranean Region",
	"Region of the Americas",
	"African Region",
	"Subtotal for all",
	"regions",
	"Grand total",
	"astern Mediterranean Region",
	"erritories**",
	"egion of the Americas",
	"outh-East Asia Region",
	"Reporting Country/",
	"Territory/Area †",
}

// DefaultRules returns the built-in rule table. Labels are matched exactly
// against both the name column and the cumulative confirmed column, where
// split headers also land.
func DefaultRules() []Rule {
	rules := make([]Rule, 0, 3)
	for _, col := range []int{0, 1} {
		rules = append(rules, Rule{
			Patterns: append([]string(nil), defaultLabels...),
			Match:    "exact",
			Action:   Drop,
			Column:   col,
			Reason:   "aggregate or header label",
		})
	}
	rules = append(rules, Rule{Pattern: "total", Match: "contains", Action: Drop, CaseInsensitive: true, Reason: "total row"})
	return rules
}

// DefaultPolicy returns the compiled built-in policy.
func DefaultPolicy() *Policy {
	p, err := NewPolicy(DefaultRules()...)
	if err != nil {
		panic(err)
	}
	return p
}

type policyFile struct {
	// Defaults controls whether the built-in rules are prepended.
	Defaults *bool  `yaml:"defaults,omitempty"`
	Rules    []Rule `yaml:"rules"`
}

// LoadPolicy reads a policy file of the form
//
//	defaults: true
//	rules:
//	  - pattern: "(?i)^diamond princess"
//	    match: regex
//	    action: warn
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return ParsePolicy(data, path)
}

// ParsePolicy parses policy YAML. source names the input in errors.
func ParsePolicy(data []byte, source string) (*Policy, error) {
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapParse("yaml", source, err)
	}
	var rules []Rule
	if f.Defaults == nil || *f.Defaults {
		rules = DefaultRules()
	}
	for _, r := range f.Rules {
		if len(r.patterns()) == 0 {
			return nil, errors.NewConfigError("policy", source+": rule with empty pattern", nil)
		}
		rules = append(rules, r)
	}
	return NewPolicy(rules...)
}

// Decision is the policy outcome for one row.
type Decision struct {
	Drop bool
	// Rule is the drop rule that matched, if any.
	Rule *Rule
	// Warnings are the warn rules that matched.
	Warnings []*Rule
}

// Evaluate applies the policy to the given cell values.
func (p *Policy) Evaluate(values []string) Decision {
	var d Decision
	for _, r := range p.Rules {
		if r.Column >= len(values) || !r.Matches(values[r.Column]) {
			continue
		}
		if r.action() == Warn {
			d.Warnings = append(d.Warnings, r)
			continue
		}
		d.Drop = true
		d.Rule = r
		return d
	}
	return d
}
