// Package schema validates extracted tables against a registry of known
// report layouts and assembles the schema-conformant ones into a single
// working table.
package schema

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/covid19datasets/sitrep/internal/matcher"
	"github.com/covid19datasets/sitrep/pkg/errors"
	"github.com/covid19datasets/sitrep/pkg/table"
)

// Canonical column names of the seven-column layout, in persisted order.
const (
	ColumnName                = "Country/Region"
	ColumnCumulativeConfirmed = "Cumulative Confirmed Cases"
	ColumnNewConfirmed        = "Total New Confirmed Cases"
	ColumnCumulativeDeaths    = "Cumulative Deaths"
	ColumnNewDeaths           = "Total New Deaths"
	ColumnTransmission        = "Classification of Transmission"
	ColumnDaysSinceLastCase   = "Days Since Previous Reported Case"
)

// Layout is a named column layout for one version of the report table.
type Layout struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	// Header is an optional fingerprint: case-insensitive prefixes expected
	// in the leading cells of a repeated header row. Empty entries match anything.
	Header []string `yaml:"header,omitempty"`
}

// Width returns the number of columns in the layout.
func (l Layout) Width() int {
	return len(l.Columns)
}

// IsHeader reports whether row matches the layout's header fingerprint.
func (l Layout) IsHeader(row table.Row) bool {
	if len(l.Header) == 0 {
		return false
	}
	matched := 0
	for i, token := range l.Header {
		if token == "" {
			continue
		}
		if i >= len(row.Cells) || !row.Cells[i].Present {
			return false
		}
		m, err := matcher.New(matcher.Prefix, token, &matcher.Options{CaseInsensitive: true})
		if err != nil || !m.Match(row.Cells[i].Text) {
			return false
		}
		matched++
	}
	return matched > 0
}

// WHOSitrepV7 is the seven-column layout used by the daily situation reports.
var WHOSitrepV7 = Layout{
	Name: "who-sitrep-v7",
	Columns: []string{
		ColumnName,
		ColumnCumulativeConfirmed,
		ColumnNewConfirmed,
		ColumnCumulativeDeaths,
		ColumnNewDeaths,
		ColumnTransmission,
		ColumnDaysSinceLastCase,
	},
	Header: []string{"reporting country", "total confirmed"},
}

// Registry maps table widths to the layouts registered for them. The first
// layout registered for a width is that width's default.
type Registry struct {
	layouts map[int][]Layout
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{layouts: make(map[int][]Layout)}
}

// DefaultRegistry returns a registry holding the built-in layouts.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(WHOSitrepV7)
	return r
}

// Register adds a layout. Names must be unique and layouts non-empty.
func (r *Registry) Register(l Layout) error {
	if l.Name == "" {
		return errors.NewConfigError("schema", "layout name is required", nil)
	}
	if l.Width() == 0 {
		return errors.NewConfigError("schema", fmt.Sprintf("layout %s has no columns", l.Name), nil)
	}
	for _, name := range r.order {
		if name == l.Name {
			return errors.NewAlreadyExistsError("layout", l.Name)
		}
	}
	seen := make(map[string]bool, l.Width())
	for _, c := range l.Columns {
		if strings.TrimSpace(c) == "" || seen[c] {
			return errors.NewConfigError("schema", fmt.Sprintf("layout %s has blank or duplicate column %q", l.Name, c), nil)
		}
		seen[c] = true
	}
	r.layouts[l.Width()] = append(r.layouts[l.Width()], l)
	r.order = append(r.order, l.Name)
	return nil
}

// Lookup returns the layout for a table of the given width whose first row
// is first. A layout whose header fingerprint matches is preferred over the
// width's default.
func (r *Registry) Lookup(width int, first *table.Row) (Layout, bool) {
	candidates := r.layouts[width]
	if len(candidates) == 0 {
		return Layout{}, false
	}
	if first != nil {
		for _, l := range candidates {
			if l.IsHeader(*first) {
				return l, true
			}
		}
	}
	return candidates[0], true
}

// Has reports whether any layout is registered for width.
func (r *Registry) Has(width int) bool {
	return len(r.layouts[width]) > 0
}

// Names returns layout names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

type registryFile struct {
	Layouts []Layout `yaml:"layouts"`
}

// LoadRegistry reads layouts from a YAML file of the form
//
//	layouts:
//	  - name: who-sitrep-v7
//	    columns: [...]
//	    header: [...]
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return ParseRegistry(data, path)
}

// ParseRegistry parses registry YAML. source names the input in errors.
func ParseRegistry(data []byte, source string) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapParse("yaml", source, err)
	}
	if len(f.Layouts) == 0 {
		return nil, errors.NewConfigError("schema", source+" defines no layouts", nil)
	}
	r := NewRegistry()
	for _, l := range f.Layouts {
		if err := r.Register(l); err != nil {
			return nil, err
		}
	}
	return r, nil
}
