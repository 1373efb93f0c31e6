// Package extract turns a report document into candidate tables.
package extract

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/covid19datasets/sitrep/pkg/table"
)

// Format is a document container format.
type Format string

// Supported formats.
const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatODT  Format = "odt"
)

// Document is a handle to a report document on local disk.
type Document struct {
	Path   string
	Format Format
}

// Open returns a handle for path, inferring the format from the extension.
// Unknown extensions are treated as PDF.
func Open(path string) Document {
	return Document{Path: path, Format: FormatFromPath(path)}
}

// FormatFromPath infers a format from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return FormatDOCX
	case ".odt":
		return FormatODT
	}
	return FormatPDF
}

// Extractor returns every table-like region of a document in page order.
// Extraction is lossy: merged and split cells are expected.
type Extractor interface {
	Extract(ctx context.Context, doc Document) ([]*table.Raw, error)
}

// Func adapts a function to Extractor.
type Func func(ctx context.Context, doc Document) ([]*table.Raw, error)

// Extract implements Extractor.
func (f Func) Extract(ctx context.Context, doc Document) ([]*table.Raw, error) {
	return f(ctx, doc)
}

// Static returns fixed tables regardless of the document.
type Static struct {
	Tables []*table.Raw
	Err    error
}

// Extract implements Extractor.
func (s Static) Extract(ctx context.Context, _ Document) ([]*table.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]*table.Raw, len(s.Tables))
	for i, t := range s.Tables {
		out[i] = t.Clone()
	}
	return out, nil
}
