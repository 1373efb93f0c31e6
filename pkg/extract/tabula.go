package extract

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tsawler/tabula"
	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/tables"

	"github.com/covid19datasets/sitrep/pkg/errors"
	"github.com/covid19datasets/sitrep/pkg/table"
)

// Detector finds tables on a laid-out page.
type Detector interface {
	Detect(page *model.Page) ([]*model.Table, error)
}

// Tabula extracts tables with the tabula document library. PDF pages are
// run through a geometric table detector; DOCX and ODT tables come from
// the document structure.
type Tabula struct {
	detector Detector
	logger   *zerolog.Logger
}

// NewTabula creates a Tabula extractor. A nil logger discards output.
func NewTabula(logger *zerolog.Logger) *Tabula {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Tabula{detector: tables.NewGeometricDetector(), logger: logger}
}

// WithDetector replaces the PDF table detector.
func (t *Tabula) WithDetector(d Detector) *Tabula {
	t.detector = d
	return t
}

// Extract implements Extractor.
func (t *Tabula) Extract(ctx context.Context, doc Document) ([]*table.Raw, error) {
	switch doc.Format {
	case FormatDOCX, FormatODT:
		return t.extractStructured(ctx, doc)
	default:
		return t.extractPDF(ctx, doc)
	}
}

func (t *Tabula) extractPDF(ctx context.Context, doc Document) ([]*table.Raw, error) {
	r, err := reader.Open(doc.Path)
	if err != nil {
		return nil, errors.NewExtractionError(doc.Path, "cannot open PDF", err)
	}
	defer func() { _ = r.Close() }()

	count, err := r.PageCount()
	if err != nil {
		return nil, errors.NewExtractionError(doc.Path, "cannot read page tree", err)
	}

	var out []*table.Raw
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := r.GetPage(i)
		if err != nil {
			return nil, errors.NewExtractionError(doc.Path, fmt.Sprintf("page %d", i+1), err)
		}
		fragments, err := r.ExtractTextFragments(page)
		if err != nil {
			return nil, errors.NewExtractionError(doc.Path, fmt.Sprintf("page %d text", i+1), err)
		}

		width, _ := page.Width()
		height, _ := page.Height()
		mp := model.NewPage(width, height)
		mp.Number = i + 1
		for _, f := range fragments {
			mp.RawText = append(mp.RawText, model.TextFragment{
				Text:     f.Text,
				BBox:     model.NewBBox(f.X, f.Y, f.Width, f.Height),
				FontSize: f.FontSize,
				FontName: f.FontName,
			})
		}

		found, err := t.detector.Detect(mp)
		if err != nil {
			t.logger.Warn().Err(err).Int("page", i+1).Msg("Table detection failed on page")
			continue
		}
		for _, mt := range found {
			raw := fromModel(mt)
			raw.Page = i + 1
			out = append(out, raw)
		}
		t.logger.Debug().Int("page", i+1).Int("tables", len(found)).Msg("Scanned page")
	}
	return out, nil
}

func (t *Tabula) extractStructured(ctx context.Context, doc Document) ([]*table.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	md, warnings, err := tabula.Open(doc.Path).Document()
	if err != nil {
		return nil, errors.NewExtractionError(doc.Path, "cannot read "+string(doc.Format)+" document", err)
	}
	for _, w := range warnings {
		t.logger.Warn().Str("document", doc.Path).Msg(w.Message)
	}
	var out []*table.Raw
	for _, mt := range md.ExtractTables() {
		out = append(out, fromModel(mt))
	}
	return out, nil
}

func fromModel(mt *model.Table) *table.Raw {
	rows := make([][]string, len(mt.Rows))
	for i, row := range mt.Rows {
		cells := make([]string, len(row))
		for j, c := range row {
			cells[j] = c.Text
		}
		rows[i] = cells
	}
	return table.FromStrings(rows)
}
