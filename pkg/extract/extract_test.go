package extract

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsawler/tabula/model"

	"github.com/covid19datasets/sitrep/pkg/errors"
	"github.com/covid19datasets/sitrep/pkg/table"
)

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatPDF, FormatFromPath("sitrep-42.pdf"))
	assert.Equal(t, FormatDOCX, FormatFromPath("report.DOCX"))
	assert.Equal(t, FormatODT, FormatFromPath("report.odt"))
	assert.Equal(t, FormatPDF, FormatFromPath("download"))
}

func TestStatic(t *testing.T) {
	src := table.FromStrings([][]string{{"China", "1"}})
	s := Static{Tables: []*table.Raw{src}}

	got, err := s.Extract(context.Background(), Open("x.pdf"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	got[0].Rows[0].SetName(table.Value("changed"))
	assert.Equal(t, "China", src.Rows[0].Name().Text)

	_, err = Static{Err: errors.NewExtractionError("x.pdf", "corrupt", nil)}.Extract(context.Background(), Open("x.pdf"))
	assert.True(t, errors.IsExtraction(err))
}

func TestTabulaMissingFile(t *testing.T) {
	x := NewTabula(nil)
	_, err := x.Extract(context.Background(), Open(filepath.Join(t.TempDir(), "missing.pdf")))
	require.Error(t, err)
	assert.True(t, errors.IsExtraction(err))
}

func TestFromModel(t *testing.T) {
	mt := &model.Table{Rows: [][]model.Cell{
		{{Text: "China"}, {Text: " 80 904 "}, {Text: ""}},
		{{Text: "Japan"}},
	}}
	raw := fromModel(mt)
	assert.Equal(t, 3, raw.ColumnCount())
	assert.Equal(t, "80 904", raw.Rows[0].Cells[1].Text)
	assert.False(t, raw.Rows[0].Cells[2].Present)
	assert.Len(t, raw.Rows[1].Cells, 1)
}
