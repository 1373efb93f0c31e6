package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	writerfile "github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/covid19datasets/sitrep/pkg/constants"
	"github.com/covid19datasets/sitrep/pkg/record"
)

type parquetField struct {
	name     string
	physical string
}

var parquetFields = []parquetField{
	{"country_region", "BYTE_ARRAY"},
	{"cumulative_confirmed", "INT64"},
	{"new_confirmed", "INT64"},
	{"cumulative_deaths", "INT64"},
	{"new_deaths", "INT64"},
	{"transmission", "BYTE_ARRAY"},
	{"days_since_last_case", "INT64"},
	{"report_date", "BYTE_ARRAY"},
	{"retrieved", "BYTE_ARRAY"},
	{"report_number", "INT64"},
}

func parquetSchema() string {
	fields := make([]map[string]string, 0, len(parquetFields))
	for _, f := range parquetFields {
		tag := fmt.Sprintf("name=%s, type=%s, repetitiontype=OPTIONAL", f.name, f.physical)
		if f.physical == "BYTE_ARRAY" {
			tag += ", convertedtype=UTF8"
		}
		fields = append(fields, map[string]string{"Tag": tag})
	}
	out := map[string]any{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": fields,
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func parquetRow(r record.Record) (string, error) {
	row := map[string]any{
		"country_region":       r.Name,
		"cumulative_confirmed": r.CumulativeConfirmed,
		"new_confirmed":        r.NewConfirmed,
		"cumulative_deaths":    r.CumulativeDeaths,
		"new_deaths":           r.NewDeaths,
		"days_since_last_case": r.DaysSinceLastCase,
		"report_date":          r.ReportDate.Format(constants.ReportDateLayout),
		"retrieved":            r.Retrieved.Format(constants.RetrievedLayout),
		"report_number":        r.Sequence,
	}
	if r.Transmission != "" {
		row["transmission"] = r.Transmission
	}
	b, err := json.Marshal(row)
	return string(b), err
}

// EncodeParquet renders records as a Snappy-compressed Parquet file.
// Missing values are nulls.
func EncodeParquet(records []record.Record) ([]byte, error) {
	buf := &bytes.Buffer{}
	pfw := writerfile.NewWriterFile(buf)
	pw, err := writer.NewJSONWriter(parquetSchema(), pfw, 4)
	if err != nil {
		return nil, fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, r := range records {
		row, err := parquetRow(r)
		if err != nil {
			_ = pw.WriteStop()
			return nil, err
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return nil, fmt.Errorf("write parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("finish parquet file: %w", err)
	}
	_ = pfw.Close()
	return buf.Bytes(), nil
}

// ExportParquet encodes every committed ledger record as Parquet.
func (l *Ledger) ExportParquet(ctx context.Context) ([]byte, int, error) {
	records, err := l.Read(ctx)
	if err != nil {
		return nil, 0, err
	}
	data, err := EncodeParquet(records)
	if err != nil {
		return nil, 0, err
	}
	return data, len(records), nil
}
