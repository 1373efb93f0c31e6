package app

import (
	"strconv"

	"github.com/covid19datasets/sitrep/internal/output"
	"github.com/covid19datasets/sitrep/pkg/constants"
	"github.com/covid19datasets/sitrep/pkg/enrich"
	"github.com/covid19datasets/sitrep/pkg/reconcile"
	"github.com/covid19datasets/sitrep/pkg/record"
)

// reconciliationData renders a reconciliation as a two-row table.
func reconciliationData(res reconcile.Result) output.Data {
	return output.Data{
		Headers: []string{"Change", "Entities"},
		Rows: [][]string{
			{"added", res.Added.String()},
			{"removed", res.Removed.String()},
		},
		Value: res,
	}
}

type entityView struct {
	Name                string `json:"name" yaml:"name"`
	CumulativeConfirmed *int64 `json:"cumulative_confirmed" yaml:"cumulative_confirmed"`
	NewConfirmed        *int64 `json:"new_confirmed" yaml:"new_confirmed"`
	CumulativeDeaths    *int64 `json:"cumulative_deaths" yaml:"cumulative_deaths"`
	NewDeaths           *int64 `json:"new_deaths" yaml:"new_deaths"`
	Transmission        string `json:"transmission,omitempty" yaml:"transmission,omitempty"`
	DaysSinceLastCase   *int64 `json:"days_since_last_case" yaml:"days_since_last_case"`
}

type snapshotView struct {
	ReportDate string       `json:"report_date" yaml:"report_date"`
	Sequence   int          `json:"sequence" yaml:"sequence"`
	Retrieved  string       `json:"retrieved" yaml:"retrieved"`
	Entities   []entityView `json:"entities" yaml:"entities"`
}

// snapshotData renders one row per record.
func snapshotData(snap *record.Snapshot) output.Data {
	view := snapshotView{
		ReportDate: enrich.FormatReportDate(snap.ReportDate),
		Sequence:   snap.Sequence,
		Retrieved:  snap.Retrieved.Format(constants.RetrievedLayout),
		Entities:   make([]entityView, 0, snap.Len()),
	}
	rows := make([][]string, 0, snap.Len())
	for _, r := range snap.Records {
		view.Entities = append(view.Entities, entityView{
			Name:                r.Name,
			CumulativeConfirmed: r.CumulativeConfirmed,
			NewConfirmed:        r.NewConfirmed,
			CumulativeDeaths:    r.CumulativeDeaths,
			NewDeaths:           r.NewDeaths,
			Transmission:        r.Transmission,
			DaysSinceLastCase:   r.DaysSinceLastCase,
		})
		rows = append(rows, []string{
			r.Name,
			count(r.CumulativeConfirmed),
			count(r.NewConfirmed),
			count(r.CumulativeDeaths),
			count(r.NewDeaths),
			r.Transmission,
			count(r.DaysSinceLastCase),
		})
	}

	return output.Data{
		Headers: []string{"Entity", "Confirmed", "New", "Deaths", "New Deaths", "Transmission", "Days Since Case"},
		Rows:    rows,
		ColumnAlignment: []output.Align{
			output.AlignLeft, output.AlignRight, output.AlignRight, output.AlignRight,
			output.AlignRight, output.AlignLeft, output.AlignRight,
		},
		Value: view,
	}
}

func count(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
