package app

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/covid19datasets/sitrep/internal/fetch"
	"github.com/covid19datasets/sitrep/internal/output"
	"github.com/covid19datasets/sitrep/pkg/constants"
	"github.com/covid19datasets/sitrep/pkg/enrich"
	"github.com/covid19datasets/sitrep/pkg/errors"
	"github.com/covid19datasets/sitrep/pkg/extract"
	"github.com/covid19datasets/sitrep/pkg/ledger"
	"github.com/covid19datasets/sitrep/pkg/pipeline"
	"github.com/covid19datasets/sitrep/pkg/reconcile"
	"github.com/covid19datasets/sitrep/pkg/record"
)

type scrapeOptions struct {
	date   string
	file   string
	url    string
	dryRun bool
}

// NewScrapeCommand creates the scrape command.
func (a *App) NewScrapeCommand() *cobra.Command {
	o := &scrapeOptions{}
	cmd := &cobra.Command{
		Use:     "scrape --date DDMMYYYY (--file PATH | --url URL)",
		GroupID: "core",
		Short:   "Ingest one situation report",
		Long: `Scrape runs a report through the full pipeline: table extraction,
schema validation, row merging and filtering, enrichment, reconciliation
against the previous report and persistence.

The operator is notified when the run fails or the set of reporting
entities changes. With --dry-run nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runScrape(cmd, o)
		},
	}
	cmd.Flags().StringVar(&o.date, "date", "", "report date as DDMMYYYY")
	cmd.Flags().StringVar(&o.file, "file", "", "local report document")
	cmd.Flags().StringVar(&o.url, "url", "", "report document to download")
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "run every stage but write nothing")
	_ = cmd.MarkFlagRequired("date")
	cmd.MarkFlagsMutuallyExclusive("file", "url")
	cmd.MarkFlagsOneRequired("file", "url")
	return cmd
}

func (a *App) runScrape(cmd *cobra.Command, o *scrapeOptions) error {
	ctx := cmd.Context()
	date, err := enrich.ParseReportDate(o.date)
	if err != nil {
		return err
	}
	a.config.DryRun = o.dryRun

	s, err := a.Scraper(ctx)
	if err != nil {
		return err
	}

	lock, err := acquireLock(a.config.WorkDir, date)
	if err != nil {
		if errors.IsAlreadyExists(err) {
			a.logger.Warn().Str("date", o.date).Msg("Another run holds the lock for this report")
		}
		return s.ReportFailure(ctx, date, err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to release run lock")
		}
	}()

	path := o.file
	if o.url != "" {
		name := fetch.FileName(o.url, date.Format(constants.SegmentDateLayout))
		if path, err = fetch.New(a.logger).Fetch(ctx, o.url, a.config.WorkDir, name); err != nil {
			return s.ReportFailure(ctx, date, err)
		}
	}

	res, err := s.Scrape(ctx, extract.Open(path), date)
	if err != nil {
		return err
	}
	printScrapeResult(cmd.OutOrStdout(), res)
	return nil
}

func printScrapeResult(w io.Writer, res *pipeline.Result) {
	snap := res.Snapshot
	fmt.Fprintf(w, "Report %s (#%d): %s\n", enrich.FormatReportDate(res.ReportDate), snap.Sequence, res.Stage)
	fmt.Fprintf(w, "Records: %d\n", snap.Len())
	fmt.Fprintf(w, "Merged:  %d\n", res.Merged)
	fmt.Fprintf(w, "Dropped: %d\n", len(res.Dropped))
	if len(res.Issues) > 0 {
		fmt.Fprintf(w, "Issues:  %d\n", len(res.Issues))
	}
	if len(res.Drift) > 0 {
		fmt.Fprintf(w, "Discarded tables: %d\n", len(res.Drift))
	}
	fmt.Fprintf(w, "Added:   %s\n", res.Reconciliation.Added)
	fmt.Fprintf(w, "Removed: %s\n", res.Reconciliation.Removed)
}

// NewDiffCommand creates the diff command.
func (a *App) NewDiffCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "diff PREV.csv NEXT.csv",
		GroupID: "core",
		Short:   "Reconcile the entities of two snapshot files",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			prev, err := readSnapshotFile(args[0])
			if err != nil {
				return err
			}
			next, err := readSnapshotFile(args[1])
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), reconciliationData(reconcile.Reconcile(prev, next)))
		},
	}
}

func readSnapshotFile(path string) (*record.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	records, err := ledger.Decode(data, path)
	if err != nil {
		return nil, err
	}
	return &record.Snapshot{Records: records}, nil
}

// print renders data in the configured output format.
func (a *App) print(w io.Writer, data output.Data) error {
	format, err := output.ParseFormat(a.config.Format)
	if err != nil {
		return errors.NewConfigError("format", err.Error(), err)
	}
	return output.NewFormatter(format).Format(w, data)
}

// NewSequenceCommand creates the sequence command.
func (a *App) NewSequenceCommand() *cobra.Command {
	var (
		date   string
		number int
	)
	cmd := &cobra.Command{
		Use:     "sequence (--date DDMMYYYY | --number N)",
		GroupID: "core",
		Short:   "Convert between report dates and report numbers",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("number") {
				fmt.Fprintln(cmd.OutOrStdout(), enrich.FormatReportDate(enrich.DateForSequence(number)))
				return nil
			}
			d, err := enrich.ParseReportDate(date)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strconv.Itoa(enrich.SequenceNumber(d)))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "report date as DDMMYYYY")
	cmd.Flags().IntVar(&number, "number", 0, "report number")
	cmd.MarkFlagsMutuallyExclusive("date", "number")
	cmd.MarkFlagsOneRequired("date", "number")
	return cmd
}

// NewCurrentCommand creates the current command.
func (a *App) NewCurrentCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "current",
		GroupID: "management",
		Short:   "Show the current-period snapshot",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.Scraper(cmd.Context())
			if err != nil {
				return err
			}
			snap, err := s.Current(cmd.Context())
			if err != nil {
				return err
			}
			a.logger.Info().
				Str("report_date", enrich.FormatReportDate(snap.ReportDate)).
				Int("sequence", snap.Sequence).
				Time("retrieved", snap.Retrieved).
				Msg("Current snapshot")
			return a.print(cmd.OutOrStdout(), snapshotData(snap))
		},
	}
}

// NewCompactCommand creates the compact command.
func (a *App) NewCompactCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "compact",
		GroupID: "management",
		Short:   "Fold ledger segments into the consolidated ledger file",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.Scraper(cmd.Context())
			if err != nil {
				return err
			}
			res, err := s.Compact(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Compacted %d segments (%d records) into %s\n",
				res.Segments, res.Records, s.Ledger().ConsolidatedKey())
			return nil
		},
	}
}

// NewExportCommand creates the export command.
func (a *App) NewExportCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:     "export [--out FILE.parquet]",
		GroupID: "management",
		Short:   "Export the ledger as Parquet",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.Scraper(cmd.Context())
			if err != nil {
				return err
			}
			n, err := s.Export(cmd.Context(), out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "historic.parquet", "store key of the Parquet file")
	return cmd
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "sitrep version %s\n", a.version)
			fmt.Fprintf(w, "commit: %s\n", a.commit)
			fmt.Fprintf(w, "built: %s\n", a.date)
			fmt.Fprintf(w, "built by: %s\n", a.builtBy)
			fmt.Fprintf(w, "go version: %s\n", runtime.Version())
			fmt.Fprintf(w, "platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
