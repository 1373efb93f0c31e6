// Package constants provides shared constants used throughout the sitrep codebase.
// This includes the report epoch, schema widths, file permissions, and default
// file names that must stay consistent between the CLI and the library.
package constants

import "time"

// Report constants describe the published situation report series.
const (
	// EpochYear, EpochMonth and EpochDay identify the first report ever issued.
	// Report sequence numbers are day offsets from this date.
	EpochYear  = 2020
	EpochMonth = time.January
	EpochDay   = 20

	// ExpectedColumns is the column width of the active report layout.
	ExpectedColumns = 7

	// DefaultTimezone is the zone retrieval timestamps are captured in.
	DefaultTimezone = "Australia/Canberra"

	// ReleaseTimezone is the zone reports are released in (10:00 CET).
	ReleaseTimezone = "CET"
)

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the timeout for a single document download
	DefaultHTTPTimeout = 2 * time.Minute

	// ShutdownTimeout bounds graceful shutdown after a failed command
	ShutdownTimeout = 5 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Path constants
const (
	// DefaultDataDir is where snapshot and ledger files live by default
	DefaultDataDir = "."

	// DefaultSnapshotFile holds the current period snapshot
	DefaultSnapshotFile = "today.csv"

	// DefaultLedgerFile holds the compacted historical ledger
	DefaultLedgerFile = "historic.csv"

	// DefaultCompactEvery folds new segments into the ledger file after every run
	DefaultCompactEvery = 1

	// LedgerDir holds ledger segments and the arrival index
	LedgerDir = "ledger"

	// LedgerIndexFile is the arrival-ordered index of ledger segments
	LedgerIndexFile = "index.csv"

	// LedgerSegmentDir holds one immutable segment per report date
	LedgerSegmentDir = "segments"

	// DefaultConfigName is the config file name searched in $HOME and ./
	DefaultConfigName = ".sitrep"
)

// Format constants
const (
	// ReportDateLayout is the persisted report date format (dd/mm/yyyy)
	ReportDateLayout = "02/01/2006"

	// ReportDateFlagLayout is the DDMMYYYY date format accepted on the command line
	ReportDateFlagLayout = "02012006"

	// SegmentDateLayout is the date format used in segment keys
	SegmentDateLayout = "20060102"

	// RetrievedLayout is the persisted retrieval timestamp format
	RetrievedLayout = time.RFC3339Nano

	// NoneSentinel renders an empty reconciliation set
	NoneSentinel = "none"
)
