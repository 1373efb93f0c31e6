package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the sitrep CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "sitrep",
		Short:   "Situation report table ingestion",
		Version: a.version,
		Long: `Sitrep extracts the per-country table from a daily situation report,
cleans it into canonical records, reconciles the reporting entities
against the previous report and appends the result to a historical ledger.

Failures and changes in the set of reporting entities are sent to the
configured notifier.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	rootCmd.SetOut(a.out)

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Ledger Commands:",
	})

	// Global flags are read back in setupCommand; only changed flags
	// override the environment and config file.
	rootCmd.PersistentFlags().String("config", "", "config file (default is $HOME/.sitrep.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringP("format", "o", "", "output format: table, json, yaml, markdown")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")

	rootCmd.SetVersionTemplate("sitrep {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	if flags.Changed("config") {
		config, err := LoadConfig(mustGetString(cmd, "config"))
		if err != nil {
			return err
		}
		a.config = config
	}

	var f Flags
	if flags.Changed("verbose") {
		v := mustGetBool(cmd, "verbose")
		f.Verbose = &v
	}
	if flags.Changed("quiet") {
		q := mustGetBool(cmd, "quiet")
		f.Quiet = &q
	}
	if flags.Changed("no-color") {
		nc := mustGetBool(cmd, "no-color")
		f.NoColor = &nc
	}
	if flags.Changed("format") {
		o := mustGetString(cmd, "format")
		f.Format = &o
	}
	if flags.Changed("log-level") {
		l := mustGetString(cmd, "log-level")
		f.LogLevel = &l
	}
	a.config.UpdateFromFlags(f)

	// Reinitialize logger with updated config
	if !a.fixedLogger {
		a.resetLogger()
	}

	return nil
}

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(a.NewScrapeCommand())
	rootCmd.AddCommand(a.NewDiffCommand())
	rootCmd.AddCommand(a.NewSequenceCommand())

	// Ledger commands
	rootCmd.AddCommand(a.NewCurrentCommand())
	rootCmd.AddCommand(a.NewCompactCommand())
	rootCmd.AddCommand(a.NewExportCommand())

	// Utility commands
	rootCmd.AddCommand(a.NewVersionCommand())
}

// ExitOnError is a helper that prints an error and exits with status 1.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

// mustGetBool retrieves a boolean flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
