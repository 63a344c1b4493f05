// =============================================================================
// navaudit - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (navaudit)
//   ├── navCmd            (navaudit nav)
//   ├── txnCmd            (navaudit txn)
//   ├── batchCmd          (navaudit batch)
//   ├── validateCmd       (navaudit validate-config)
//   ├── schemaTemplateCmd (navaudit schema-template)
//   └── versionCmd        (navaudit version)
//
// The root command loads the configuration and builds the logger before any
// subcommand runs.
//
// EXIT CODES:
//   0 : success
//   1 : command failed (bad flags, bad config, missing file, I/O error)
//   2 : --fail-on-issues was set and a report holds error-severity issues
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/remiges-tech/logharbour/logharbour"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/navaudit/internal/config"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file (--config).
var cfgFile string

// verbose lowers the log priority to debug (--verbose).
var verbose bool

// appConfig and logger are set by the root PersistentPreRunE.
var (
	appConfig *config.Config
	logger    *logharbour.Logger
	logFile   io.Closer
)

// errIssuesFound makes Execute exit with code 2.
var errIssuesFound = errors.New("audit found error-severity issues")

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "navaudit",
	Short: "navaudit - Read-only auditor for AMFI NAV files and transaction exports",
	Long: `navaudit scans AMFI NAV text files and transaction CSV exports and reports
structural problems without modifying the input.

Key Features:
  - Per-AMC tallies of NAV records for a target date
  - Duplicate detection on (scheme code, date) and configurable transaction keys
  - Column count, header, date and number checks with line numbers
  - Text, JSON, XML and XLSX reports
  - Concurrent batch audits with a summary log and Prometheus textfile metrics

Example Usage:
  navaudit nav                              # Audit amfi.txt for today
  navaudit nav --date 08-Jun-2025 amfi.txt  # Audit a specific day
  navaudit txn --format json transactions.csv
  navaudit batch ./exports                  # Audit every matching file
  navaudit validate-config                  # Check config.yaml`,

	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		appConfig = cfg

		logger, err = newLogger(cfg.Logging)
		return err
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			logFile.Close()
		}
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command and exits with the matching status code.
// This is called by main.main(). An interrupt cancels the running audits.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	if errors.Is(err, errIssuesFound) {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		config.DefaultConfigFile,
		"Path to the configuration file (built-in defaults when missing)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Log every issue at debug priority",
	)
}

// newLogger builds the run logger from the logging settings.
// Logs go to stderr unless a log file is configured.
func newLogger(cfg config.LoggingConfig) (*logharbour.Logger, error) {
	var w io.Writer = os.Stderr
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		w = f
	}

	priority := logPriority(cfg.Level)
	if verbose {
		priority = logharbour.Debug0
	}

	return logharbour.NewLogger(logharbour.NewLoggerContext(priority), "navaudit", w), nil
}

func logPriority(level string) logharbour.LogPriority {
	switch level {
	case "debug":
		return logharbour.Debug0
	case "warn":
		return logharbour.Warn
	case "error":
		return logharbour.Err
	default:
		return logharbour.Info
	}
}
