// =============================================================================
// navaudit - Transactions Command
// =============================================================================
//
// COMMAND USAGE:
//   navaudit txn [file] [flags]
//
// FLAGS:
//   --date         : Transaction date to summarize by type, yyyy-mm-dd (repeatable)
//   --accept-year  : Accepted transaction year, e.g. 2026 (repeatable, replaces config)
//   --schema-xlsx  : XLSX template describing the columns
//   --schema-sheet : Sheet of the template to read (default the first sheet)
//   --format, --output, --metrics-file, --issue-log, --fail-on-issues
//
// =============================================================================

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/navaudit/internal/auditor"
	"github.com/ginjaninja78/navaudit/internal/report"
	"github.com/ginjaninja78/navaudit/pkg/utils"
)

var txnFlags struct {
	dates       []string
	acceptYears []string
	schemaXLSX  string
	schemaSheet string
	output      outputFlags
}

var txnCmd = &cobra.Command{
	Use:     "txn [file]",
	Aliases: []string{"transactions"},
	Short:   "Audit a transaction CSV export",
	Long: `Audit a transaction CSV export.

The header is compared with the expected column names, every row is checked
for its column count, required fields, numbers and dates, and rows sharing the
duplicate key are reported together.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, d := range txnFlags.dates {
			if _, err := time.Parse("2006-01-02", d); err != nil {
				return fmt.Errorf("invalid date '%s' (want yyyy-mm-dd)", d)
			}
		}

		cfg := *appConfig
		if len(txnFlags.acceptYears) > 0 {
			cfg.Transactions.YearPrefixes = txnFlags.acceptYears
		}
		if txnFlags.schemaXLSX != "" {
			cfg.Transactions.SchemaXLSX = txnFlags.schemaXLSX
		}
		if txnFlags.schemaSheet != "" {
			cfg.Transactions.SchemaSheet = txnFlags.schemaSheet
		}

		path := cfg.Transactions.File
		if len(args) == 1 {
			path = args[0]
		}

		a, err := auditor.New(&cfg, logger)
		if err != nil {
			return err
		}

		return runSingle(cmd, a, auditor.Job{
			Kind:    report.KindTransactions,
			Path:    utils.ResolveNextToExecutable(path),
			Targets: txnFlags.dates,
		}, &txnFlags.output)
	},
}

func init() {
	rootCmd.AddCommand(txnCmd)

	txnCmd.Flags().StringSliceVar(&txnFlags.dates, "date", nil, "Transaction date to summarize (yyyy-mm-dd, repeatable)")
	txnCmd.Flags().StringSliceVar(&txnFlags.acceptYears, "accept-year", nil, "Accepted transaction year (repeatable)")
	txnCmd.Flags().StringVar(&txnFlags.schemaXLSX, "schema-xlsx", "", "XLSX template describing the transaction columns")
	txnCmd.Flags().StringVar(&txnFlags.schemaSheet, "schema-sheet", "", "Sheet of the schema template to read")
	txnFlags.output.register(txnCmd)
}
