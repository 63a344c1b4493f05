// =============================================================================
// navaudit - NAV Command
// =============================================================================
//
// COMMAND USAGE:
//   navaudit nav [file] [flags]
//
// FLAGS:
//   --date              : Target NAV date, dd-Mon-yyyy or yyyy-mm-dd (default today)
//   --with-previous-day : Also summarize the day before the target date
//   --format, --output, --metrics-file, --issue-log, --fail-on-issues
//
// The file defaults to nav.file from the configuration, resolved next to the
// executable when it is not found in the working directory.
//
// =============================================================================

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/navaudit/internal/auditor"
	"github.com/ginjaninja78/navaudit/internal/report"
	"github.com/ginjaninja78/navaudit/pkg/utils"
)

var navFlags struct {
	date            string
	withPreviousDay bool
	output          outputFlags
}

var navCmd = &cobra.Command{
	Use:   "nav [file]",
	Short: "Audit an AMFI NAV file",
	Long: `Audit an AMFI NAV text file.

The audit counts the NAV records for the target date per AMC, finds records
repeating the same (scheme code, date) pair and reports malformed lines,
short lines, bad NAV values and bad dates with their line numbers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := auditorFor()
		if err != nil {
			return err
		}

		day, err := parseDay(navFlags.date, a.NAVDateLayout())
		if err != nil {
			return err
		}

		path := appConfig.NAV.File
		if len(args) == 1 {
			path = args[0]
		}

		withPrevious := navFlags.withPreviousDay || appConfig.NAV.WithPreviousDay

		return runSingle(cmd, a, auditor.Job{
			Kind:    report.KindNAV,
			Path:    utils.ResolveNextToExecutable(path),
			Targets: a.NAVTargetDates(day, withPrevious),
		}, &navFlags.output)
	},
}

func init() {
	rootCmd.AddCommand(navCmd)

	navCmd.Flags().StringVar(&navFlags.date, "date", "", "Target NAV date (dd-Mon-yyyy or yyyy-mm-dd, default today)")
	navCmd.Flags().BoolVar(&navFlags.withPreviousDay, "with-previous-day", false, "Also summarize the previous day")
	navFlags.output.register(navCmd)
}
