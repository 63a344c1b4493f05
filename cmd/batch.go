// =============================================================================
// navaudit - Batch Command
// =============================================================================
//
// This file defines the 'batch' command, which audits every NAV file and
// transaction export found under a directory.
//
// COMMAND USAGE:
//   navaudit batch [dir] [flags]
//
// FLAGS:
//   --date              : Target NAV date (default today)
//   --with-previous-day : Also summarize the day before the target date
//   --txn-date          : Transaction date to summarize (repeatable)
//   --workers           : Concurrent audits (default batch.workers)
//   --dry-run           : List the files that would be audited and stop
//   --format, --output, --metrics-file, --issue-log, --fail-on-issues
//
// PROCESSING PIPELINE:
//   1. Discover files with the nav_patterns and transaction_patterns globs
//      (a file matching both is audited as NAV)
//   2. Audit the files on a fixed pool of workers
//   3. Sort the results by path
//   4. Write the reports: one combined file with --output, otherwise one
//      file per input in output.dir
//   5. Write the batch summary log and metrics
//
// One failing file never stops the others.
//
// =============================================================================

package cmd

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/navaudit/internal/auditor"
	"github.com/ginjaninja78/navaudit/internal/metrics"
	"github.com/ginjaninja78/navaudit/internal/report"
	"github.com/ginjaninja78/navaudit/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var batchFlags struct {
	date            string
	withPreviousDay bool
	txnDates        []string
	workers         int
	dryRun          bool
	output          outputFlags
}

// =============================================================================
// BATCH COMMAND DEFINITION
// =============================================================================

var batchCmd = &cobra.Command{
	Use:   "batch [dir]",
	Short: "Audit every NAV file and transaction export under a directory",
	Long: `The batch command discovers NAV files and transaction exports under a
directory (the working directory by default) and audits them concurrently.

Each file is audited independently. A file that cannot be read is listed in
the batch summary and the remaining files are still audited.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		return runBatch(cmd, dir)
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchFlags.date, "date", "", "Target NAV date (dd-Mon-yyyy or yyyy-mm-dd, default today)")
	batchCmd.Flags().BoolVar(&batchFlags.withPreviousDay, "with-previous-day", false, "Also summarize the previous NAV day")
	batchCmd.Flags().StringSliceVar(&batchFlags.txnDates, "txn-date", nil, "Transaction date to summarize (yyyy-mm-dd, repeatable)")
	batchCmd.Flags().IntVar(&batchFlags.workers, "workers", 0, "Number of concurrent audits (default from config)")
	batchCmd.Flags().BoolVar(&batchFlags.dryRun, "dry-run", false, "List the files that would be audited without auditing them")
	batchFlags.output.register(batchCmd)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runBatch(cmd *cobra.Command, dir string) error {
	startTime := time.Now()
	out := cmd.OutOrStdout()

	a, err := auditorFor()
	if err != nil {
		return err
	}

	day, err := parseDay(batchFlags.date, a.NAVDateLayout())
	if err != nil {
		return err
	}
	navTargets := a.NAVTargetDates(day, batchFlags.withPreviousDay || appConfig.NAV.WithPreviousDay)

	// =========================================================================
	// STEP 1: DISCOVER INPUT FILES
	// =========================================================================

	jobs, err := discoverJobs(dir, navTargets, batchFlags.txnDates)
	if err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Fprintf(out, "No NAV or transaction files found under %s.\n", dir)
		return nil
	}

	fmt.Fprintf(out, "Found %d file(s) to audit\n", len(jobs))

	if batchFlags.dryRun {
		for _, job := range jobs {
			fmt.Fprintf(out, "  %s (%s)\n", job.Path, job.Kind)
		}
		return nil
	}

	// =========================================================================
	// STEP 2: AUDIT FILES CONCURRENTLY
	// =========================================================================

	workers := batchFlags.workers
	if workers <= 0 {
		workers = appConfig.Batch.Workers
	}

	results := auditAll(cmd, a, jobs, workers)

	// =========================================================================
	// STEP 3: COLLECT RESULTS
	// =========================================================================

	summary := utils.BatchSummary{
		RunID:      uuid.New().String(),
		StartTime:  startTime,
		TotalFiles: len(jobs),
	}

	var recorder *metrics.Recorder
	if batchFlags.output.metricsPath() != "" {
		recorder = metrics.New(appConfig.Metrics.Namespace)
	}

	var reports []*report.Report
	for _, result := range results {
		if recorder != nil {
			observe(recorder, result)
		}

		if result.Report == nil {
			summary.FailedFileList = append(summary.FailedFileList, utils.FailedFileInfo{
				InputFile:    result.FilePath,
				ErrorMessage: result.Error.Error(),
			})
			fmt.Fprintf(out, "  ✗ %s: %v\n", filepath.Base(result.FilePath), result.Error)
			continue
		}

		rep := result.Report
		reports = append(reports, rep)
		summary.AuditedFiles = append(summary.AuditedFiles, utils.AuditedFileInfo{
			InputFile:        result.FilePath,
			Kind:             string(result.Kind),
			Records:          rep.TotalRecords,
			DuplicateEntries: rep.DuplicateEntries,
			Issues:           rep.IssueCount(),
			Errors:           rep.ErrorCount(),
			ProcessTime:      result.Stats.ProcessingTime,
		})
		fmt.Fprintf(out, "  ✓ %s: %d record(s), %d issue(s)\n",
			filepath.Base(result.FilePath), rep.TotalRecords, rep.IssueCount())
	}

	// =========================================================================
	// STEP 4: WRITE REPORTS, SUMMARY AND METRICS
	// =========================================================================

	if err := writeBatchReports(cmd, reports); err != nil {
		return err
	}

	if _, err := writeIssueLog(reports, &batchFlags.output); err != nil {
		return err
	}

	summary.EndTime = time.Now()
	fm := utils.NewFileManager(dir, appConfig.Output.Dir)
	summaryPath, err := fm.WriteSummaryLog(summary)
	if err != nil {
		return err
	}

	if recorder != nil {
		if err := recorder.WriteTextfile(batchFlags.output.metricsPath()); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, "\n=== Batch Complete ===")
	fmt.Fprintf(out, "Total files:     %d\n", summary.TotalFiles)
	fmt.Fprintf(out, "Audited:         %d\n", len(summary.AuditedFiles))
	fmt.Fprintf(out, "Failed:          %d\n", len(summary.FailedFileList))
	fmt.Fprintf(out, "Time elapsed:    %s\n", summary.EndTime.Sub(startTime))
	fmt.Fprintf(out, "Summary log:     %s\n", summaryPath)

	return checkIssues(reports, &batchFlags.output)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// discoverJobs finds the files to audit under dir.
//
// PARAMETERS:
//   - dir: The directory to search.
//   - navTargets: NAV dates summarized for every NAV file.
//   - txnTargets: transaction dates summarized for every transaction export.
//
// RETURNS:
//   - One job per file, sorted by path. A file matching both pattern sets
//     is audited as NAV only.
//   - An error if a pattern is invalid.
func discoverJobs(dir string, navTargets, txnTargets []string) ([]auditor.Job, error) {
	fm := utils.NewFileManager(dir, appConfig.Output.Dir)

	navFiles, err := fm.DiscoverFiles(appConfig.Batch.NAVPatterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to discover NAV files: %w", err)
	}
	txnFiles, err := fm.DiscoverFiles(appConfig.Batch.TransactionPatterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to discover transaction files: %w", err)
	}

	jobs := make([]auditor.Job, 0, len(navFiles)+len(txnFiles))
	for _, path := range navFiles {
		jobs = append(jobs, auditor.Job{Kind: report.KindNAV, Path: path, Targets: navTargets})
	}
	for _, path := range txnFiles {
		if slices.Contains(navFiles, path) {
			continue
		}
		jobs = append(jobs, auditor.Job{Kind: report.KindTransactions, Path: path, Targets: txnTargets})
	}

	slices.SortFunc(jobs, func(a, b auditor.Job) int {
		return strings.Compare(a.Path, b.Path)
	})
	return jobs, nil
}

// auditAll runs jobs on a fixed pool of workers and returns the results in
// job order.
func auditAll(cmd *cobra.Command, a *auditor.Auditor, jobs []auditor.Job, workers int) []auditor.Result {
	results := make([]auditor.Result, len(jobs))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for range min(workers, len(jobs)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = a.Run(cmd.Context(), jobs[i])
			}
		}()
	}

	for i := range jobs {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return results
}

// writeBatchReports writes one combined report with --output, otherwise one
// report file per input in the output directory.
func writeBatchReports(cmd *cobra.Command, reports []*report.Report) error {
	o := &batchFlags.output
	if len(reports) == 0 {
		return nil
	}

	if o.output != "" {
		path, err := writeReports(cmd, reports, "batch", o)
		if err != nil {
			return err
		}
		if path != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", path)
		}
		return nil
	}

	format, err := o.resolveFormat()
	if err != nil {
		return err
	}

	fm := utils.NewFileManager("", appConfig.Output.Dir)
	for _, rep := range reports {
		name := utils.GenerateOutputFileName(appConfig.Output.FileNameFormat,
			map[string]string{"kind": string(rep.Kind)}, format.Extension())

		file, _, err := fm.CreateOutputFile(name)
		if err != nil {
			return err
		}
		err = report.Render(file, rep, format)
		file.Close()
		if err != nil {
			return fmt.Errorf("failed to write report for %s: %w", rep.Source, err)
		}
	}
	return nil
}
