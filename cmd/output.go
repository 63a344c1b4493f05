// =============================================================================
// navaudit - Shared Output Handling
// =============================================================================
//
// This file holds the flags and helpers shared by the audit commands:
// choosing the report format, writing the report to stdout or a file,
// writing the optional issue log and exporting metrics.
//
// OUTPUT RULES:
//   - --output "-" or no --output writes to stdout
//   - xlsx never goes to stdout; without --output a file named after
//     output.file_name_format is created in output.dir
//   - the issue log is always written to output.dir
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/navaudit/internal/auditor"
	"github.com/ginjaninja78/navaudit/internal/metrics"
	"github.com/ginjaninja78/navaudit/internal/report"
	"github.com/ginjaninja78/navaudit/internal/validation"
	"github.com/ginjaninja78/navaudit/pkg/utils"
)

// outputFlags are registered on every audit command.
type outputFlags struct {
	format       string
	output       string
	metricsFile  string
	issueLog     bool
	failOnIssues bool
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "f", "", "Report format: text, json, xml or xlsx (default from config)")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Report file path, or - for stdout")
	cmd.Flags().StringVar(&o.metricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")
	cmd.Flags().BoolVar(&o.issueLog, "issue-log", false, "Also write the issues as a text log to the output directory")
	cmd.Flags().BoolVar(&o.failOnIssues, "fail-on-issues", false, "Exit with status 2 when error-severity issues are found")
}

// resolveFormat returns the --format flag, falling back to the config.
func (o *outputFlags) resolveFormat() (report.Format, error) {
	if o.format != "" {
		return report.ParseFormat(o.format)
	}
	return report.ParseFormat(appConfig.Output.Format)
}

// metricsPath returns where metrics go, or "" when they are disabled.
func (o *outputFlags) metricsPath() string {
	if o.metricsFile != "" {
		return o.metricsFile
	}
	if appConfig.Metrics.Enabled {
		return appConfig.Metrics.Textfile
	}
	return ""
}

// =============================================================================
// REPORT WRITING
// =============================================================================

// writeReports renders reports to stdout or to a file.
// It returns the path written, or "" for stdout.
func writeReports(cmd *cobra.Command, reports []*report.Report, name string, o *outputFlags) (string, error) {
	format, err := o.resolveFormat()
	if err != nil {
		return "", err
	}

	render := func(w io.Writer) error {
		if len(reports) == 1 {
			return report.Render(w, reports[0], format)
		}
		return report.RenderAll(w, reports, format)
	}

	path := o.output
	if (path == "" || path == "-") && format != report.FormatXLSX {
		return "", render(cmd.OutOrStdout())
	}

	var file *os.File
	if path == "" || path == "-" {
		fm := utils.NewFileManager("", appConfig.Output.Dir)
		fileName := utils.GenerateOutputFileName(appConfig.Output.FileNameFormat,
			map[string]string{"kind": name}, format.Extension())
		file, path, err = fm.CreateOutputFile(fileName)
	} else {
		if err = os.MkdirAll(filepath.Dir(path), 0755); err == nil {
			file, err = os.Create(path)
		}
	}
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	if err := render(file); err != nil {
		return "", err
	}
	return path, nil
}

// writeIssueLog writes one issue log per report to the output directory.
func writeIssueLog(reports []*report.Report, o *outputFlags) ([]string, error) {
	if !o.issueLog && !appConfig.Output.IssueLog {
		return nil, nil
	}

	fm := utils.NewFileManager("", appConfig.Output.Dir)
	if err := fm.EnsureOutputDir(); err != nil {
		return nil, err
	}

	var paths []string
	for _, rep := range reports {
		name := utils.GenerateOutputFileName("{kind}_issues_{timestamp}_{base}",
			map[string]string{"kind": string(rep.Kind), "base": filepath.Base(rep.Source)}, ".log")
		path := filepath.Join(fm.OutputDir, name)
		if err := validation.WriteIssueLog(rep.AllIssues(), path); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// =============================================================================
// SINGLE FILE AUDIT
// =============================================================================

// runSingle audits one file and writes everything the flags ask for.
func runSingle(cmd *cobra.Command, a *auditor.Auditor, job auditor.Job, o *outputFlags) error {
	if _, err := o.resolveFormat(); err != nil {
		return err
	}

	result := a.Run(cmd.Context(), job)

	if path := o.metricsPath(); path != "" {
		recorder := metrics.New(appConfig.Metrics.Namespace)
		observe(recorder, result)
		if err := recorder.WriteTextfile(path); err != nil {
			return err
		}
	}

	if result.Report == nil {
		return fmt.Errorf("audit of %s failed: %w", job.Path, result.Error)
	}

	reports := []*report.Report{result.Report}
	path, err := writeReports(cmd, reports, string(job.Kind), o)
	if err != nil {
		return err
	}
	if path != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", path)
	}

	if result.Error != nil {
		return result.Error
	}

	logs, err := writeIssueLog(reports, o)
	if err != nil {
		return err
	}
	for _, p := range logs {
		fmt.Fprintf(cmd.ErrOrStderr(), "Issue log written to %s\n", p)
	}

	return checkIssues(reports, o)
}

// observe records a run in the metrics. A missing file still has a report.
func observe(recorder *metrics.Recorder, result auditor.Result) {
	if result.Report == nil {
		recorder.ObserveFailure(result.Kind)
		return
	}
	recorder.Observe(result.Report, result.Stats.ProcessingTime)
}

// checkIssues turns error-severity issues into errIssuesFound when
// --fail-on-issues is set.
func checkIssues(reports []*report.Report, o *outputFlags) error {
	if !o.failOnIssues {
		return nil
	}
	for _, rep := range reports {
		if rep.HasErrors() {
			return errIssuesFound
		}
	}
	return nil
}

// auditorFor builds an Auditor from the loaded configuration.
func auditorFor() (*auditor.Auditor, error) {
	return auditor.New(appConfig, logger)
}

// parseDay accepts dates in the configured NAV layout, dd-Mon-yyyy or
// yyyy-mm-dd. An empty value is today.
func parseDay(value, navLayout string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}
	for _, layout := range []string{navLayout, auditor.NAVDateLayout, "2006-01-02"} {
		if layout == "" {
			continue
		}
		if day, err := time.Parse(layout, value); err == nil {
			return day, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date '%s' (want the %s layout or yyyy-mm-dd)", value, navLayout)
}
