// =============================================================================
// navaudit - Audit Orchestration
// =============================================================================
//
// This module runs one audit over one file. It is the main orchestrator that
// ties the parser, the validators, the grouping index and the report builder
// together.
//
// PROCESSING FLOW:
//   1. Check the file exists (missing file: report with one issue, stop)
//   2. Sniff the content type (binary content is flagged, scan continues)
//   3. Stream the file line by line through the Record Parser
//   4. Route each line: labels update the scan state; records are counted,
//      validated and indexed
//   5. Emit duplicate groups and target summaries from the indexes
//   6. Build the immutable report
//
// A run is single-threaded and owns all of its state, so several runs can
// execute concurrently on one Auditor.
//
// =============================================================================

package auditor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/remiges-tech/logharbour/logharbour"

	"github.com/ginjaninja78/navaudit/internal/config"
	"github.com/ginjaninja78/navaudit/internal/csvparser"
	"github.com/ginjaninja78/navaudit/internal/report"
	"github.com/ginjaninja78/navaudit/internal/types"
	"github.com/ginjaninja78/navaudit/internal/validation"
	"github.com/ginjaninja78/navaudit/internal/xlsxparser"
	"github.com/ginjaninja78/navaudit/pkg/utils"
)

// ErrFileNotFound is wrapped into Result.Error when the input file is missing.
var ErrFileNotFound = errors.New("input file not found")

// cancelCheckInterval is how many lines are read between context checks.
const cancelCheckInterval = 1024

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Job names one file to audit.
type Job struct {
	Kind report.Kind
	Path string

	// Targets are the dates to summarize. NAV dates use dd-Mon-yyyy;
	// transaction dates use yyyy-mm-dd.
	Targets []string
}

// Result is the outcome of one run.
type Result struct {
	// RunID identifies the run in logs and output file names.
	RunID string

	FilePath string
	Kind     report.Kind

	// Report is set whenever the scan completed, including the missing-file
	// case.
	Report *report.Report

	// Error is set for a missing file (wrapping ErrFileNotFound) and for
	// unrecoverable I/O failures.
	Error error

	Stats ProcessingStats
}

// ProcessingStats contains run statistics.
type ProcessingStats struct {
	LinesRead      int
	ProcessingTime time.Duration
}

// =============================================================================
// AUDITOR
// =============================================================================

// Auditor holds the immutable per-kind settings shared by all runs.
type Auditor struct {
	nav    navSettings
	txn    txnSettings
	logger *logharbour.Logger
}

// New builds an Auditor from the configuration.
// A nil logger discards log output.
func New(cfg *config.Config, logger *logharbour.Logger) (*Auditor, error) {
	if logger == nil {
		logger = logharbour.NewLogger(logharbour.NewLoggerContext(logharbour.Info), "navaudit", io.Discard)
	}

	nav, err := newNAVSettings(cfg.NAV)
	if err != nil {
		return nil, fmt.Errorf("invalid NAV settings: %w", err)
	}

	schema, err := loadTransactionSchema(cfg.Transactions)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction schema: %w", err)
	}

	txn, err := newTxnSettings(cfg.Transactions, schema)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction settings: %w", err)
	}

	return &Auditor{
		nav:    nav,
		txn:    txn,
		logger: logger.WithModule("auditor"),
	}, nil
}

// loadTransactionSchema reads the XLSX template when one is configured.
func loadTransactionSchema(cfg config.TransactionsConfig) (types.Schema, error) {
	switch {
	case cfg.SchemaXLSX == "" && cfg.SchemaSheet != "":
		return types.Schema{}, fmt.Errorf("schema sheet '%s' set without a schema template", cfg.SchemaSheet)
	case cfg.SchemaXLSX == "":
		return DefaultTransactionSchema(), nil
	case cfg.SchemaSheet != "":
		return xlsxparser.ParseSheet(cfg.SchemaXLSX, cfg.SchemaSheet)
	default:
		return xlsxparser.Parse(cfg.SchemaXLSX)
	}
}

// TransactionSchema returns the schema transaction files are checked against.
func (a *Auditor) TransactionSchema() types.Schema {
	return a.txn.schema
}

// Run audits one file and wraps the outcome in a Result.
func (a *Auditor) Run(ctx context.Context, job Job) Result {
	start := time.Now()
	result := Result{
		RunID:    uuid.New().String(),
		FilePath: job.Path,
		Kind:     job.Kind,
	}

	a.logger.Info().LogActivity("Audit started", map[string]any{
		"run_id": result.RunID,
		"file":   job.Path,
		"kind":   string(job.Kind),
	})

	var (
		rep   *report.Report
		lines int
		err   error
	)
	switch job.Kind {
	case report.KindNAV:
		rep, lines, err = a.auditNAV(ctx, job.Path, job.Targets)
	case report.KindTransactions:
		rep, lines, err = a.auditTransactions(ctx, job.Path, job.Targets)
	default:
		err = fmt.Errorf("unknown audit kind %q", job.Kind)
	}

	result.Report = rep
	result.Stats.LinesRead = lines
	result.Stats.ProcessingTime = time.Since(start)

	if err != nil {
		result.Error = err
		a.logger.Error(err).LogActivity("Audit failed", map[string]any{
			"run_id": result.RunID,
			"file":   job.Path,
		})
		return result
	}

	if rep.IssueCount() == 1 && len(rep.IssuesOf(types.IssueMissingFile)) == 1 {
		result.Error = fmt.Errorf("%w: %s", ErrFileNotFound, job.Path)
		a.logger.Warn().LogActivity("Input file not found", map[string]any{
			"run_id": result.RunID,
			"file":   job.Path,
		})
		return result
	}

	for _, issue := range rep.AllIssues() {
		a.logger.Debug0().LogActivity("Issue", map[string]any{
			"run_id":   result.RunID,
			"kind":     string(issue.Kind),
			"severity": string(issue.Severity),
			"line":     issue.Line,
			"detail":   issue.Detail,
		})
	}

	a.logger.Info().LogActivity("Audit finished", map[string]any{
		"run_id":     result.RunID,
		"file":       job.Path,
		"records":    rep.TotalRecords,
		"duplicates": rep.DuplicateEntries,
		"issues":     rep.IssueCount(),
		"elapsed_ms": result.Stats.ProcessingTime.Milliseconds(),
	})

	return result
}

// AuditNAV audits an AMFI NAV file.
// targets are NAV dates in dd-Mon-yyyy form; each gets a target summary.
func (a *Auditor) AuditNAV(ctx context.Context, path string, targets []string) (*report.Report, error) {
	rep, _, err := a.auditNAV(ctx, path, targets)
	return rep, err
}

// AuditTransactions audits a transaction export.
// targets are transaction dates in yyyy-mm-dd form; each gets a target
// summary broken down by transaction type.
func (a *Auditor) AuditTransactions(ctx context.Context, path string, targets []string) (*report.Report, error) {
	rep, _, err := a.auditTransactions(ctx, path, targets)
	return rep, err
}

// =============================================================================
// SCAN STATE
// =============================================================================

// scan is the per-run state. The group and section labels are the cursor
// records inherit as they are read.
type scan struct {
	builder *report.Builder
	parser  *csvparser.Parser
	group   string
	section string
	lines   int
}

// add records an issue. The builder is open for the whole scan, so the
// ErrClosed case cannot occur here.
func (s *scan) add(issue types.Issue) {
	_ = s.builder.AddIssue(issue)
}

func (s *scan) addIf(issue types.Issue, ok bool) {
	if ok {
		s.add(issue)
	}
}

func (s *scan) record(fields []string, line int) types.Record {
	return types.Record{
		Line:      line,
		Fields:    fields,
		Delimiter: s.parser.Delimiter(),
		Group:     s.group,
		Section:   s.section,
	}
}

func (s *scan) malformed(result csvparser.LineResult) {
	_ = s.builder.CountRecord()
	issue := types.NewIssue(types.IssueMalformedLine, result.Line, fmt.Sprintf("line could not be parsed: %v", result.Err))
	issue.Value = result.Text
	s.add(issue)
}

// lineHandler receives every parsed line of a file.
type lineHandler func(s *scan, result csvparser.LineResult)

// scanFile opens path and feeds every line through handle.
// It reports false without an error when the file does not exist.
func scanFile(ctx context.Context, path string, s *scan, handle lineHandler) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("%s is a directory", path)
	}

	if info.Size() > 0 {
		mime, isText, err := utils.DetectContentType(path)
		if err != nil {
			return false, fmt.Errorf("failed to inspect %s: %w", path, err)
		}
		if !isText {
			issue := types.NewIssue(types.IssueUnexpectedContent, 0,
				fmt.Sprintf("content detected as %s, expected text", mime))
			issue.Value = mime
			s.add(issue)
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	scanner := csvparser.NewLineScanner(file)
	for scanner.Next() {
		if scanner.Line()%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return false, fmt.Errorf("audit of %s interrupted at line %d: %w", path, scanner.Line(), err)
			}
		}

		if scanner.Line() == 1 {
			s.addIf(validation.CheckBOM(scanner.BOM()))
		}

		s.lines = scanner.Line()
		handle(s, s.parser.Parse(scanner.Line(), scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return true, nil
}

// duplicateDetail describes a duplicate group for its issue.
func duplicateDetail(key []string, records []types.Record) string {
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = fmt.Sprintf("%d", r.Line)
	}
	return fmt.Sprintf("key (%s) appears %d times (lines %s)",
		strings.Join(key, ", "), len(records), strings.Join(lines, ", "))
}
