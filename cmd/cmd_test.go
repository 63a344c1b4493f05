package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/remiges-tech/logharbour/logharbour"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/navaudit/internal/auditor"
	"github.com/ginjaninja78/navaudit/internal/config"
	"github.com/ginjaninja78/navaudit/internal/report"
	"github.com/ginjaninja78/navaudit/internal/types"
	"github.com/ginjaninja78/navaudit/internal/xlsxparser"
)

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	t.Cleanup(func() { rootCmd.SetOut(nil) })

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// transactionCSV returns a header plus rows that each pass every field check.
func transactionCSV(clientIDs ...string) string {
	lines := []string{strings.Join(auditor.TransactionColumns, ",")}
	for _, id := range clientIDs {
		lines = append(lines, id+",SIP,1000,2025-01-15,completed,Growth Fund,,,monthly,2025-01-01,"+
			"2025-12-01,2025-02-15,1,12,true,101,equity,10.5,95.2,online,ok")
	}
	return strings.Join(lines, "\n") + "\n"
}

func TestParseDay(t *testing.T) {
	day, err := parseDay("08-Jun-2025", "02-Jan-2006")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC), day)

	day, err = parseDay("2025-06-08", "02-Jan-2006")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC), day)

	day, err = parseDay("08/06/2025", "02/01/2006")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC), day)

	_, err = parseDay("8/6/2025", "02-Jan-2006")
	assert.Error(t, err)

	today, err := parseDay("", "02-Jan-2006")
	require.NoError(t, err)
	assert.Equal(t, time.Now().Format("2006-01-02"), today.Format("2006-01-02"))
}

func TestLogPriority(t *testing.T) {
	assert.Equal(t, logharbour.Debug0, logPriority("debug"))
	assert.Equal(t, logharbour.Info, logPriority("info"))
	assert.Equal(t, logharbour.Warn, logPriority("warn"))
	assert.Equal(t, logharbour.Err, logPriority("error"))
}

func TestDiscoverJobs(t *testing.T) {
	appConfig = config.Default()

	dir := t.TempDir()
	for _, name := range []string{"amfi.txt", "2025/nav_0608.txt", "2025/transactions.csv", "notes.md"} {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x\n"), 0644))
	}

	jobs, err := discoverJobs(dir, []string{"08-Jun-2025"}, []string{"2025-06-08"})
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	assert.Equal(t, filepath.Join(dir, "2025", "nav_0608.txt"), jobs[0].Path)
	assert.Equal(t, report.KindNAV, jobs[0].Kind)
	assert.Equal(t, filepath.Join(dir, "2025", "transactions.csv"), jobs[1].Path)
	assert.Equal(t, report.KindTransactions, jobs[1].Kind)
	assert.Equal(t, []string{"2025-06-08"}, jobs[1].Targets)
	assert.Equal(t, filepath.Join(dir, "amfi.txt"), jobs[2].Path)
}

func TestDiscoverJobsSkipsOutputDir(t *testing.T) {
	dir := t.TempDir()
	appConfig = config.Default()
	appConfig.Output.Dir = filepath.Join(dir, "reports")

	for _, name := range []string{"amfi.txt", "reports/nav_20250608_101500_1a2b3c4d.txt"} {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x\n"), 0644))
	}

	jobs, err := discoverJobs(dir, nil, nil)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, filepath.Join(dir, "amfi.txt"), jobs[0].Path)
}

func TestCheckIssues(t *testing.T) {
	clean := &report.Report{}
	dirty := report.MissingFile("amfi.txt", report.KindNAV)

	assert.NoError(t, checkIssues([]*report.Report{dirty}, &outputFlags{}))
	assert.NoError(t, checkIssues([]*report.Report{clean}, &outputFlags{failOnIssues: true}))
	assert.ErrorIs(t, checkIssues([]*report.Report{clean, dirty}, &outputFlags{failOnIssues: true}), errIssuesFound)
}

func TestNavCommandWritesReport(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "amfi.txt")
	require.NoError(t, os.WriteFile(input, []byte(
		"ABC Mutual Fund\n"+
			"101;X;Y;SchemeOne;12.34;08-Jun-2025\n"+
			"101;X;Y;SchemeOne;12.34;08-Jun-2025\n"), 0644))

	output := filepath.Join(dir, "out", "nav.json")
	metricsFile := filepath.Join(dir, "navaudit.prom")

	rootCmd.SetArgs([]string{
		"--config", filepath.Join(dir, "missing.yaml"),
		"nav", "--date", "08-Jun-2025",
		"--format", "json", "--output", output,
		"--metrics-file", metricsFile,
		input,
	})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	var rep report.Report
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, 2, rep.TotalRecords)
	assert.Equal(t, 1, rep.DuplicateEntries)
	require.Len(t, rep.Issues, 1)
	assert.Equal(t, types.IssueDuplicateKey, rep.Issues[0].Kind)

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "navaudit_records_scanned")
}

func TestTxnCommandWritesReport(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "transactions.csv")
	writeFile(t, input, transactionCSV("C1", "C1", "C2"))
	output := filepath.Join(dir, "txn.json")

	_, err := execute(t,
		"--config", filepath.Join(dir, "missing.yaml"),
		"txn", "--date", "2025-01-15",
		"--format", "json", "--output", output,
		"--fail-on-issues",
		input,
	)
	require.ErrorIs(t, err, errIssuesFound)

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	var rep report.Report
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, report.KindTransactions, rep.Kind)
	assert.Equal(t, 3, rep.TotalRecords)
	assert.Equal(t, 1, rep.DuplicateEntries)
	require.Len(t, rep.Targets, 1)
	assert.Equal(t, "2025-01-15", rep.Targets[0].Target)
	assert.Equal(t, 3, rep.Targets[0].Matches)
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	reports := filepath.Join(dir, "reports")

	writeFile(t, filepath.Join(dir, "amfi.txt"),
		"ABC Mutual Fund\n"+
			"101;X;Y;SchemeOne;12.34;08-Jun-2025\n"+
			"101;X;Y;SchemeOne;12.34;08-Jun-2025\n"+
			"102;X;Y;SchemeTwo;45.60;07-Jun-2025\n")
	writeFile(t, filepath.Join(dir, "exports", "transactions.csv"), transactionCSV("C1", "C2"))
	writeFile(t, filepath.Join(dir, "notes.md"), "not audited\n")

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, cfgPath, fmt.Sprintf("output:\n  dir: %q\n  format: text\n", reports))

	args := []string{
		"--config", cfgPath,
		"batch", dir,
		"--date", "08-Jun-2025", "--with-previous-day",
		"--workers", "2",
	}

	out, err := execute(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Found 2 file(s) to audit")
	assert.Contains(t, out, "✓ amfi.txt: 3 record(s)")
	assert.Contains(t, out, "✓ transactions.csv: 2 record(s)")
	assert.Contains(t, out, "Audited:         2")
	assert.Contains(t, out, "Failed:          0")

	navReports, err := filepath.Glob(filepath.Join(reports, "nav_*.txt"))
	require.NoError(t, err)
	require.Len(t, navReports, 1)
	txnReports, err := filepath.Glob(filepath.Join(reports, "transactions_*.txt"))
	require.NoError(t, err)
	require.Len(t, txnReports, 1)

	summaries, err := filepath.Glob(filepath.Join(reports, "batch_summary_*.txt"))
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	summary, err := os.ReadFile(summaries[0])
	require.NoError(t, err)
	assert.Contains(t, string(summary), filepath.Join(dir, "amfi.txt")+" (nav)")
	assert.Contains(t, string(summary), "Total Files:    2")

	// A second run finds the same inputs and none of the reports just written.
	out, err = execute(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Found 2 file(s) to audit")
	assert.NotContains(t, out, "nav_")
}

func TestBatchCommandDryRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "amfi.txt"), "101;X;Y;SchemeOne;12.34;08-Jun-2025\n")

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, cfgPath, fmt.Sprintf("output:\n  dir: %q\n", filepath.Join(dir, "reports")))

	out, err := execute(t, "--config", cfgPath, "batch", dir, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, "amfi.txt")+" (nav)")
	assert.NoDirExists(t, filepath.Join(dir, "reports"))

	batchFlags.dryRun = false
}

func TestValidateConfigCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, "transactions:\n  year_prefixes: [\"2026-\"]\n")

	out, err := execute(t, "--config", cfgPath, "validate-config")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration: "+cfgPath)
	assert.Contains(t, out, "Accepted year prefixes: 2026-")
	assert.Contains(t, out, "Configuration is valid.")

	writeFile(t, cfgPath, "transactions:\n  duplicate_key: [nosuchcolumn]\n")
	_, err = execute(t, "--config", cfgPath, "validate-config")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nosuchcolumn")
}

func TestSchemaTemplateCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "columns.xlsx")

	out, err := execute(t, "--config", filepath.Join(dir, "missing.yaml"), "schema-template", path)
	require.NoError(t, err)
	assert.Contains(t, out, fmt.Sprintf("%d column(s) written to %s", len(auditor.TransactionColumns), path))

	schema, err := xlsxparser.Parse(path)
	require.NoError(t, err)
	assert.Equal(t, auditor.TransactionColumns, schema.Names)
	assert.Equal(t, len(auditor.TransactionColumns), schema.FieldCount)
	assert.Equal(t, types.KindDecimal, schema.Roles[auditor.TxnAmount].Kind)
	assert.True(t, schema.Roles[auditor.TxnAmount].Required)
}
