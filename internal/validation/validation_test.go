package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/navaudit/internal/types"
)

func record(line int, fields ...string) types.Record {
	return types.Record{Line: line, Fields: fields, Delimiter: ','}
}

func TestCheckColumnCount(t *testing.T) {
	exact := types.Schema{FieldCount: 3}
	atLeast := types.Schema{FieldCount: 3, AllowExtraFields: true}

	_, bad := CheckColumnCount(record(1, "a", "b", "c"), exact)
	assert.False(t, bad)

	issue, bad := CheckColumnCount(record(2, "a", "b"), exact)
	require.True(t, bad)
	assert.Equal(t, types.IssueColumnCountMismatch, issue.Kind)
	assert.Equal(t, types.SeverityError, issue.Severity)
	assert.Equal(t, 2, issue.Line)
	assert.Equal(t, "a,b", issue.Value)
	assert.Contains(t, issue.Detail, "expected 3 fields, found 2")

	_, bad = CheckColumnCount(record(3, "a", "b", "c", "d"), exact)
	assert.True(t, bad)

	_, bad = CheckColumnCount(record(4, "a", "b", "c", "d"), atLeast)
	assert.False(t, bad)

	issue, bad = CheckColumnCount(record(5, "a"), atLeast)
	require.True(t, bad)
	assert.Contains(t, issue.Detail, "at least 3")
}

func TestCheckHeader(t *testing.T) {
	schema := types.Schema{FieldCount: 3, Names: []string{"clientId", "type", "amount"}}

	_, bad := CheckHeader(1, []string{"clientId", "type", "amount"}, schema)
	assert.False(t, bad)

	issue, bad := CheckHeader(1, []string{"clientId", "amount", "type"}, schema)
	require.True(t, bad)
	assert.Equal(t, types.IssueHeaderMismatch, issue.Kind)
	assert.Equal(t, types.SeverityWarning, issue.Severity)
	assert.Contains(t, issue.Detail, "column 2 is 'amount', expected 'type'")

	issue, bad = CheckHeader(1, []string{"clientId", "type"}, schema)
	require.True(t, bad)
	assert.Contains(t, issue.Detail, "missing column 3 'amount'")

	_, bad = CheckHeader(1, []string{"anything"}, types.Schema{FieldCount: 1})
	assert.False(t, bad)
}

func TestCheckBOMAndTrailingDelimiter(t *testing.T) {
	_, bad := CheckBOM("")
	assert.False(t, bad)

	issue, bad := CheckBOM("UTF-8")
	require.True(t, bad)
	assert.Equal(t, types.IssueBOMPresent, issue.Kind)
	assert.Equal(t, "file starts with a UTF-8 byte-order marker", issue.Detail)

	issue, bad = CheckBOM("UTF-16LE")
	require.True(t, bad)
	assert.Equal(t, 1, issue.Line)
	assert.Contains(t, issue.Detail, "UTF-16LE byte-order marker")
	assert.Contains(t, issue.Detail, "converted to UTF-8")

	_, bad = CheckTrailingDelimiter(2, "a,b,c", ',')
	assert.False(t, bad)

	issue, bad = CheckTrailingDelimiter(2, "a,b,c, ", ',')
	require.True(t, bad)
	assert.Equal(t, types.IssueTrailingDelimiter, issue.Kind)
	assert.Equal(t, 2, issue.Line)
}

func txnChecker(prefixes ...string) *FieldChecker {
	roles := []types.FieldRole{
		{Index: 0, Name: "clientId", Required: true, Kind: types.KindText},
		{Index: 2, Name: "amount", Required: true, Kind: types.KindDecimal},
		{Index: 3, Name: "transactionDate", Kind: types.KindDatePrefix},
		{Index: 9, Name: "startDate", Kind: types.KindDatePrefix},
	}
	return NewFieldChecker(roles, FieldOptions{YearPrefixes: prefixes})
}

func TestFieldCheckerDatePrefix(t *testing.T) {
	c := txnChecker()

	rec := record(5, "C1", "SIP", "100", "2022-12-31T10:00:00", "", "", "", "", "", "")
	issues := c.Check(rec)
	require.Len(t, issues, 1)
	assert.Equal(t, types.IssueInvalidDateFormat, issues[0].Kind)
	assert.Equal(t, "transactionDate", issues[0].Field)
	assert.Equal(t, "2022-12-31T10:00:00", issues[0].Value)
	assert.Equal(t, 5, issues[0].Line)

	rec = record(6, "C1", "SIP", "100", "2024-01-01", "", "", "", "", "", "2025-02-01")
	assert.Empty(t, c.Check(rec))
}

func TestFieldCheckerEmptyDateIsNotFlagged(t *testing.T) {
	c := txnChecker()
	rec := record(7, "C1", "SIP", "100", "", "", "", "", "", "", "")
	assert.Empty(t, c.Check(rec))
}

func TestFieldCheckerCustomPrefixes(t *testing.T) {
	c := txnChecker(YearPrefixes([]string{"2026"})...)
	rec := record(8, "C1", "SIP", "100", "2025-06-01")
	issues := c.Check(rec)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Detail, "2026-")
}

func TestFieldCheckerRequiredAndDecimal(t *testing.T) {
	c := txnChecker()

	issues := c.Check(record(9, "", "SIP", "abc", "2024-01-01"))
	require.Len(t, issues, 2)
	assert.Equal(t, types.IssueMissingRequiredField, issues[0].Kind)
	assert.Equal(t, "clientId", issues[0].Field)
	assert.Equal(t, types.IssueInvalidNumber, issues[1].Kind)
	assert.Equal(t, "abc", issues[1].Value)
}

func TestFieldCheckerSkipsMissingPositions(t *testing.T) {
	c := txnChecker()
	assert.Empty(t, c.Check(record(10, "C1")))
}

func TestFieldCheckerNavDateAndPlaceholder(t *testing.T) {
	roles := []types.FieldRole{
		{Index: 0, Name: "Scheme Code", Required: true},
		{Index: 4, Name: "Net Asset Value", Kind: types.KindDecimal},
		{Index: 5, Name: "Date", Kind: types.KindDateLayout},
	}
	c := NewFieldChecker(roles, FieldOptions{Placeholders: []string{"N.A."}})

	ok := types.Record{Line: 1, Fields: []string{"100", "", "", "Fund", "N.A.", "15-Jan-2025"}}
	assert.Empty(t, c.Check(ok))

	bad := types.Record{Line: 2, Fields: []string{"100", "", "", "Fund", "12.5", "2025-01-15"}}
	issues := c.Check(bad)
	require.Len(t, issues, 1)
	assert.Equal(t, types.IssueInvalidDateFormat, issues[0].Kind)
	assert.Equal(t, "Date", issues[0].Field)
}

func TestYearPrefixes(t *testing.T) {
	assert.Equal(t, []string{"2024-", "2025-"}, YearPrefixes([]string{"2024", " 2025- ", ""}))
}

func TestFormatIssuesAndWriteIssueLog(t *testing.T) {
	assert.Equal(t, "No validation issues.", FormatIssues(nil))

	issues := []types.Issue{types.NewIssue(types.IssueBOMPresent, 1, "bom")}
	formatted := FormatIssues(issues)
	assert.Contains(t, formatted, "1 issue(s)")
	assert.Contains(t, formatted, "[WARNING] BOMPresent line 1: bom")

	path := filepath.Join(t.TempDir(), "issues.log")
	require.NoError(t, WriteIssueLog(issues, path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, formatted, string(content))
}
