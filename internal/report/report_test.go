package report

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/navaudit/internal/types"
)

func sampleReport(t *testing.T) *Report {
	t.Helper()

	b := NewBuilder("amfi.txt", KindNAV)
	for i := 0; i < 4; i++ {
		require.NoError(t, b.CountRecord())
	}

	require.NoError(t, b.AddIssue(types.NewIssue(types.IssueInvalidDateFormat, 9, "bad date")))
	require.NoError(t, b.AddIssue(types.NewIssue(types.IssueBOMPresent, 1, "bom")))
	require.NoError(t, b.AddIssue(types.NewIssue(types.IssueDuplicateKey, 3, "dup <&>")))

	require.NoError(t, b.AddDuplicate([]string{"200", "15-Jan-2025"}, []types.Record{
		{Line: 5, Fields: []string{"200"}, Group: "AMC Two Mutual Fund"},
		{Line: 8, Fields: []string{"200"}, Group: "AMC Two Mutual Fund"},
	}))
	require.NoError(t, b.AddDuplicate([]string{"100", "15-Jan-2025"}, []types.Record{
		{Line: 3, Fields: []string{"100", "12.5"}, Group: "AMC One Mutual Fund"},
		{Line: 4, Fields: []string{"100", "12.7"}, Group: "AMC One Mutual Fund"},
		{Line: 6, Fields: []string{"100", "12.5"}, Group: "AMC One Mutual Fund"},
	}))

	require.NoError(t, b.AddTarget(TargetSummary{
		Target:  "15-Jan-2025",
		Matches: 3,
		Groups:  []GroupTally{{"AMC One Mutual Fund", 2}, {"AMC Two Mutual Fund", 1}},
	}))
	require.NoError(t, b.SetUniques(3, 3))

	r, err := b.Build()
	require.NoError(t, err)
	return r
}

func TestBuilderBuild(t *testing.T) {
	r := sampleReport(t)

	assert.Equal(t, 4, r.TotalRecords)
	assert.Equal(t, 3, r.UniqueKeys)
	assert.Equal(t, 3, r.DuplicateEntries)

	require.Len(t, r.Duplicates, 2)
	assert.Equal(t, []string{"100", "15-Jan-2025"}, r.Duplicates[0].Key)
	assert.Equal(t, 3, r.Duplicates[0].Count)
	assert.Equal(t, 4, r.Duplicates[0].Members[1].Line)
	assert.Equal(t, "12.7", r.Duplicates[0].Members[1].Fields[1])

	var kinds []types.IssueKind
	for _, g := range r.Issues {
		kinds = append(kinds, g.Kind)
	}
	assert.Equal(t, []types.IssueKind{types.IssueBOMPresent, types.IssueInvalidDateFormat, types.IssueDuplicateKey}, kinds)
	assert.Equal(t, 3, r.IssueCount())
	assert.Equal(t, 1, r.ErrorCount())
	assert.True(t, r.HasErrors())
	assert.Len(t, r.IssuesOf(types.IssueBOMPresent), 1)
	assert.Nil(t, r.IssuesOf(types.IssueMissingFile))
}

func TestBuilderClosedAfterBuild(t *testing.T) {
	b := NewBuilder("x.csv", KindTransactions)
	_, err := b.Build()
	require.NoError(t, err)

	assert.ErrorIs(t, b.CountRecord(), ErrClosed)
	assert.ErrorIs(t, b.AddIssue(types.NewIssue(types.IssueBOMPresent, 1, "x")), ErrClosed)
	assert.ErrorIs(t, b.AddTarget(TargetSummary{}), ErrClosed)
	assert.ErrorIs(t, b.AddDuplicate(nil, nil), ErrClosed)
	assert.ErrorIs(t, b.SetUniques(1, 1), ErrClosed)

	_, err = b.Build()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEmptyReport(t *testing.T) {
	r, err := NewBuilder("x.csv", KindTransactions).Build()
	require.NoError(t, err)
	assert.NotNil(t, r.Duplicates)
	assert.NotNil(t, r.Issues)
	assert.False(t, r.HasErrors())
}

func TestMissingFileReport(t *testing.T) {
	r := MissingFile("nope.txt", KindNAV)

	assert.Equal(t, 0, r.TotalRecords)
	assert.Empty(t, r.Duplicates)
	require.Len(t, r.AllIssues(), 1)
	assert.Equal(t, types.IssueMissingFile, r.AllIssues()[0].Kind)
	assert.Equal(t, types.SeverityError, r.AllIssues()[0].Severity)
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"text", "JSON", " xml ", "xlsx"} {
		_, err := ParseFormat(name)
		assert.NoError(t, err, name)
	}
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = ParseFormat("yaml")
	assert.Error(t, err)

	assert.Equal(t, ".txt", FormatText.Extension())
	assert.Equal(t, ".json", FormatJSON.Extension())
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleReport(t)))

	out := buf.String()
	assert.Contains(t, out, "NAV audit: amfi.txt")
	assert.Contains(t, out, "Total records scanned: 4")
	assert.Contains(t, out, "Duplicate entries: 3")
	assert.Contains(t, out, "Target 15-Jan-2025")
	assert.Contains(t, out, "3 record(s) across 2 group(s)")
	assert.Contains(t, out, "(100, 15-Jan-2025) x3")
	assert.Contains(t, out, "line 4 [AMC One Mutual Fund]")
	assert.Contains(t, out, "BOMPresent (1)")
}

func TestWriteTextClean(t *testing.T) {
	r, err := NewBuilder("clean.csv", KindTransactions).Build()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, r))
	assert.Contains(t, buf.String(), "No duplicates found.")
	assert.Contains(t, buf.String(), "No issues found.")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(t), FormatJSON))

	var decoded Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "amfi.txt", decoded.Source)
	assert.Equal(t, 4, decoded.TotalRecords)
	require.Len(t, decoded.Duplicates, 2)
	assert.Equal(t, 3, decoded.IssueCount())
}

func TestRenderIsDeterministic(t *testing.T) {
	r := sampleReport(t)
	for _, format := range []Format{FormatText, FormatJSON, FormatXML} {
		var a, b bytes.Buffer
		require.NoError(t, Render(&a, r, format))
		require.NoError(t, Render(&b, r, format))
		assert.Equal(t, a.String(), b.String(), format)
	}
}

func TestWriteXML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXML(&buf, sampleReport(t)))

	out := buf.String()
	assert.Contains(t, out, `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, out, `<auditReport source="amfi.txt" kind="nav">`)
	assert.Contains(t, out, `<totalRecords>4</totalRecords>`)
	assert.Contains(t, out, `<group name="AMC One Mutual Fund" count="2"/>`)
	assert.Contains(t, out, `<duplicate key="100|15-Jan-2025" count="3">`)
	assert.Contains(t, out, `<detail>dup &lt;&amp;&gt;</detail>`)
}

func TestWriteXMLAll(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderAll(&buf, []*Report{sampleReport(t), MissingFile("b.csv", KindTransactions)}, FormatXML))
	assert.Contains(t, buf.String(), `<auditReports count="2">`)
	assert.Contains(t, buf.String(), `source="b.csv"`)
}

func TestEscapeXML(t *testing.T) {
	assert.Equal(t, "a &amp; b &lt;c&gt; &quot;d&quot; &apos;e&apos;", escapeXML(`a & b <c> "d" 'e'`))
	assert.Equal(t, "a\uFFFDb\tc\uFFFD\uFFFD", escapeXML("a\x00b\tc\x1b\xff"))
	assert.Equal(t, "Sch\u00e9me \U0001F600", escapeXML("Sch\u00e9me \U0001F600"))
}

func TestWriteXMLWithControlCharacters(t *testing.T) {
	b := NewBuilder("amfi.txt", KindNAV)
	require.NoError(t, b.CountRecord())
	issue := types.NewIssue(types.IssueMalformedLine, 1, "line could not be parsed")
	issue.Value = "101;X;Y;Sch\x00eme;1.0;08-Jun-2025"
	require.NoError(t, b.AddIssue(issue))
	r, err := b.Build()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteXML(&buf, r))
	assert.NotContains(t, buf.String(), "\x00")

	decoder := xml.NewDecoder(&buf)
	for {
		_, err := decoder.Token()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleReport(t)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, "amfi.txt", summary[1][0])
	assert.Equal(t, "15-Jan-2025", summary[1][8])

	dups, err := f.GetRows(SheetDuplicates)
	require.NoError(t, err)
	assert.Len(t, dups, 1+5)

	issues, err := f.GetRows(SheetIssues)
	require.NoError(t, err)
	require.Len(t, issues, 1+3)
	assert.Equal(t, "BOMPresent", issues[1][1])
}
