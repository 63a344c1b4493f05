// =============================================================================
// navaudit - Schema Validator
// =============================================================================
//
// This module checks the structural shape of each line:
//   - Column count against the expected schema
//   - Header names and order
//   - Byte-order marker at the start of the file
//   - Trailing delimiter at the end of a line
//
// ERROR HANDLING:
//   Findings are returned as issues, never as Go errors. A structural problem
//   on one line never stops the scan.
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/navaudit/internal/types"
)

// CheckColumnCount compares the observed field count to the schema.
// It returns exactly one ColumnCountMismatch issue when the count is wrong.
//
// With AllowExtraFields set, FieldCount is a minimum.
func CheckColumnCount(rec types.Record, schema types.Schema) (types.Issue, bool) {
	observed := len(rec.Fields)

	if observed == schema.FieldCount {
		return types.Issue{}, false
	}
	if schema.AllowExtraFields && observed > schema.FieldCount {
		return types.Issue{}, false
	}

	issue := types.NewIssue(types.IssueColumnCountMismatch, rec.Line,
		fmt.Sprintf("expected %s fields, found %d", schema.Describe(), observed))
	issue.Value = rec.Raw()
	return issue, true
}

// CheckHeader compares a header line to the expected names.
// Nothing is reported when the schema carries no names.
func CheckHeader(line int, observed []string, schema types.Schema) (types.Issue, bool) {
	if len(schema.Names) == 0 {
		return types.Issue{}, false
	}

	if headersEqual(observed, schema.Names) {
		return types.Issue{}, false
	}

	detail := fmt.Sprintf("expected header [%s], found [%s]",
		strings.Join(schema.Names, ", "), strings.Join(observed, ", "))

	if diff := firstHeaderDifference(observed, schema.Names); diff != "" {
		detail += "; " + diff
	}

	return types.NewIssue(types.IssueHeaderMismatch, line, detail), true
}

// CheckBOM reports a byte-order marker once per file. encoding is the name
// returned by LineScanner.BOM; "" means no marker.
func CheckBOM(encoding string) (types.Issue, bool) {
	if encoding == "" {
		return types.Issue{}, false
	}

	detail := fmt.Sprintf("file starts with a %s byte-order marker", encoding)
	if strings.HasPrefix(encoding, "UTF-16") {
		detail += "; the file must be converted to UTF-8 before its lines can be read"
	}
	return types.NewIssue(types.IssueBOMPresent, 1, detail), true
}

// CheckTrailingDelimiter reports a line whose trimmed text ends with the delimiter.
func CheckTrailingDelimiter(line int, text string, delim rune) (types.Issue, bool) {
	text = strings.TrimSpace(text)
	if text == "" || !strings.HasSuffix(text, string(delim)) {
		return types.Issue{}, false
	}

	issue := types.NewIssue(types.IssueTrailingDelimiter, line,
		fmt.Sprintf("line ends with delimiter %q", delim))
	issue.Value = text
	return issue, true
}

func headersEqual(observed, expected []string) bool {
	if len(observed) != len(expected) {
		return false
	}
	for i := range expected {
		if observed[i] != expected[i] {
			return false
		}
	}
	return true
}

// firstHeaderDifference describes the first position where the headers diverge.
func firstHeaderDifference(observed, expected []string) string {
	for i := range expected {
		if i >= len(observed) {
			return fmt.Sprintf("missing column %d '%s'", i+1, expected[i])
		}
		if observed[i] != expected[i] {
			return fmt.Sprintf("column %d is '%s', expected '%s'", i+1, observed[i], expected[i])
		}
	}
	if len(observed) > len(expected) {
		return fmt.Sprintf("unexpected column %d '%s'", len(expected)+1, observed[len(expected)])
	}
	return ""
}
