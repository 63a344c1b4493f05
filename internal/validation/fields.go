// =============================================================================
// navaudit - Field Format Checker
// =============================================================================
//
// This module applies per-position checks to a record:
//   - Required fields must be non-empty
//   - Date fields must start with an accepted year prefix ("2024-")
//   - NAV dates must parse with the AMFI layout ("02-Jan-2006")
//   - Amounts and NAV values must be decimal numbers
//
// Empty values are only checked by the required rule. An empty optional date
// is never an InvalidDateFormat.
//
// Roles whose index lies beyond the observed field count are skipped; the
// short row has already been reported as a ColumnCountMismatch.
//
// =============================================================================

package validation

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/navaudit/internal/types"
)

// DefaultYearPrefixes are the accepted transaction date prefixes.
var DefaultYearPrefixes = []string{"2023-", "2024-", "2025-"}

// DefaultDateLayout is the AMFI NAV date layout (dd-Mon-yyyy).
const DefaultDateLayout = "02-Jan-2006"

// FieldOptions tunes the format predicates of a FieldChecker.
type FieldOptions struct {
	// YearPrefixes are the accepted prefixes for date-prefix fields.
	// Default: DefaultYearPrefixes
	YearPrefixes []string

	// DateLayout is the time layout for date-layout fields.
	// Default: DefaultDateLayout
	DateLayout string

	// Placeholders are values accepted in decimal fields in place of a number
	// (AMFI publishes "N.A." for schemes without a NAV).
	Placeholders []string
}

// FieldChecker applies a fixed list of field roles to records.
type FieldChecker struct {
	roles   []types.FieldRole
	options FieldOptions
}

// NewFieldChecker creates a FieldChecker for the given roles.
func NewFieldChecker(roles []types.FieldRole, options FieldOptions) *FieldChecker {
	if len(options.YearPrefixes) == 0 {
		options.YearPrefixes = DefaultYearPrefixes
	}
	if options.DateLayout == "" {
		options.DateLayout = DefaultDateLayout
	}

	return &FieldChecker{
		roles:   roles,
		options: options,
	}
}

// Check returns the field issues for one record, in role order.
func (c *FieldChecker) Check(rec types.Record) []types.Issue {
	var issues []types.Issue

	for _, role := range c.roles {
		if !rec.HasField(role.Index) {
			continue
		}

		value := rec.Field(role.Index)
		name := roleName(role)

		if value == "" {
			if role.Required {
				issue := types.NewIssue(types.IssueMissingRequiredField, rec.Line,
					fmt.Sprintf("required field '%s' is empty", name))
				issue.Field = name
				issues = append(issues, issue)
			}
			continue
		}

		var kind types.IssueKind
		var message string

		switch role.Kind {
		case types.KindDatePrefix:
			kind, message = types.IssueInvalidDateFormat, validateDatePrefix(value, c.options.YearPrefixes)
		case types.KindDateLayout:
			kind, message = types.IssueInvalidDateFormat, validateDate(value, c.options.DateLayout)
		case types.KindDecimal:
			kind, message = types.IssueInvalidNumber, validateDecimal(value, c.options.Placeholders)
		}

		if message != "" {
			issue := types.NewIssue(kind, rec.Line, message)
			issue.Field = name
			issue.Value = value
			issues = append(issues, issue)
		}
	}

	return issues
}

func roleName(role types.FieldRole) string {
	if role.Name != "" {
		return role.Name
	}
	return fmt.Sprintf("field %d", role.Index)
}

// =============================================================================
// FORMAT PREDICATES
// =============================================================================

// validateDatePrefix checks that a value starts with one of the accepted year
// prefixes. Returns an error message, or "" when valid.
func validateDatePrefix(value string, prefixes []string) string {
	for _, prefix := range prefixes {
		if strings.HasPrefix(value, prefix) {
			return ""
		}
	}
	return fmt.Sprintf("date does not start with an accepted year prefix (%s)", strings.Join(prefixes, ", "))
}

// validateDate checks that a value parses with the given layout.
func validateDate(value, layout string) string {
	if _, err := time.Parse(layout, value); err != nil {
		return fmt.Sprintf("date does not match format '%s'", layout)
	}
	return ""
}

// validateDecimal checks that a value is a decimal number or a tolerated
// placeholder.
func validateDecimal(value string, placeholders []string) string {
	for _, p := range placeholders {
		if strings.EqualFold(value, p) {
			return ""
		}
	}

	if _, err := decimal.NewFromString(value); err != nil {
		return "value is not a valid decimal number"
	}
	return ""
}

// YearPrefixes turns a list of years ("2026") into date prefixes ("2026-").
// Entries that already end with "-" are kept as given.
func YearPrefixes(years []string) []string {
	prefixes := make([]string, 0, len(years))
	for _, y := range years {
		y = strings.TrimSpace(y)
		if y == "" {
			continue
		}
		if !strings.HasSuffix(y, "-") {
			y += "-"
		}
		prefixes = append(prefixes, y)
	}
	return prefixes
}

// =============================================================================
// ISSUE FORMATTING
// =============================================================================

// FormatIssues formats issues for display or logging.
func FormatIssues(issues []types.Issue) string {
	if len(issues) == 0 {
		return "No validation issues."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d issue(s):\n\n", len(issues)))

	for i, issue := range issues {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, issue.Error()))
	}

	return builder.String()
}

// WriteIssueLog writes formatted issues to a log file.
func WriteIssueLog(issues []types.Issue, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create issue log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if _, err := writer.WriteString(FormatIssues(issues)); err != nil {
		return fmt.Errorf("failed to write issue log: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write issue log: %w", err)
	}
	return nil
}
