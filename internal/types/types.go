// =============================================================================
// navaudit - Shared Types
// =============================================================================
//
// This package contains the data model shared by the parser, the validators,
// the grouping index and the report builder. Keeping it here avoids import
// cycles between those packages.
//
// =============================================================================

package types

import (
	"fmt"
	"strings"
)

// =============================================================================
// RECORDS
// =============================================================================

// Record is one delimited data line.
// The field count is kept exactly as observed, even when it does not match the
// expected schema. Records are never modified after parsing.
type Record struct {
	// Line is the 1-based line number in the source file.
	Line int `json:"line"`

	// Fields are the trimmed field values in file order.
	Fields []string `json:"fields"`

	// Delimiter is the separator the line was split on.
	Delimiter rune `json:"-"`

	// Group is the group label (AMC name) in force when the line was read.
	Group string `json:"group,omitempty"`

	// Section is the section / category label in force when the line was read.
	Section string `json:"section,omitempty"`
}

// Field returns the value at position i, or "" when the record is shorter.
func (r Record) Field(i int) string {
	if i < 0 || i >= len(r.Fields) {
		return ""
	}
	return r.Fields[i]
}

// HasField reports whether position i exists in the record.
func (r Record) HasField(i int) bool {
	return i >= 0 && i < len(r.Fields)
}

// Raw joins the fields back with the record delimiter.
func (r Record) Raw() string {
	return strings.Join(r.Fields, string(r.Delimiter))
}

// =============================================================================
// SCHEMA
// =============================================================================

// FieldKind selects the format predicate applied to a field.
type FieldKind string

const (
	// KindText accepts any value.
	KindText FieldKind = "text"

	// KindDatePrefix requires a non-empty value to start with an accepted year prefix.
	KindDatePrefix FieldKind = "date_prefix"

	// KindDateLayout requires a non-empty value to parse with a fixed date layout.
	KindDateLayout FieldKind = "date_layout"

	// KindDecimal requires a non-empty value to be a decimal number.
	KindDecimal FieldKind = "decimal"
)

// FieldRole binds a fixed field position to the checks applied to it.
type FieldRole struct {
	Index    int       `yaml:"index" json:"index"`
	Name     string    `yaml:"name" json:"name"`
	Required bool      `yaml:"required" json:"required"`
	Kind     FieldKind `yaml:"kind" json:"kind"`
}

// Schema is the expected shape of a data line. It is supplied by the caller
// and treated as immutable.
type Schema struct {
	// FieldCount is the expected number of fields (always positive).
	FieldCount int

	// AllowExtraFields turns FieldCount into a minimum instead of an exact count.
	AllowExtraFields bool

	// Names is the optional ordered list of expected header names.
	Names []string

	// Roles lists the per-position field checks.
	Roles []FieldRole
}

// Describe returns a short human-readable form of the expected count.
func (s Schema) Describe() string {
	if s.AllowExtraFields {
		return fmt.Sprintf("at least %d", s.FieldCount)
	}
	return fmt.Sprintf("%d", s.FieldCount)
}

// =============================================================================
// ISSUES
// =============================================================================

// IssueKind tags a ValidationIssue.
type IssueKind string

const (
	IssueMissingFile          IssueKind = "MissingFile"
	IssueMalformedLine        IssueKind = "MalformedLine"
	IssueColumnCountMismatch  IssueKind = "ColumnCountMismatch"
	IssueHeaderMismatch       IssueKind = "HeaderMismatch"
	IssueMissingRequiredField IssueKind = "MissingRequiredField"
	IssueInvalidDateFormat    IssueKind = "InvalidDateFormat"
	IssueInvalidNumber        IssueKind = "InvalidNumber"
	IssueBOMPresent           IssueKind = "BOMPresent"
	IssueTrailingDelimiter    IssueKind = "TrailingDelimiter"
	IssueUnexpectedContent    IssueKind = "UnexpectedContent"
	IssueDuplicateKey         IssueKind = "DuplicateKey"
)

// IssueKinds is the fixed presentation order of issue kinds.
var IssueKinds = []IssueKind{
	IssueMissingFile,
	IssueUnexpectedContent,
	IssueBOMPresent,
	IssueMalformedLine,
	IssueHeaderMismatch,
	IssueColumnCountMismatch,
	IssueTrailingDelimiter,
	IssueMissingRequiredField,
	IssueInvalidDateFormat,
	IssueInvalidNumber,
	IssueDuplicateKey,
}

// Severity indicates how serious an issue is.
// "error" issues describe data that cannot be trusted as-is; "warning" issues
// are advisory.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// SeverityOf returns the default severity for an issue kind.
func SeverityOf(kind IssueKind) Severity {
	switch kind {
	case IssueMissingFile, IssueMalformedLine, IssueColumnCountMismatch, IssueDuplicateKey:
		return SeverityError
	default:
		return SeverityWarning
	}
}

// Issue is a single finding. Issues are collected, never thrown, and never
// stop the scan on their own.
type Issue struct {
	Kind     IssueKind `json:"kind"`
	Severity Severity  `json:"severity"`

	// Line is the 1-based line number, or 0 for file-level issues.
	Line int `json:"line,omitempty"`

	// Field is the name of the offending field, when there is one.
	Field string `json:"field,omitempty"`

	// Value is the offending value, when there is one.
	Value string `json:"value,omitempty"`

	// Detail is a human-readable description.
	Detail string `json:"detail"`
}

// NewIssue builds an Issue with the default severity for its kind.
func NewIssue(kind IssueKind, line int, detail string) Issue {
	return Issue{
		Kind:     kind,
		Severity: SeverityOf(kind),
		Line:     line,
		Detail:   detail,
	}
}

// Error implements the error interface so issues can be logged or wrapped.
func (i Issue) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(string(i.Severity)), i.Kind)
	if i.Line > 0 {
		fmt.Fprintf(&b, " line %d", i.Line)
	}
	if i.Field != "" {
		fmt.Fprintf(&b, " field '%s'", i.Field)
	}
	fmt.Fprintf(&b, ": %s", i.Detail)
	if i.Value != "" {
		fmt.Fprintf(&b, " (value: '%s')", i.Value)
	}
	return b.String()
}
