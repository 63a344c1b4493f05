// =============================================================================
// navaudit - Report Builder
// =============================================================================
//
// This module assembles the immutable result of one audit run:
//   - Total records scanned
//   - Target summaries (matches and per-group tallies for a date)
//   - Duplicate groups with full member detail
//   - Issues grouped by kind in a fixed order
//
// LIFECYCLE:
//   A Builder starts in the scanning state and accepts records, issues,
//   targets and duplicates. Build closes it and returns the Report. Any call
//   after Build returns ErrClosed.
//
// The builder has no side effects. Rendering lives in render.go, text.go,
// xml.go and xlsx.go.
//
// =============================================================================

package report

import (
	"errors"
	"slices"

	"github.com/ginjaninja78/navaudit/internal/types"
)

// ErrClosed is returned when a Builder is used after Build.
var ErrClosed = errors.New("report builder is closed")

// Kind names the audited file type.
type Kind string

const (
	KindNAV          Kind = "nav"
	KindTransactions Kind = "transactions"
)

// =============================================================================
// REPORT STRUCTURE
// =============================================================================

// GroupTally is the record count of one group for a target.
type GroupTally struct {
	Group string `json:"group"`
	Count int    `json:"count"`
}

// TargetSummary describes the records matching one target value.
type TargetSummary struct {
	// Target is the value audited, e.g. a NAV date "15-Jan-2025".
	Target string `json:"target"`

	// Matches is the number of records matching the target.
	Matches int `json:"matches"`

	// Groups holds per-group tallies in first-seen order.
	Groups []GroupTally `json:"groups,omitempty"`
}

// Member is one record of a duplicate group.
type Member struct {
	Line    int      `json:"line"`
	Group   string   `json:"group,omitempty"`
	Section string   `json:"section,omitempty"`
	Fields  []string `json:"fields"`
}

// DuplicateGroup is a key seen on more than one record.
type DuplicateGroup struct {
	Key     []string `json:"key"`
	Count   int      `json:"count"`
	Members []Member `json:"members"`
}

// IssueGroup holds the issues of one kind in file order.
type IssueGroup struct {
	Kind   types.IssueKind `json:"kind"`
	Issues []types.Issue   `json:"issues"`
}

// Report is the result of one audit run. It is not modified after Build.
type Report struct {
	Source string `json:"source"`
	Kind   Kind   `json:"kind"`

	// TotalRecords counts every line that is not blank, a group label,
	// a section line or a header.
	TotalRecords int `json:"totalRecords"`

	// UniqueKeys is the number of distinct duplicate-detection keys.
	UniqueKeys int `json:"uniqueKeys"`

	// UniqueSchemes is the number of distinct scheme codes.
	UniqueSchemes int `json:"uniqueSchemes"`

	// DuplicateEntries is the number of records beyond the first per
	// duplicate key.
	DuplicateEntries int `json:"duplicateEntries"`

	Targets    []TargetSummary  `json:"targets,omitempty"`
	Duplicates []DuplicateGroup `json:"duplicates"`
	Issues     []IssueGroup     `json:"issues"`
}

// IssueCount returns the total number of issues.
func (r *Report) IssueCount() int {
	total := 0
	for _, g := range r.Issues {
		total += len(g.Issues)
	}
	return total
}

// ErrorCount returns the number of error-severity issues.
func (r *Report) ErrorCount() int {
	total := 0
	for _, issue := range r.AllIssues() {
		if issue.Severity == types.SeverityError {
			total++
		}
	}
	return total
}

// HasErrors reports whether any error-severity issue was found.
func (r *Report) HasErrors() bool {
	return r.ErrorCount() > 0
}

// IssuesOf returns the issues of one kind.
func (r *Report) IssuesOf(kind types.IssueKind) []types.Issue {
	for _, g := range r.Issues {
		if g.Kind == kind {
			return g.Issues
		}
	}
	return nil
}

// AllIssues flattens the issue groups in presentation order.
func (r *Report) AllIssues() []types.Issue {
	all := make([]types.Issue, 0, r.IssueCount())
	for _, g := range r.Issues {
		all = append(all, g.Issues...)
	}
	return all
}

// =============================================================================
// BUILDER
// =============================================================================

// Builder accumulates the parts of a Report during a scan.
type Builder struct {
	report Report
	issues map[types.IssueKind][]types.Issue
	closed bool
}

// NewBuilder creates a Builder for the given source file.
func NewBuilder(source string, kind Kind) *Builder {
	return &Builder{
		report: Report{Source: source, Kind: kind},
		issues: make(map[types.IssueKind][]types.Issue),
	}
}

// CountRecord increments the total record count.
func (b *Builder) CountRecord() error {
	if b.closed {
		return ErrClosed
	}
	b.report.TotalRecords++
	return nil
}

// AddIssue records an issue.
func (b *Builder) AddIssue(issue types.Issue) error {
	if b.closed {
		return ErrClosed
	}
	if issue.Severity == "" {
		issue.Severity = types.SeverityOf(issue.Kind)
	}
	b.issues[issue.Kind] = append(b.issues[issue.Kind], issue)
	return nil
}

// AddTarget records a target summary.
func (b *Builder) AddTarget(summary TargetSummary) error {
	if b.closed {
		return ErrClosed
	}
	b.report.Targets = append(b.report.Targets, summary)
	return nil
}

// AddDuplicate records a duplicate group with its members in file order.
func (b *Builder) AddDuplicate(key []string, records []types.Record) error {
	if b.closed {
		return ErrClosed
	}

	group := DuplicateGroup{
		Key:     slices.Clone(key),
		Count:   len(records),
		Members: make([]Member, 0, len(records)),
	}
	for _, rec := range records {
		group.Members = append(group.Members, Member{
			Line:    rec.Line,
			Group:   rec.Group,
			Section: rec.Section,
			Fields:  slices.Clone(rec.Fields),
		})
	}

	b.report.Duplicates = append(b.report.Duplicates, group)
	b.report.DuplicateEntries += len(records) - 1
	return nil
}

// SetUniques records the distinct key and scheme counts.
func (b *Builder) SetUniques(keys, schemes int) error {
	if b.closed {
		return ErrClosed
	}
	b.report.UniqueKeys = keys
	b.report.UniqueSchemes = schemes
	return nil
}

// Build closes the builder and returns the finished Report.
func (b *Builder) Build() (*Report, error) {
	if b.closed {
		return nil, ErrClosed
	}
	b.closed = true

	r := b.report

	slices.SortStableFunc(r.Duplicates, func(x, y DuplicateGroup) int {
		return slices.Compare(x.Key, y.Key)
	})
	if r.Duplicates == nil {
		r.Duplicates = []DuplicateGroup{}
	}

	r.Issues = []IssueGroup{}
	for _, kind := range types.IssueKinds {
		if issues := b.issues[kind]; len(issues) > 0 {
			r.Issues = append(r.Issues, IssueGroup{Kind: kind, Issues: issues})
		}
	}

	return &r, nil
}

// MissingFile builds the report of a run whose input file does not exist.
// It holds exactly one MissingFile issue.
func MissingFile(source string, kind Kind) *Report {
	issue := types.NewIssue(types.IssueMissingFile, 0, "file not found: "+source)
	issue.Value = source

	return &Report{
		Source:     source,
		Kind:       kind,
		Duplicates: []DuplicateGroup{},
		Issues: []IssueGroup{
			{Kind: types.IssueMissingFile, Issues: []types.Issue{issue}},
		},
	}
}
