package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the XLSX report.
const (
	SheetSummary    = "Summary"
	SheetDuplicates = "Duplicates"
	SheetIssues     = "Issues"
)

// WriteXLSX writes one report as an Excel workbook.
func WriteXLSX(w io.Writer, r *Report) error {
	return WriteXLSXAll(w, []*Report{r})
}

// WriteXLSXAll writes several reports into one workbook with Summary,
// Duplicates and Issues sheets. Every row starts with the source file.
func WriteXLSXAll(w io.Writer, reports []*Report) error {
	f, err := BuildWorkbook(reports)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write XLSX report: %w", err)
	}
	return nil
}

// BuildWorkbook creates the report workbook in memory.
func BuildWorkbook(reports []*Report) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetDuplicates, SheetIssues} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	summary := [][]any{{"Source", "Kind", "Total Records", "Unique Keys", "Unique Schemes", "Duplicate Entries", "Issues", "Errors", "Target", "Matches", "Groups"}}
	duplicates := [][]any{{"Source", "Key", "Count", "Line", "Group", "Section", "Row"}}
	issues := [][]any{{"Source", "Kind", "Severity", "Line", "Field", "Value", "Detail"}}

	for _, r := range reports {
		base := []any{r.Source, string(r.Kind), r.TotalRecords, r.UniqueKeys, r.UniqueSchemes, r.DuplicateEntries, r.IssueCount(), r.ErrorCount()}
		if len(r.Targets) == 0 {
			summary = append(summary, base)
		}
		for _, t := range r.Targets {
			row := append(append([]any{}, base...), t.Target, t.Matches, len(t.Groups))
			summary = append(summary, row)
		}

		for _, d := range r.Duplicates {
			key := strings.Join(d.Key, " | ")
			for _, m := range d.Members {
				duplicates = append(duplicates, []any{r.Source, key, d.Count, m.Line, m.Group, m.Section, strings.Join(m.Fields, " | ")})
			}
		}

		for _, issue := range r.AllIssues() {
			issues = append(issues, []any{r.Source, string(issue.Kind), string(issue.Severity), issue.Line, issue.Field, issue.Value, issue.Detail})
		}
	}

	for sheet, rows := range map[string][][]any{
		SheetSummary:    summary,
		SheetDuplicates: duplicates,
		SheetIssues:     issues,
	} {
		if err := writeRows(f, sheet, rows); err != nil {
			f.Close()
			return nil, err
		}
	}

	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("invalid cell for row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
