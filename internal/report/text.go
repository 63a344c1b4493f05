package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ginjaninja78/navaudit/internal/types"
)

type textStyles struct {
	title   lipgloss.Style
	heading lipgloss.Style
	dim     lipgloss.Style
	errSev  lipgloss.Style
	warnSev lipgloss.Style
	ok      lipgloss.Style
}

// newTextStyles binds the styles to w, so colour is only emitted when w is a
// terminal.
func newTextStyles(w io.Writer) textStyles {
	r := lipgloss.NewRenderer(w)
	return textStyles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		heading: r.NewStyle().Bold(true).Foreground(lipgloss.Color("81")),
		dim:     r.NewStyle().Foreground(lipgloss.Color("240")),
		errSev:  r.NewStyle().Foreground(lipgloss.Color("196")),
		warnSev: r.NewStyle().Foreground(lipgloss.Color("208")),
		ok:      r.NewStyle().Foreground(lipgloss.Color("42")),
	}
}

// WriteText renders a human-readable report.
func WriteText(w io.Writer, r *Report) error {
	s := newTextStyles(w)
	out := bufio.NewWriter(w)

	fmt.Fprintln(out, s.title.Render(fmt.Sprintf("%s audit: %s", kindTitle(r.Kind), r.Source)))
	fmt.Fprintf(out, "Total records scanned: %d\n", r.TotalRecords)
	fmt.Fprintf(out, "Unique keys: %d\n", r.UniqueKeys)
	if r.Kind == KindNAV {
		fmt.Fprintf(out, "Unique schemes: %d\n", r.UniqueSchemes)
	}
	fmt.Fprintf(out, "Duplicate entries: %d\n", r.DuplicateEntries)

	for _, target := range r.Targets {
		fmt.Fprintln(out)
		fmt.Fprintln(out, s.heading.Render("Target "+target.Target))
		fmt.Fprintf(out, "  %d record(s) across %d group(s)\n", target.Matches, len(target.Groups))
		for _, g := range target.Groups {
			fmt.Fprintf(out, "  %-60s %d\n", g.Group, g.Count)
		}
	}

	fmt.Fprintln(out)
	if len(r.Duplicates) == 0 {
		fmt.Fprintln(out, s.ok.Render("No duplicates found."))
	} else {
		fmt.Fprintln(out, s.heading.Render(fmt.Sprintf("Duplicates (%d group(s))", len(r.Duplicates))))
		for _, d := range r.Duplicates {
			fmt.Fprintf(out, "  (%s) x%d\n", strings.Join(d.Key, ", "), d.Count)
			for _, m := range d.Members {
				label := ""
				if m.Group != "" {
					label = " [" + m.Group + "]"
				}
				fmt.Fprintf(out, "    line %d%s %s\n", m.Line, label, s.dim.Render(strings.Join(m.Fields, " | ")))
			}
		}
	}

	fmt.Fprintln(out)
	if len(r.Issues) == 0 {
		fmt.Fprintln(out, s.ok.Render("No issues found."))
	} else {
		fmt.Fprintln(out, s.heading.Render(fmt.Sprintf("Issues (%d)", r.IssueCount())))
		for _, g := range r.Issues {
			fmt.Fprintf(out, "  %s (%d)\n", g.Kind, len(g.Issues))
			for _, issue := range g.Issues {
				style := s.warnSev
				if issue.Severity == types.SeverityError {
					style = s.errSev
				}
				fmt.Fprintf(out, "    %s\n", style.Render(issue.Error()))
			}
		}
	}

	if err := out.Flush(); err != nil {
		return fmt.Errorf("failed to write text report: %w", err)
	}
	return nil
}

func kindTitle(k Kind) string {
	switch k {
	case KindNAV:
		return "NAV"
	case KindTransactions:
		return "Transactions"
	default:
		return string(k)
	}
}
