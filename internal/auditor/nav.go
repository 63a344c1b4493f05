package auditor

import (
	"context"
	"time"

	"github.com/ginjaninja78/navaudit/internal/config"
	"github.com/ginjaninja78/navaudit/internal/csvparser"
	"github.com/ginjaninja78/navaudit/internal/grouping"
	"github.com/ginjaninja78/navaudit/internal/report"
	"github.com/ginjaninja78/navaudit/internal/types"
	"github.com/ginjaninja78/navaudit/internal/validation"
)

// Field positions of an AMFI NAV line.
const (
	NavSchemeCode       = 0
	NavISINGrowth       = 1
	NavISINReinvestment = 2
	NavSchemeName       = 3
	NavValue            = 4
	NavDate             = 5
)

// UnknownGroup labels NAV records read before any AMC line.
const UnknownGroup = "Unknown AMC"

// NAVDateLayout is the AMFI date layout (dd-Mon-yyyy).
const NAVDateLayout = "02-Jan-2006"

type navSettings struct {
	parser     *csvparser.Parser
	schema     types.Schema
	checker    *validation.FieldChecker
	dateLayout string
}

func newNAVSettings(cfg config.NAVConfig) (navSettings, error) {
	parser, err := csvparser.New(csvparser.Options{
		Delimiter:      cfg.Delimiter,
		GroupMarkers:   cfg.GroupMarkers,
		SectionLines:   true,
		HeaderSentinel: cfg.HeaderSentinel,
	})
	if err != nil {
		return navSettings{}, err
	}

	layout := cfg.DateLayout
	if layout == "" {
		layout = NAVDateLayout
	}

	schema := NAVSchema(cfg.MinFields)
	checker := validation.NewFieldChecker(schema.Roles, validation.FieldOptions{
		DateLayout:   layout,
		Placeholders: cfg.Placeholders,
	})

	return navSettings{parser: parser, schema: schema, checker: checker, dateLayout: layout}, nil
}

// NAVSchema returns the NAV line schema: at least minFields fields with a
// required scheme code, a decimal NAV and a dd-Mon-yyyy date.
func NAVSchema(minFields int) types.Schema {
	return types.Schema{
		FieldCount:       minFields,
		AllowExtraFields: true,
		Roles: []types.FieldRole{
			{Index: NavSchemeCode, Name: "Scheme Code", Required: true, Kind: types.KindText},
			{Index: NavValue, Name: "Net Asset Value", Kind: types.KindDecimal},
			{Index: NavDate, Name: "Date", Kind: types.KindDateLayout},
		},
	}
}

// NAVTargetDates returns the target for day in the NAV date layout records
// are checked against, plus the previous day when withPreviousDay is set.
func (a *Auditor) NAVTargetDates(day time.Time, withPreviousDay bool) []string {
	targets := []string{day.Format(a.nav.dateLayout)}
	if withPreviousDay {
		targets = append(targets, day.AddDate(0, 0, -1).Format(a.nav.dateLayout))
	}
	return targets
}

// NAVDateLayout returns the layout NAV dates are checked against.
func (a *Auditor) NAVDateLayout() string {
	return a.nav.dateLayout
}

func (a *Auditor) auditNAV(ctx context.Context, path string, targets []string) (*report.Report, int, error) {
	s := &scan{
		builder: report.NewBuilder(path, report.KindNAV),
		parser:  a.nav.parser,
	}

	// byScheme finds duplicates; byDate drives the per-day, per-AMC tallies.
	byScheme := grouping.New()
	byDate := grouping.New()
	schemeKey := grouping.FieldsKey(NavSchemeCode, NavDate)

	handle := func(s *scan, line csvparser.LineResult) {
		switch line.Kind {
		case csvparser.LineBlank, csvparser.LineHeader:
			return
		case csvparser.LineGroupLabel:
			s.group = line.Label
			return
		case csvparser.LineSection:
			s.section = line.Label
			return
		case csvparser.LineMalformed:
			s.malformed(line)
			return
		}

		_ = s.builder.CountRecord()
		rec := s.record(line.Fields, line.Line)

		s.addIf(validation.CheckTrailingDelimiter(rec.Line, line.Text, rec.Delimiter))
		issue, short := validation.CheckColumnCount(rec, a.nav.schema)
		s.addIf(issue, short)

		for _, issue := range a.nav.checker.Check(rec) {
			s.add(issue)
		}

		if short {
			return
		}

		byScheme.Add(schemeKey(rec), rec)

		group := rec.Group
		if group == "" {
			group = UnknownGroup
		}
		byDate.Add(grouping.Key{rec.Field(NavDate), group}, rec)
	}

	found, err := scanFile(ctx, path, s, handle)
	if err != nil {
		return nil, s.lines, err
	}
	if !found {
		return report.MissingFile(path, report.KindNAV), 0, nil
	}

	for key, records := range byScheme.Duplicates() {
		_ = s.builder.AddDuplicate(key, records)

		issue := types.NewIssue(types.IssueDuplicateKey, records[1].Line, duplicateDetail(key, records))
		issue.Field = "Scheme Code, Date"
		issue.Value = key.String()
		s.add(issue)
	}

	for _, target := range targets {
		_ = s.builder.AddTarget(summarize(byDate, target))
	}

	_ = s.builder.SetUniques(byScheme.KeyCount(), byScheme.DistinctAt(0))

	rep, err := s.builder.Build()
	return rep, s.lines, err
}

// summarize tallies the records under target by the second key component.
func summarize(index *grouping.Index, target string) report.TargetSummary {
	prefix := grouping.Key{target}
	summary := report.TargetSummary{
		Target:  target,
		Matches: index.CountByPrefix(prefix),
	}
	for _, group := range index.Distinct(prefix) {
		summary.Groups = append(summary.Groups, report.GroupTally{
			Group: group,
			Count: index.CountByPrefix(grouping.Key{target, group}),
		})
	}
	return summary
}
