package auditor

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ginjaninja78/navaudit/internal/config"
	"github.com/ginjaninja78/navaudit/internal/csvparser"
	"github.com/ginjaninja78/navaudit/internal/grouping"
	"github.com/ginjaninja78/navaudit/internal/report"
	"github.com/ginjaninja78/navaudit/internal/types"
	"github.com/ginjaninja78/navaudit/internal/validation"
)

// Field positions of a transaction export line.
const (
	TxnClientID            = 0
	TxnType                = 1
	TxnAmount              = 2
	TxnTransactionDate     = 3
	TxnStatus              = 4
	TxnFundName            = 5
	TxnFromFund            = 6
	TxnToFund              = 7
	TxnFrequency           = 8
	TxnStartDate           = 9
	TxnEndDate             = 10
	TxnNextTransactionDate = 11
	TxnInstallmentNumber   = 12
	TxnTotalInstallments   = 13
	TxnIsRecurring         = 14
	TxnSchemeCode          = 15
	TxnAssetClass          = 16
	TxnUnits               = 17
	TxnNAVAtTransaction    = 18
	TxnMode                = 19
	TxnRemarks             = 20
)

// TransactionColumns is the expected transaction export header.
var TransactionColumns = []string{
	"clientId", "type", "amount", "transactionDate", "status",
	"fundName", "fromFund", "toFund", "frequency", "startDate",
	"endDate", "nextTransactionDate", "installmentNumber", "totalInstallments",
	"isRecurring", "schemeCode", "assetClass", "units", "navAtTransactionTime",
	"mode", "remarks",
}

// missingType labels transactions without a type in target tallies.
const missingType = "(no type)"

// DefaultTransactionSchema returns the 21-column transaction schema.
func DefaultTransactionSchema() types.Schema {
	role := func(index int, required bool, kind types.FieldKind) types.FieldRole {
		return types.FieldRole{Index: index, Name: TransactionColumns[index], Required: required, Kind: kind}
	}

	return types.Schema{
		FieldCount: len(TransactionColumns),
		Names:      slices.Clone(TransactionColumns),
		Roles: []types.FieldRole{
			role(TxnClientID, true, types.KindText),
			role(TxnType, true, types.KindText),
			role(TxnAmount, true, types.KindDecimal),
			role(TxnTransactionDate, false, types.KindDatePrefix),
			role(TxnStartDate, false, types.KindDatePrefix),
			role(TxnEndDate, false, types.KindDatePrefix),
			role(TxnNextTransactionDate, false, types.KindDatePrefix),
			role(TxnUnits, false, types.KindDecimal),
			role(TxnNAVAtTransaction, false, types.KindDecimal),
		},
	}
}

type txnSettings struct {
	parser  *csvparser.Parser
	schema  types.Schema
	checker *validation.FieldChecker

	keyNames     []string
	keyPositions []int
	datePos      int
	typePos      int
	schemePos    int
}

func newTxnSettings(cfg config.TransactionsConfig, schema types.Schema) (txnSettings, error) {
	parser, err := csvparser.New(csvparser.Options{
		Delimiter:      cfg.Delimiter,
		Quoted:         true,
		HeaderSentinel: cfg.HeaderSentinel,
	})
	if err != nil {
		return txnSettings{}, err
	}

	settings := txnSettings{
		parser: parser,
		schema: schema,
		checker: validation.NewFieldChecker(schema.Roles, validation.FieldOptions{
			YearPrefixes: validation.YearPrefixes(cfg.YearPrefixes),
		}),
		keyNames:  cfg.DuplicateKey,
		datePos:   columnIndex(schema, "transactionDate", TxnTransactionDate),
		typePos:   columnIndex(schema, "type", TxnType),
		schemePos: columnIndex(schema, "schemeCode", TxnSchemeCode),
	}

	for _, name := range cfg.DuplicateKey {
		pos := slices.Index(schema.Names, name)
		if pos < 0 {
			return txnSettings{}, fmt.Errorf("duplicate key column '%s' is not in the schema", name)
		}
		settings.keyPositions = append(settings.keyPositions, pos)
	}

	return settings, nil
}

// columnIndex finds a column by name, falling back to its default position.
func columnIndex(schema types.Schema, name string, fallback int) int {
	if len(schema.Names) == 0 {
		return fallback
	}
	return slices.Index(schema.Names, name)
}

func (a *Auditor) auditTransactions(ctx context.Context, path string, targets []string) (*report.Report, int, error) {
	cfg := a.txn
	s := &scan{
		builder: report.NewBuilder(path, report.KindTransactions),
		parser:  cfg.parser,
	}

	byKey := grouping.New()
	byDate := grouping.New()
	keyOf := grouping.FieldsKey(cfg.keyPositions...)
	schemes := make(map[string]struct{})
	headerSeen := false

	lastKeyPos := -1
	if len(cfg.keyPositions) > 0 {
		lastKeyPos = slices.Max(cfg.keyPositions)
	}

	handle := func(s *scan, line csvparser.LineResult) {
		switch line.Kind {
		case csvparser.LineBlank:
			return
		case csvparser.LineMalformed:
			headerSeen = true
			s.malformed(line)
			return
		}

		// The first non-blank line is the header, whatever it contains.
		if !headerSeen {
			headerSeen = true
			rec := s.record(line.Fields, line.Line)
			s.addIf(validation.CheckTrailingDelimiter(rec.Line, line.Text, rec.Delimiter))
			s.addIf(validation.CheckColumnCount(rec, cfg.schema))
			s.addIf(validation.CheckHeader(rec.Line, rec.Fields, cfg.schema))
			return
		}
		if line.Kind != csvparser.LineRecord {
			return
		}

		_ = s.builder.CountRecord()
		rec := s.record(line.Fields, line.Line)

		s.addIf(validation.CheckTrailingDelimiter(rec.Line, line.Text, rec.Delimiter))
		s.addIf(validation.CheckColumnCount(rec, cfg.schema))

		for _, issue := range cfg.checker.Check(rec) {
			s.add(issue)
		}

		if lastKeyPos >= 0 && rec.HasField(lastKeyPos) {
			byKey.Add(keyOf(rec), rec)
		}

		if code := rec.Field(cfg.schemePos); code != "" {
			schemes[code] = struct{}{}
		}

		if date := rec.Field(cfg.datePos); date != "" {
			txnType := rec.Field(cfg.typePos)
			if txnType == "" {
				txnType = missingType
			}
			byDate.Add(grouping.Key{datePart(date), txnType}, rec)
		}
	}

	found, err := scanFile(ctx, path, s, handle)
	if err != nil {
		return nil, s.lines, err
	}
	if !found {
		return report.MissingFile(path, report.KindTransactions), 0, nil
	}

	for key, records := range byKey.Duplicates() {
		_ = s.builder.AddDuplicate(key, records)

		issue := types.NewIssue(types.IssueDuplicateKey, records[1].Line, duplicateDetail(key, records))
		issue.Field = strings.Join(cfg.keyNames, ", ")
		issue.Value = key.String()
		s.add(issue)
	}

	for _, target := range targets {
		_ = s.builder.AddTarget(summarize(byDate, target))
	}

	_ = s.builder.SetUniques(byKey.KeyCount(), len(schemes))

	rep, err := s.builder.Build()
	return rep, s.lines, err
}

// datePart returns the yyyy-mm-dd part of an ISO date or timestamp.
func datePart(value string) string {
	if len(value) >= 10 && value[4] == '-' && value[7] == '-' {
		return value[:10]
	}
	return value
}
