// =============================================================================
// navaudit - XLSX Schema Template Parser
// =============================================================================
//
// This module reads a transaction column schema from an XLSX template. One
// row describes one column; the row order is the column order.
//
// TEMPLATE STRUCTURE (Expected Columns):
//
//   | Column A        | Column B    | Column C          |
//   |-----------------|-------------|-------------------|
//   | Column Name     | Data Type   | Required/Optional |
//   | clientId        | text        | required          |
//   | type            | text        | required          |
//   | amount          | decimal     | required          |
//   | transactionDate | date_prefix | optional          |
//
// Data types: text, date_prefix, date_layout, decimal. Aliases such as
// "string", "date", "number" are normalized.
//
// CUSTOMIZATION:
//   - Modify TemplateColumns to match a different column layout
//   - Keep several schemas in one workbook and pick one with ParseSheet
//     (transactions.schema_sheet); a sheet named "_..." is never picked
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/navaudit/internal/types"
)

// =============================================================================
// TEMPLATE COLUMN CONFIGURATION
// =============================================================================

// TemplateColumns defines which template columns hold which data.
// Indexes are 0-based (A = 0).
type TemplateColumns struct {
	// NameColumn holds the column name as it appears in the CSV header.
	NameColumn int

	// DataTypeColumn holds the field kind.
	DataTypeColumn int

	// RequiredColumn holds required/optional.
	RequiredColumn int

	// DataStartRow is the first data row (0-based; row 0 is the header).
	DataStartRow int
}

// DefaultTemplateColumns returns the default template layout.
func DefaultTemplateColumns() TemplateColumns {
	return TemplateColumns{
		NameColumn:     0, // Column A
		DataTypeColumn: 1, // Column B
		RequiredColumn: 2, // Column C
		DataStartRow:   1, // Row 2
	}
}

// templateHeader is the first row written by WriteTemplate.
var templateHeader = []string{"Column Name", "Data Type", "Required/Optional"}

// =============================================================================
// MAIN PARSING FUNCTIONS
// =============================================================================

// Parse reads the schema from the first sheet of a template.
func Parse(templatePath string) (types.Schema, error) {
	return ParseWithConfig(templatePath, DefaultTemplateColumns())
}

// ParseWithConfig reads the schema from the first sheet using a custom layout.
func ParseWithConfig(templatePath string, columns TemplateColumns) (types.Schema, error) {
	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return types.Schema{}, fmt.Errorf("failed to open template file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return types.Schema{}, fmt.Errorf("template file has no sheets")
	}

	return parseSheet(f, sheetName, columns)
}

// ParseMultiSheet reads one schema per visible sheet, keyed by sheet name.
// Sheets whose name starts with "_" are skipped.
func ParseMultiSheet(templatePath string) (map[string]types.Schema, error) {
	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open template file: %w", err)
	}
	defer f.Close()

	schemas := make(map[string]types.Schema)
	for _, sheetName := range f.GetSheetList() {
		if strings.HasPrefix(sheetName, "_") {
			continue
		}

		schema, err := parseSheet(f, sheetName, DefaultTemplateColumns())
		if err != nil {
			return nil, fmt.Errorf("error parsing sheet '%s': %w", sheetName, err)
		}
		schemas[sheetName] = schema
	}

	return schemas, nil
}

// ParseSheet reads the schema on one named sheet of a multi-sheet template.
func ParseSheet(templatePath, sheetName string) (types.Schema, error) {
	schemas, err := ParseMultiSheet(templatePath)
	if err != nil {
		return types.Schema{}, err
	}

	schema, ok := schemas[sheetName]
	if !ok {
		names := slices.Sorted(maps.Keys(schemas))
		return types.Schema{}, fmt.Errorf("sheet '%s' not found in %s (sheets: %s)",
			sheetName, templatePath, strings.Join(names, ", "))
	}
	return schema, nil
}

func parseSheet(f *excelize.File, sheetName string, columns TemplateColumns) (types.Schema, error) {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return types.Schema{}, fmt.Errorf("failed to read rows: %w", err)
	}

	var schema types.Schema
	seen := make(map[string]int)

	for i := columns.DataStartRow; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 || isRowEmpty(row) {
			continue
		}

		role, err := parseRow(row, columns)
		if err != nil {
			return types.Schema{}, fmt.Errorf("error parsing row %d: %w", i+1, err)
		}
		if prev, dup := seen[role.Name]; dup {
			return types.Schema{}, fmt.Errorf("row %d: column '%s' already defined in row %d", i+1, role.Name, prev)
		}
		seen[role.Name] = i + 1

		role.Index = len(schema.Names)
		schema.Names = append(schema.Names, role.Name)
		schema.Roles = append(schema.Roles, role)
	}

	if len(schema.Names) == 0 {
		return types.Schema{}, fmt.Errorf("sheet '%s' defines no columns", sheetName)
	}
	schema.FieldCount = len(schema.Names)

	return schema, nil
}

// parseRow converts one template row into a field role.
func parseRow(row []string, columns TemplateColumns) (types.FieldRole, error) {
	getCell := func(index int) string {
		if index < len(row) {
			return strings.TrimSpace(row[index])
		}
		return ""
	}

	role := types.FieldRole{Name: getCell(columns.NameColumn)}
	if role.Name == "" {
		return role, fmt.Errorf("column name is empty")
	}

	kind, err := normalizeDataType(getCell(columns.DataTypeColumn))
	if err != nil {
		return role, err
	}
	role.Kind = kind
	role.Required = normalizeRequired(getCell(columns.RequiredColumn))

	return role, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// normalizeRequired accepts the common spellings of required/optional.
// Anything unrecognized is optional.
func normalizeRequired(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "required", "req", "r", "yes", "y", "true", "1", "mandatory":
		return true
	default:
		return false
	}
}

// normalizeDataType maps a template data type to a field kind.
func normalizeDataType(value string) (types.FieldKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "text", "string", "str", "varchar":
		return types.KindText, nil
	case "date_prefix", "date", "datetime", "timestamp":
		return types.KindDatePrefix, nil
	case "date_layout", "nav_date":
		return types.KindDateLayout, nil
	case "decimal", "dec", "number", "numeric", "float", "money", "currency":
		return types.KindDecimal, nil
	default:
		return "", fmt.Errorf("unknown data type '%s'", value)
	}
}

// =============================================================================
// TEMPLATE GENERATION
// =============================================================================

// WriteTemplate writes a schema as an XLSX template that Parse reads back.
func WriteTemplate(schema types.Schema, templatePath string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"

	header := make([]any, len(templateHeader))
	for i, h := range templateHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write template header: %w", err)
	}

	roles := make(map[int]types.FieldRole, len(schema.Roles))
	for _, role := range schema.Roles {
		roles[role.Index] = role
	}

	for i, name := range schema.Names {
		role := roles[i]
		kind := role.Kind
		if kind == "" {
			kind = types.KindText
		}
		required := "optional"
		if role.Required {
			required = "required"
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("invalid cell for column %d: %w", i, err)
		}
		row := []any{name, string(kind), required}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write template row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(templatePath); err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	return nil
}
