package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Format selects a report renderer.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
	FormatXLSX Format = "xlsx"
)

// Formats lists the supported output formats.
var Formats = []Format{FormatText, FormatJSON, FormatXML, FormatXLSX}

// ParseFormat resolves a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatText, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (want text, json, xml or xlsx)", s)
}

// Extension returns the file extension for a format.
func (f Format) Extension() string {
	if f == FormatText {
		return ".txt"
	}
	return "." + string(f)
}

// Render writes one report in the given format.
func Render(w io.Writer, r *Report, format Format) error {
	switch format {
	case FormatText, "":
		return WriteText(w, r)
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatXML:
		return WriteXML(w, r)
	case FormatXLSX:
		return WriteXLSX(w, r)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// RenderAll writes several reports in the given format.
// Text output separates the reports with a blank line; JSON output is an
// array; XML output wraps them in one root; XLSX output prefixes sheet rows
// with the source file.
func RenderAll(w io.Writer, reports []*Report, format Format) error {
	switch format {
	case FormatText, "":
		for i, r := range reports {
			if i > 0 {
				if _, err := io.WriteString(w, "\n"); err != nil {
					return err
				}
			}
			if err := WriteText(w, r); err != nil {
				return err
			}
		}
		return nil
	case FormatJSON:
		return writeJSONValue(w, reports)
	case FormatXML:
		return WriteXMLAll(w, reports)
	case FormatXLSX:
		return WriteXLSXAll(w, reports)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	return writeJSONValue(w, r)
}

func writeJSONValue(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	return nil
}
