// =============================================================================
// navaudit - XML Report Writer
// =============================================================================
//
// Renders reports as indented XML:
//
//	<?xml version="1.0" encoding="UTF-8"?>
//	<auditReport source="amfi.txt" kind="nav">
//	  <summary>
//	    <totalRecords>4</totalRecords>
//	    ...
//	  </summary>
//	  <targets>
//	    <target value="15-Jan-2025" matches="3">
//	      <group name="AMC One Mutual Fund" count="2"/>
//	    </target>
//	  </targets>
//	  <duplicates>
//	    <duplicate key="100|15-Jan-2025" count="2">
//	      <member line="3" group="AMC One Mutual Fund">
//	        <field n="0">100</field>
//	      </member>
//	    </duplicate>
//	  </duplicates>
//	  <issues>
//	    <issueGroup kind="DuplicateKey" count="1">
//	      <issue severity="error" line="3">...</issue>
//	    </issueGroup>
//	  </issues>
//	</auditReport>
//
// The document is written by hand instead of through encoding/xml marshalling
// so element order and self-closing tags stay stable.
//
// =============================================================================

package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// XMLOptions controls XML output.
type XMLOptions struct {
	// Indent is the string used for each indentation level.
	// Default: "  " (2 spaces)
	Indent string

	// IncludeXMLDeclaration adds the <?xml ...?> declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// XMLVersion is the version in the declaration.
	// Default: "1.0"
	XMLVersion string

	// Encoding is the encoding in the declaration.
	// Default: "UTF-8"
	Encoding string
}

// DefaultXMLOptions returns the default XML options.
func DefaultXMLOptions() XMLOptions {
	return XMLOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		XMLVersion:            "1.0",
		Encoding:              "UTF-8",
	}
}

// xmlAttr is a name/value attribute pair.
type xmlAttr struct {
	Name  string
	Value string
}

// xmlElement is a node in the output document.
type xmlElement struct {
	Name       string
	Attributes []xmlAttr
	Value      string
	Children   []xmlElement
}

// WriteXML writes one report with the default options.
func WriteXML(w io.Writer, r *Report) error {
	return WriteXMLWithOptions(w, []*Report{r}, false, DefaultXMLOptions())
}

// WriteXMLAll writes several reports under an <auditReports> root.
func WriteXMLAll(w io.Writer, reports []*Report) error {
	return WriteXMLWithOptions(w, reports, true, DefaultXMLOptions())
}

// WriteXMLWithOptions writes reports as XML. With wrap set, the reports are
// nested under an <auditReports> root; otherwise exactly one report is
// expected.
func WriteXMLWithOptions(w io.Writer, reports []*Report, wrap bool, options XMLOptions) error {
	if !wrap && len(reports) != 1 {
		return fmt.Errorf("expected exactly one report, got %d", len(reports))
	}

	var buffer bytes.Buffer

	if options.IncludeXMLDeclaration {
		buffer.WriteString(fmt.Sprintf("<?xml version=\"%s\" encoding=\"%s\"?>\n",
			options.XMLVersion, options.Encoding))
	}

	if wrap {
		root := xmlElement{
			Name:       "auditReports",
			Attributes: []xmlAttr{{"count", strconv.Itoa(len(reports))}},
		}
		for _, r := range reports {
			root.Children = append(root.Children, buildReportElement(r))
		}
		writeElement(&buffer, root, options.Indent, 0)
	} else {
		writeElement(&buffer, buildReportElement(reports[0]), options.Indent, 0)
	}

	if _, err := w.Write(buffer.Bytes()); err != nil {
		return fmt.Errorf("failed to write XML report: %w", err)
	}
	return nil
}

// =============================================================================
// DOCUMENT CONSTRUCTION
// =============================================================================

func buildReportElement(r *Report) xmlElement {
	root := xmlElement{
		Name: "auditReport",
		Attributes: []xmlAttr{
			{"source", r.Source},
			{"kind", string(r.Kind)},
		},
	}

	root.Children = append(root.Children, xmlElement{
		Name: "summary",
		Children: []xmlElement{
			createSimpleElement("totalRecords", strconv.Itoa(r.TotalRecords)),
			createSimpleElement("uniqueKeys", strconv.Itoa(r.UniqueKeys)),
			createSimpleElement("uniqueSchemes", strconv.Itoa(r.UniqueSchemes)),
			createSimpleElement("duplicateEntries", strconv.Itoa(r.DuplicateEntries)),
			createSimpleElement("issueCount", strconv.Itoa(r.IssueCount())),
			createSimpleElement("errorCount", strconv.Itoa(r.ErrorCount())),
		},
	})

	if len(r.Targets) > 0 {
		targets := xmlElement{Name: "targets"}
		for _, t := range r.Targets {
			target := xmlElement{
				Name: "target",
				Attributes: []xmlAttr{
					{"value", t.Target},
					{"matches", strconv.Itoa(t.Matches)},
				},
			}
			for _, g := range t.Groups {
				target.Children = append(target.Children, xmlElement{
					Name:       "group",
					Attributes: []xmlAttr{{"name", g.Group}, {"count", strconv.Itoa(g.Count)}},
				})
			}
			targets.Children = append(targets.Children, target)
		}
		root.Children = append(root.Children, targets)
	}

	duplicates := xmlElement{Name: "duplicates"}
	for _, d := range r.Duplicates {
		dup := xmlElement{
			Name: "duplicate",
			Attributes: []xmlAttr{
				{"key", strings.Join(d.Key, "|")},
				{"count", strconv.Itoa(d.Count)},
			},
		}
		for _, m := range d.Members {
			dup.Children = append(dup.Children, buildMemberElement(m))
		}
		duplicates.Children = append(duplicates.Children, dup)
	}
	root.Children = append(root.Children, duplicates)

	issues := xmlElement{Name: "issues"}
	for _, g := range r.Issues {
		group := xmlElement{
			Name: "issueGroup",
			Attributes: []xmlAttr{
				{"kind", string(g.Kind)},
				{"count", strconv.Itoa(len(g.Issues))},
			},
		}
		for _, issue := range g.Issues {
			el := xmlElement{
				Name:       "issue",
				Attributes: []xmlAttr{{"severity", string(issue.Severity)}},
			}
			if issue.Line > 0 {
				el.Attributes = append(el.Attributes, xmlAttr{"line", strconv.Itoa(issue.Line)})
			}
			if issue.Field != "" {
				el.Attributes = append(el.Attributes, xmlAttr{"field", issue.Field})
			}
			el.Children = append(el.Children, createSimpleElement("detail", issue.Detail))
			if issue.Value != "" {
				el.Children = append(el.Children, createSimpleElement("value", issue.Value))
			}
			group.Children = append(group.Children, el)
		}
		issues.Children = append(issues.Children, group)
	}
	root.Children = append(root.Children, issues)

	return root
}

func buildMemberElement(m Member) xmlElement {
	el := xmlElement{
		Name:       "member",
		Attributes: []xmlAttr{{"line", strconv.Itoa(m.Line)}},
	}
	if m.Group != "" {
		el.Attributes = append(el.Attributes, xmlAttr{"group", m.Group})
	}
	if m.Section != "" {
		el.Attributes = append(el.Attributes, xmlAttr{"section", m.Section})
	}
	for i, f := range m.Fields {
		field := createSimpleElement("field", f)
		field.Attributes = []xmlAttr{{"n", strconv.Itoa(i)}}
		el.Children = append(el.Children, field)
	}
	return el
}

// =============================================================================
// XML SERIALIZATION
// =============================================================================

// createSimpleElement creates an element with a text value and no children.
func createSimpleElement(name, value string) xmlElement {
	return xmlElement{Name: name, Value: value}
}

// writeElement writes an element and its children at the given depth.
// Empty elements are self-closed.
func writeElement(buffer *bytes.Buffer, element xmlElement, indent string, level int) {
	for i := 0; i < level; i++ {
		buffer.WriteString(indent)
	}

	buffer.WriteString("<")
	buffer.WriteString(element.Name)

	for _, attr := range element.Attributes {
		buffer.WriteString(fmt.Sprintf(" %s=\"%s\"", attr.Name, escapeXML(attr.Value)))
	}

	if len(element.Children) == 0 && element.Value == "" {
		buffer.WriteString("/>\n")
		return
	}

	buffer.WriteString(">")

	if element.Value != "" {
		buffer.WriteString(escapeXML(element.Value))
	} else {
		buffer.WriteString("\n")

		for _, child := range element.Children {
			writeElement(buffer, child, indent, level+1)
		}

		for i := 0; i < level; i++ {
			buffer.WriteString(indent)
		}
	}

	buffer.WriteString("</")
	buffer.WriteString(element.Name)
	buffer.WriteString(">\n")
}

// escapeXML escapes the five predefined XML entities and replaces characters
// XML 1.0 does not allow (NUL, most C0 controls, invalid UTF-8) with U+FFFD.
func escapeXML(s string) string {
	var buffer bytes.Buffer

	for _, r := range s {
		switch r {
		case '&':
			buffer.WriteString("&amp;")
		case '<':
			buffer.WriteString("&lt;")
		case '>':
			buffer.WriteString("&gt;")
		case '"':
			buffer.WriteString("&quot;")
		case '\'':
			buffer.WriteString("&apos;")
		default:
			if !isXMLChar(r) {
				r = '\uFFFD'
			}
			buffer.WriteRune(r)
		}
	}

	return buffer.String()
}

// isXMLChar reports whether r is in the XML 1.0 Char production.
func isXMLChar(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}
