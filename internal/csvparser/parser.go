// =============================================================================
// navaudit - Record Parser
// =============================================================================
//
// This module turns raw text lines into classified results. Every line of an
// input file produces exactly one LineResult:
//
//   - Blank      : empty after trimming, skipped silently
//   - GroupLabel : no delimiter and contains a group marker ("Mutual Fund")
//   - Section    : no delimiter, no group marker (AMFI category lines)
//   - Header     : first field equals the header sentinel ("Scheme Code")
//   - Record     : a delimited data line
//   - Malformed  : invalid UTF-8, a NUL byte or an unsplittable line; the
//                  scan continues
//
// The caller consumes results in a uniform loop. A single bad line never
// aborts a scan.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// byteOrderMarks maps the encodings of U+FEFF to their encoding names.
// UTF-16 input is not decoded; the marker is only named in the BOM issue.
var byteOrderMarks = []struct {
	encoding string
	mark     []byte
}{
	{"UTF-8", []byte{0xEF, 0xBB, 0xBF}},
	{"UTF-16LE", []byte{0xFF, 0xFE}},
	{"UTF-16BE", []byte{0xFE, 0xFF}},
}

// ErrInvalidEncoding is reported for lines that are not valid UTF-8 text.
var ErrInvalidEncoding = errors.New("line is not valid UTF-8 text")

// =============================================================================
// LINE CLASSIFICATION
// =============================================================================

// LineKind classifies a single input line.
type LineKind int

const (
	LineBlank LineKind = iota
	LineGroupLabel
	LineSection
	LineHeader
	LineRecord
	LineMalformed
)

func (k LineKind) String() string {
	switch k {
	case LineBlank:
		return "blank"
	case LineGroupLabel:
		return "group-label"
	case LineSection:
		return "section"
	case LineHeader:
		return "header"
	case LineRecord:
		return "record"
	case LineMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("LineKind(%d)", int(k))
	}
}

// LineResult is the outcome of parsing one line.
type LineResult struct {
	Kind LineKind

	// Line is the 1-based line number.
	Line int

	// Text is the trimmed line.
	Text string

	// Label is set for GroupLabel and Section lines.
	Label string

	// Fields is set for Header and Record lines.
	Fields []string

	// Err is set for Malformed lines.
	Err error
}

// =============================================================================
// PARSER
// =============================================================================

// Options configures a Parser.
type Options struct {
	// Delimiter is the field separator. Accepts a single character or one of
	// the names "tab", "pipe", "semicolon", "comma".
	Delimiter string

	// Quoted enables RFC 4180 quoting when splitting fields.
	Quoted bool

	// GroupMarkers are tokens that identify group label lines.
	GroupMarkers []string

	// SectionLines makes non-delimited lines without a group marker section
	// headers. When false such lines are single-field records.
	SectionLines bool

	// HeaderSentinel is the first-field value that marks a header line.
	// Compared case-insensitively. Empty disables header detection.
	HeaderSentinel string
}

// Parser splits and classifies lines. It holds no per-run state and can be
// shared between runs.
type Parser struct {
	delim          rune
	quoted         bool
	groupMarkers   []string
	sectionLines   bool
	headerSentinel string
}

// New creates a Parser from the given options.
func New(opts Options) (*Parser, error) {
	delim, err := ParseDelimiter(opts.Delimiter)
	if err != nil {
		return nil, err
	}

	return &Parser{
		delim:          delim,
		quoted:         opts.Quoted,
		groupMarkers:   opts.GroupMarkers,
		sectionLines:   opts.SectionLines,
		headerSentinel: strings.TrimSpace(opts.HeaderSentinel),
	}, nil
}

// ParseDelimiter resolves a delimiter setting to a rune.
// Handles the common names the same way the configuration files spell them.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "\\t", "\t", "tab", "TAB":
		return '\t', nil
	case "|", "pipe", "PIPE":
		return '|', nil
	case ";", "semicolon", "SEMICOLON":
		return ';', nil
	case ",", "comma", "COMMA", "":
		return ',', nil
	}

	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size != len(s) {
		return 0, fmt.Errorf("invalid delimiter %q: must be a single character", s)
	}
	if r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r, nil
}

// Delimiter returns the rune the parser splits on.
func (p *Parser) Delimiter() rune {
	return p.delim
}

// Parse classifies one raw line.
func (p *Parser) Parse(lineNo int, raw string) LineResult {
	text := strings.TrimSpace(raw)
	result := LineResult{Line: lineNo, Text: text}

	if text == "" {
		result.Kind = LineBlank
		return result
	}

	if !utf8.ValidString(text) || strings.ContainsRune(text, 0) {
		result.Kind = LineMalformed
		result.Err = ErrInvalidEncoding
		return result
	}

	if !strings.ContainsRune(text, p.delim) {
		if p.isGroupLabel(text) {
			result.Kind = LineGroupLabel
			result.Label = text
			return result
		}
		if p.sectionLines {
			result.Kind = LineSection
			result.Label = text
			return result
		}
	}

	fields, err := p.Split(text)
	if err != nil {
		result.Kind = LineMalformed
		result.Err = err
		return result
	}
	result.Fields = fields

	if p.headerSentinel != "" && strings.EqualFold(fields[0], p.headerSentinel) {
		result.Kind = LineHeader
		return result
	}

	result.Kind = LineRecord
	return result
}

// Split breaks a line into trimmed fields.
// A trailing delimiter yields a trailing empty field; the count is never
// adjusted.
func (p *Parser) Split(text string) ([]string, error) {
	var fields []string

	if p.quoted {
		reader := csv.NewReader(strings.NewReader(text))
		reader.Comma = p.delim
		reader.FieldsPerRecord = -1
		reader.TrimLeadingSpace = true
		reader.LazyQuotes = true

		record, err := reader.Read()
		if err != nil {
			return nil, fmt.Errorf("failed to split line: %w", err)
		}
		fields = record
	} else {
		fields = strings.Split(text, string(p.delim))
	}

	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields, nil
}

func (p *Parser) isGroupLabel(text string) bool {
	for _, marker := range p.groupMarkers {
		if marker != "" && strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// =============================================================================
// STREAMING LINE SCANNER
// =============================================================================

// LineScanner reads a file one line at a time without a line-length limit.
//
// USAGE:
//
//	scanner := NewLineScanner(file)
//	for scanner.Next() {
//	    result := parser.Parse(scanner.Line(), scanner.Text())
//	    // ...
//	}
//	if err := scanner.Err(); err != nil {
//	    return err
//	}
type LineScanner struct {
	reader *bufio.Reader
	line   int
	text   string
	bom    string
	done   bool
	err    error
}

// NewLineScanner wraps r in a buffered line reader.
func NewLineScanner(r io.Reader) *LineScanner {
	return &LineScanner{reader: bufio.NewReaderSize(r, 64*1024)}
}

// Next advances to the next line. It returns false at end of input or on a
// read error.
func (s *LineScanner) Next() bool {
	if s.done {
		return false
	}

	text, err := s.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		s.err = fmt.Errorf("error reading line %d: %w", s.line+1, err)
		s.done = true
		return false
	}
	if err == io.EOF {
		s.done = true
		if text == "" {
			return false
		}
	}

	s.line++
	text = strings.TrimSuffix(text, "\n")
	text = strings.TrimSuffix(text, "\r")

	if s.line == 1 {
		if encoding, size := DetectBOM([]byte(text)); size > 0 {
			s.bom = encoding
			text = text[size:]
		}
	}

	s.text = text
	return true
}

// Text returns the current line without its line terminator.
func (s *LineScanner) Text() string {
	return s.text
}

// Line returns the current 1-based line number.
func (s *LineScanner) Line() int {
	return s.line
}

// BOM returns the encoding named by the byte-order marker on the first line,
// or "" when there was none. The marker is stripped from the text returned
// by Text.
func (s *LineScanner) BOM() string {
	return s.bom
}

// Err returns the first read error, if any.
func (s *LineScanner) Err() error {
	return s.err
}

// DetectBOM returns the encoding and length of the byte-order marker that
// content begins with. The length is 0 when there is none.
func DetectBOM(content []byte) (string, int) {
	for _, bom := range byteOrderMarks {
		if bytes.HasPrefix(content, bom.mark) {
			return bom.encoding, len(bom.mark)
		}
	}
	return "", 0
}
