// =============================================================================
// navaudit - File Management Utilities
// =============================================================================
//
// This module provides the file handling around an audit run:
//   - Input file discovery for batch runs (doublestar patterns)
//   - Content sniffing so binary files are flagged before parsing
//   - Output file naming and report file writing
//   - Batch summary logs
//
// Input files are never moved, renamed or modified.
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// sniffSize is the number of leading bytes used for content detection.
const sniffSize = 3072

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager locates input files and places output files.
type FileManager struct {
	// InputDir is the root searched by DiscoverFiles.
	InputDir string

	// OutputDir is where report and summary files are written.
	OutputDir string
}

// NewFileManager creates a FileManager.
func NewFileManager(inputDir, outputDir string) *FileManager {
	return &FileManager{
		InputDir:  inputDir,
		OutputDir: outputDir,
	}
}

// EnsureOutputDir creates the output directory if needed.
func (fm *FileManager) EnsureOutputDir() error {
	if err := os.MkdirAll(fm.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", fm.OutputDir, err)
	}
	return nil
}

// DiscoverFiles returns the regular files under InputDir matching any of the
// doublestar patterns ("**/*.csv"), sorted and without duplicates. Files
// inside OutputDir are skipped so earlier reports are never audited.
func (fm *FileManager) DiscoverFiles(patterns ...string) ([]string, error) {
	fsys := os.DirFS(fm.InputDir)

	outputDir := ""
	if fm.OutputDir != "" {
		abs, err := filepath.Abs(fm.OutputDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve output directory %s: %w", fm.OutputDir, err)
		}
		outputDir = abs
	}

	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("error globbing pattern %s in directory %s: %w", pattern, fm.InputDir, err)
		}

		for _, match := range matches {
			path := filepath.Join(fm.InputDir, filepath.FromSlash(match))
			if outputDir != "" && isWithin(outputDir, path) {
				continue
			}
			files = append(files, path)
		}
	}

	slices.Sort(files)
	return slices.Compact(files), nil
}

// isWithin reports whether path lies inside the absolute directory dir.
func isWithin(dir, path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(dir, abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// =============================================================================
// CONTENT DETECTION
// =============================================================================

// DetectContentType sniffs the MIME type of a file from its leading bytes.
// It reports whether the content is text.
func DetectContentType(path string) (string, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", false, err
	}
	defer file.Close()

	head := make([]byte, sniffSize)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	mtype := mimetype.Detect(head[:n])
	return mtype.String(), isText(mtype), nil
}

// isText walks the MIME hierarchy looking for text/plain.
func isText(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// =============================================================================
// PATHS AND OUTPUT
// =============================================================================

// ResolveNextToExecutable returns path unchanged when it is absolute or
// exists relative to the working directory. Otherwise it is resolved against
// the directory of the running executable.
func ResolveNextToExecutable(path string) string {
	if path == "" || filepath.IsAbs(path) || FileExists(path) {
		return path
	}

	exe, err := os.Executable()
	if err != nil {
		return path
	}
	return filepath.Join(filepath.Dir(exe), path)
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// GenerateOutputFileName expands a file name pattern.
//
// PLACEHOLDERS:
//   - {uuid}      : random UUID
//   - {timestamp} : 20060102_150405
//   - {date}      : 20060102
//   - {time}      : 150405
//   - {<key>}     : any entry of params
//
// ext is appended when the result does not already end with it.
func GenerateOutputFileName(format string, params map[string]string, ext string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}

	return result
}

// CreateOutputFile creates a file in OutputDir for a generated name.
// The caller closes the file.
func (fm *FileManager) CreateOutputFile(name string) (*os.File, string, error) {
	if err := fm.EnsureOutputDir(); err != nil {
		return nil, "", err
	}

	path := filepath.Join(fm.OutputDir, name)
	file, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create output file: %w", err)
	}
	return file, path, nil
}

// =============================================================================
// BATCH SUMMARY
// =============================================================================

// BatchSummary describes one batch run.
type BatchSummary struct {
	RunID          string
	StartTime      time.Time
	EndTime        time.Time
	TotalFiles     int
	AuditedFiles   []AuditedFileInfo
	FailedFileList []FailedFileInfo
}

// AuditedFileInfo describes one file that was audited.
type AuditedFileInfo struct {
	InputFile        string
	Kind             string
	Records          int
	DuplicateEntries int
	Issues           int
	Errors           int
	ProcessTime      time.Duration
}

// FailedFileInfo describes one file whose audit ended with an I/O error.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
}

// WriteSummaryLog writes a batch summary to OutputDir and returns its path.
func (fm *FileManager) WriteSummaryLog(summary BatchSummary) (string, error) {
	name := fmt.Sprintf("batch_summary_%s.txt", summary.StartTime.Format("20060102_150405"))

	file, path, err := fm.CreateOutputFile(name)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := WriteSummary(file, summary); err != nil {
		return "", err
	}
	return path, nil
}

// WriteSummary renders a batch summary.
func WriteSummary(w io.Writer, summary BatchSummary) error {
	writer := bufio.NewWriter(w)

	totalRecords, totalIssues := 0, 0
	for _, f := range summary.AuditedFiles {
		totalRecords += f.Records
		totalIssues += f.Issues
	}

	fmt.Fprintf(writer, "navaudit - Batch Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Total Files:    %d\n"+
		"  Audited:        %d\n"+
		"  Failed:         %d\n"+
		"  Total Records:  %d\n"+
		"  Total Issues:   %d\n\n",
		summary.RunID,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String(),
		summary.TotalFiles,
		len(summary.AuditedFiles),
		len(summary.FailedFileList),
		totalRecords,
		totalIssues)

	if len(summary.AuditedFiles) > 0 {
		writer.WriteString("Audited Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, f := range summary.AuditedFiles {
			fmt.Fprintf(writer, "  Input:        %s (%s)\n", f.InputFile, f.Kind)
			fmt.Fprintf(writer, "  Records:      %d\n", f.Records)
			fmt.Fprintf(writer, "  Duplicates:   %d\n", f.DuplicateEntries)
			fmt.Fprintf(writer, "  Issues:       %d (%d error(s))\n", f.Issues, f.Errors)
			fmt.Fprintf(writer, "  Process Time: %s\n\n", f.ProcessTime.String())
		}
	}

	if len(summary.FailedFileList) > 0 {
		writer.WriteString("Failed Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, f := range summary.FailedFileList {
			fmt.Fprintf(writer, "  File:  %s\n", f.InputFile)
			fmt.Fprintf(writer, "  Error: %s\n\n", f.ErrorMessage)
		}
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
