package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, content, 0644))
}

func TestDiscoverFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "amfi.txt"), []byte("x"))
	writeFile(t, filepath.Join(dir, "2025", "01", "transactions.csv"), []byte("x"))
	writeFile(t, filepath.Join(dir, "2025", "notes.md"), []byte("x"))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "dir.csv"), 0755))

	fm := NewFileManager(dir, t.TempDir())

	files, err := fm.DiscoverFiles("**/*.csv", "**/*amfi*.txt", "*.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "2025", "01", "transactions.csv"),
		filepath.Join(dir, "amfi.txt"),
	}, files)
}

func TestDiscoverFilesSkipsOutputDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "amfi.txt"), []byte("x"))
	writeFile(t, filepath.Join(dir, "reports", "nav_20250608_101500_1a2b3c4d.txt"), []byte("x"))
	writeFile(t, filepath.Join(dir, "reports-old", "nav_0608.txt"), []byte("x"))

	fm := NewFileManager(dir, filepath.Join(dir, "reports"))
	files, err := fm.DiscoverFiles("**/*amfi*.txt", "**/*nav*.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "amfi.txt"),
		filepath.Join(dir, "reports-old", "nav_0608.txt"),
	}, files)
}

func TestIsWithin(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, isWithin(dir, filepath.Join(dir, "a.txt")))
	assert.True(t, isWithin(dir, filepath.Join(dir, "sub", "a.txt")))
	assert.False(t, isWithin(dir, filepath.Join(filepath.Dir(dir), "a.txt")))
	assert.False(t, isWithin(filepath.Join(dir, "reports"), filepath.Join(dir, "reports-old", "a.txt")))
}

func TestDiscoverFilesBadPattern(t *testing.T) {
	fm := NewFileManager(t.TempDir(), t.TempDir())
	_, err := fm.DiscoverFiles("[")
	assert.Error(t, err)
}

func TestDetectContentType(t *testing.T) {
	dir := t.TempDir()

	text := filepath.Join(dir, "amfi.txt")
	writeFile(t, text, []byte("Scheme Code;ISIN;ISIN;Scheme Name;Net Asset Value;Date\n100;a;b;c;1.0;01-Jan-2025\n"))
	_, ok, err := DetectContentType(text)
	require.NoError(t, err)
	assert.True(t, ok)

	binary := filepath.Join(dir, "archive.txt")
	writeFile(t, binary, []byte("PK\x03\x04\x14\x00\x00\x00\x08\x00binarybinary"))
	mime, ok, err := DetectContentType(binary)
	require.NoError(t, err)
	assert.False(t, ok, mime)

	_, _, err = DetectContentType(filepath.Join(dir, "missing"))
	assert.True(t, os.IsNotExist(err))
}

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("{kind}_{date}_{uuid}", map[string]string{"kind": "nav"}, ".json")

	assert.True(t, strings.HasPrefix(name, "nav_"+time.Now().Format("20060102")+"_"))
	assert.True(t, strings.HasSuffix(name, ".json"))
	assert.NotContains(t, name, "{")

	assert.Equal(t, "report.xml", GenerateOutputFileName("report.xml", nil, ".xml"))
	assert.NotEqual(t,
		GenerateOutputFileName("{uuid}", nil, ""),
		GenerateOutputFileName("{uuid}", nil, ""))
}

func TestFileExistsAndResolve(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	writeFile(t, path, []byte("x"))

	assert.True(t, FileExists(path))
	assert.False(t, FileExists(dir))
	assert.False(t, FileExists(filepath.Join(dir, "b.txt")))

	assert.Equal(t, path, ResolveNextToExecutable(path))
	assert.Equal(t, "", ResolveNextToExecutable(""))

	resolved := ResolveNextToExecutable("surely-not-here.txt")
	assert.True(t, filepath.IsAbs(resolved))
	assert.Equal(t, "surely-not-here.txt", filepath.Base(resolved))
}

func TestWriteSummaryLog(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reports")
	fm := NewFileManager(t.TempDir(), out)

	start := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	summary := BatchSummary{
		RunID:      "run-1",
		StartTime:  start,
		EndTime:    start.Add(2 * time.Second),
		TotalFiles: 2,
		AuditedFiles: []AuditedFileInfo{
			{InputFile: "amfi.txt", Kind: "nav", Records: 10, Issues: 2, Errors: 1},
		},
		FailedFileList: []FailedFileInfo{
			{InputFile: "locked.csv", ErrorMessage: "permission denied"},
		},
	}

	path, err := fm.WriteSummaryLog(summary)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "batch_summary_20250115_100000.txt"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Run ID:         run-1")
	assert.Contains(t, string(content), "Total Records:  10")
	assert.Contains(t, string(content), "Input:        amfi.txt (nav)")
	assert.Contains(t, string(content), "Error: permission denied")

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, summary))
	assert.Equal(t, string(content), buf.String())
}
