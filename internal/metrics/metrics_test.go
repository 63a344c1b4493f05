package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/navaudit/internal/report"
	"github.com/ginjaninja78/navaudit/internal/types"
)

func buildReport(t *testing.T) *report.Report {
	t.Helper()

	b := report.NewBuilder("amfi.txt", report.KindNAV)
	for i := 0; i < 5; i++ {
		require.NoError(t, b.CountRecord())
	}
	require.NoError(t, b.AddDuplicate([]string{"100", "15-Jan-2025"}, []types.Record{{Line: 3}, {Line: 4}}))
	require.NoError(t, b.AddIssue(types.NewIssue(types.IssueDuplicateKey, 3, "dup")))
	require.NoError(t, b.AddIssue(types.NewIssue(types.IssueBOMPresent, 1, "bom")))

	r, err := b.Build()
	require.NoError(t, err)
	return r
}

func TestObserve(t *testing.T) {
	rec := New("navaudit")
	rec.Observe(buildReport(t), 250*time.Millisecond)

	assert.Equal(t, 5.0, testutil.ToFloat64(rec.records.WithLabelValues("amfi.txt", "nav")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.duplicates.WithLabelValues("amfi.txt", "nav")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.issues.WithLabelValues("amfi.txt", "nav", "DuplicateKey")))
	assert.Equal(t, 0.0, testutil.ToFloat64(rec.issues.WithLabelValues("amfi.txt", "nav", "MissingFile")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.runs.WithLabelValues("nav", "issues")))

	rec.ObserveFailure(report.KindTransactions)
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.runs.WithLabelValues("transactions", "failed")))
}

func TestWriteTextfile(t *testing.T) {
	rec := New("navaudit")
	rec.Observe(buildReport(t), time.Second)

	path := filepath.Join(t.TempDir(), "navaudit.prom")
	require.NoError(t, rec.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `navaudit_records_scanned{kind="nav",source="amfi.txt"} 5`)
	assert.Contains(t, string(content), "navaudit_run_duration_seconds_bucket")
}

func TestWriteTextfileBadPath(t *testing.T) {
	rec := New("navaudit")
	err := rec.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	assert.Error(t, err)
}
