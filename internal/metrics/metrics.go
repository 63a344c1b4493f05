// Package metrics exports audit results as Prometheus metrics.
//
// The auditor is a batch tool, so metrics are not scraped over HTTP. They are
// written to a node-exporter textfile after each run instead.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ginjaninja78/navaudit/internal/report"
	"github.com/ginjaninja78/navaudit/internal/types"
)

// Recorder holds the audit metrics in a private registry.
// It is safe for concurrent use by batch workers.
type Recorder struct {
	registry *prometheus.Registry

	records    *prometheus.GaugeVec
	duplicates *prometheus.GaugeVec
	issues     *prometheus.GaugeVec
	lastRun    *prometheus.GaugeVec
	runs       *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// New creates a Recorder whose metric names start with namespace.
func New(namespace string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_scanned",
			Help:      "Records scanned in the last audit of a file.",
		}, []string{"source", "kind"}),
		duplicates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "duplicate_entries",
			Help:      "Records beyond the first per duplicate key in the last audit of a file.",
		}, []string{"source", "kind"}),
		issues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "issues",
			Help:      "Issues found in the last audit of a file, by issue kind.",
		}, []string{"source", "kind", "issue"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last audit of a file.",
		}, []string{"source", "kind"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Audit runs by outcome.",
		}, []string{"kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Audit run duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}

	r.registry.MustRegister(r.records, r.duplicates, r.issues, r.lastRun, r.runs, r.duration)
	return r
}

// Observe records the outcome of one completed run.
// A run whose report holds error-severity issues counts as "issues",
// otherwise as "clean".
func (r *Recorder) Observe(rep *report.Report, elapsed time.Duration) {
	kind := string(rep.Kind)

	r.records.WithLabelValues(rep.Source, kind).Set(float64(rep.TotalRecords))
	r.duplicates.WithLabelValues(rep.Source, kind).Set(float64(rep.DuplicateEntries))

	for _, issueKind := range types.IssueKinds {
		r.issues.WithLabelValues(rep.Source, kind, string(issueKind)).Set(float64(len(rep.IssuesOf(issueKind))))
	}

	r.lastRun.WithLabelValues(rep.Source, kind).SetToCurrentTime()
	r.duration.WithLabelValues(kind).Observe(elapsed.Seconds())

	outcome := "clean"
	if rep.HasErrors() {
		outcome = "issues"
	}
	r.runs.WithLabelValues(kind, outcome).Inc()
}

// ObserveFailure records a run that ended with an I/O error.
func (r *Recorder) ObserveFailure(kind report.Kind) {
	r.runs.WithLabelValues(string(kind), "failed").Inc()
}

// WriteTextfile writes every metric in the text exposition format.
// The file is written atomically, as the node-exporter textfile collector
// expects.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
