// Package metrics exports the counters of the last build in the Prometheus
// text format, for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/jamesainslie/quill/pkg/quill/stats"
)

const namespace = "quill"

// Outcome labels a finished build.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeUpToDate Outcome = "up_to_date"
	OutcomeFailed   Outcome = "failed"
)

var outcomes = []Outcome{OutcomeSuccess, OutcomeUpToDate, OutcomeFailed}

// Exporter holds the build gauges in a private registry.
type Exporter struct {
	reg *prom.Registry

	files     prom.Gauge
	total     prom.Gauge
	bytes     prom.Gauge
	workers   prom.Gauge
	duration  prom.Gauge
	rate      prom.Gauge
	timestamp prom.Gauge
	outcome   *prom.GaugeVec
}

// NewExporter creates an exporter with its gauges registered.
func NewExporter() *Exporter {
	e := &Exporter{
		reg: prom.NewRegistry(),
		files: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "files_parsed",
			Help:      "Files parsed by the last build",
		}),
		total: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "files_queued",
			Help:      "Files selected for parsing by the last build",
		}),
		bytes: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "bytes_read",
			Help:      "Raw bytes read by the last build",
		}),
		workers: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "workers",
			Help:      "Worker pool size of the last build",
		}),
		duration: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Dispatch duration of the last build",
		}),
		rate: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "files_per_second",
			Help:      "Parse rate of the last build",
		}),
		timestamp: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_build_timestamp_seconds",
			Help:      "Unix time the last build finished",
		}),
		outcome: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_build_outcome",
			Help:      "1 for the outcome of the last build, 0 otherwise",
		}, []string{"outcome"}),
	}

	e.reg.MustRegister(e.files, e.total, e.bytes, e.workers, e.duration, e.rate, e.timestamp, e.outcome)
	return e
}

// Registry returns the registry holding the gauges.
func (e *Exporter) Registry() *prom.Registry {
	return e.reg
}

// Observe sets every gauge from a stats snapshot and the build outcome.
func (e *Exporter) Observe(p stats.Progress, outcome Outcome, finished time.Time) {
	e.files.Set(float64(p.Processed))
	e.total.Set(float64(p.Total))
	e.bytes.Set(float64(p.Bytes))
	e.workers.Set(float64(p.Concurrency))
	e.duration.Set(p.Elapsed.Seconds())
	e.rate.Set(p.FilesPerSecond())
	e.timestamp.Set(float64(finished.Unix()))

	for _, o := range outcomes {
		v := 0.0
		if o == outcome {
			v = 1
		}
		e.outcome.WithLabelValues(string(o)).Set(v)
	}
}

// WriteTextfile writes the gauges to path atomically, creating the parent
// directory if needed.
func (e *Exporter) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prom.WriteToTextfile(path, e.reg); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
