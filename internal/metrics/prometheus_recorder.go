package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/mrz1836/crucible/internal/constants"
	"github.com/mrz1836/crucible/internal/domain"
)

const namespace = "crucible"

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	registry        *prom.Registry
	compileDuration *prom.HistogramVec
	compileOutcomes *prom.CounterVec
	runDuration     *prom.HistogramVec
	runOutcomes     *prom.CounterVec
	detections      *prom.CounterVec
}

// NewPrometheusRecorder creates the collectors and registers them on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		registry: reg,
		compileDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "compile_duration_seconds",
			Help:      "Wall-clock duration of compiler invocations",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"toolchain", "mode", "kind"}),
		compileOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "compile_outcomes_total",
			Help:      "Compile attempts by final status",
		}, []string{"toolchain", "mode", "kind", "status"}),
		runDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of test, benchmark and demo runs",
			Buckets:   prom.DefBuckets,
		}, []string{"toolchain", "mode", "kind"}),
		runOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Artifact runs by outcome",
		}, []string{"toolchain", "mode", "kind", "outcome"}),
		detections: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Environment detections by toolchain and result",
		}, []string{"toolchain", "result"}),
	}
	reg.MustRegister(pr.compileDuration, pr.compileOutcomes, pr.runDuration, pr.runOutcomes, pr.detections)
	return pr
}

// Registry returns the registry the collectors live on.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.registry
}

// ObserveCompile implements Recorder.
func (p *PrometheusRecorder) ObserveCompile(job domain.BuildJob, status domain.BuildStatus, d time.Duration) {
	if p == nil {
		return
	}
	labels := []string{string(job.Toolchain), string(job.Mode), string(job.Kind)}
	// Jobs that never reached the compiler carry no meaningful duration.
	if status == domain.BuildSucceeded || status == domain.BuildCompileFailed || status == domain.BuildTimedOut {
		p.compileDuration.WithLabelValues(labels...).Observe(d.Seconds())
	}
	p.compileOutcomes.WithLabelValues(append(labels, string(status))...).Inc()
}

// ObserveRun implements Recorder.
func (p *PrometheusRecorder) ObserveRun(job domain.BuildJob, outcome domain.RunOutcome, d time.Duration) {
	if p == nil {
		return
	}
	labels := []string{string(job.Toolchain), string(job.Mode), string(job.Kind)}
	if outcome != domain.RunNotFound {
		p.runDuration.WithLabelValues(labels...).Observe(d.Seconds())
	}
	p.runOutcomes.WithLabelValues(append(labels, string(outcome))...).Inc()
}

// IncDetection implements Recorder.
func (p *PrometheusRecorder) IncDetection(tc domain.Toolchain, success bool) {
	if p == nil {
		return
	}
	result := "failed"
	if success {
		result = "success"
	}
	p.detections.WithLabelValues(string(tc), result).Inc()
}

// WriteTextfile writes the registry to path in the node-exporter textfile format.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPerm); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prom.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

var _ Recorder = (*PrometheusRecorder)(nil)
