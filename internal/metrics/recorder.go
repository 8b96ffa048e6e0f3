// Package metrics records compile, run and detection counts.
//
// Components take a Recorder and default to NoopRecorder. When a textfile
// path is configured the CLI swaps in a PrometheusRecorder and writes its
// registry in node-exporter textfile format after each command.
package metrics

import (
	"time"

	"github.com/mrz1836/crucible/internal/domain"
)

// Recorder receives observations. Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveCompile(job domain.BuildJob, status domain.BuildStatus, d time.Duration)
	ObserveRun(job domain.BuildJob, outcome domain.RunOutcome, d time.Duration)
	IncDetection(tc domain.Toolchain, success bool)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) ObserveCompile(domain.BuildJob, domain.BuildStatus, time.Duration) {}
func (NoopRecorder) ObserveRun(domain.BuildJob, domain.RunOutcome, time.Duration)      {}
func (NoopRecorder) IncDetection(domain.Toolchain, bool)                               {}

var _ Recorder = NoopRecorder{}
