// Package report collects benchmark records and writes them in the schema
// read by the downstream aggregation and plotting tools.
package report

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mrz1836/crucible/internal/domain"
)

// CSVHeader is the exact column list of the results file.
//
//nolint:gochecknoglobals // fixed schema
var CSVHeader = []string{"Operation", "Type", "Compiler", "Optimization", "Time_ns", "Iterations", "Ops_per_sec", "Timestamp"}

// Record is one timed benchmark run.
type Record struct {
	Operation    string    `json:"Operation"`
	Type         string    `json:"Type"`
	Compiler     string    `json:"Compiler"`
	Optimization string    `json:"Optimization"`
	TimeNs       int64     `json:"Time_ns"`
	Iterations   int64     `json:"Iterations"`
	OpsPerSec    float64   `json:"Ops_per_sec"`
	Timestamp    time.Time `json:"Timestamp"`
}

// NewRecord describes one wall-clock run of a benchmark artifact.
func NewRecord(job domain.BuildJob, elapsed time.Duration, at time.Time) Record {
	r := Record{
		Operation:    job.Feature,
		Type:         string(job.Type),
		Compiler:     string(job.Toolchain),
		Optimization: string(job.Mode),
		TimeNs:       elapsed.Nanoseconds(),
		Iterations:   1,
		Timestamp:    at.UTC(),
	}
	if r.TimeNs > 0 {
		r.OpsPerSec = float64(r.Iterations) * float64(time.Second) / float64(r.TimeNs)
	}
	return r
}

// Sink receives records as runs complete.
type Sink interface {
	Add(r Record)
}

// Collector is a concurrency-safe, insertion-ordered Sink.
type Collector struct {
	mu      sync.Mutex
	runID   string
	records []Record
}

// NewCollector returns an empty collector tagged with a fresh run ID.
func NewCollector() *Collector {
	return &Collector{runID: uuid.NewString()}
}

// RunID identifies this invocation in written files and logs.
func (c *Collector) RunID() string {
	return c.runID
}

// Add appends r.
func (c *Collector) Add(r Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, r)
}

// Records returns a copy of the records in insertion order.
func (c *Collector) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Len returns the number of records.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

var _ Sink = (*Collector)(nil)
