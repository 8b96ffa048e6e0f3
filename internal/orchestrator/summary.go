package orchestrator

import (
	"fmt"

	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/errors"
)

// Entry is everything that happened to one job.
type Entry struct {
	Job   domain.BuildJob     `json:"job"`
	Build domain.BuildOutcome `json:"build"`
	Runs  []domain.RunResult  `json:"runs,omitempty"`
}

// OK reports whether the job built and every run passed.
func (e Entry) OK() bool {
	if !e.Build.Success {
		return false
	}
	for _, r := range e.Runs {
		if !r.Passed() {
			return false
		}
	}
	return true
}

// Summary aggregates a pass over the matrix.
type Summary struct {
	Entries     []Entry `json:"entries"`
	Built       int     `json:"built"`
	BuildFailed int     `json:"build_failed"`
	Passed      int     `json:"runs_passed"`
	Failed      int     `json:"runs_failed"`
}

func newSummary(entries []Entry) Summary {
	s := Summary{Entries: entries}
	for _, e := range entries {
		if e.Build.Success {
			s.Built++
		} else {
			s.BuildFailed++
		}
		for _, r := range e.Runs {
			if r.Passed() {
				s.Passed++
			} else {
				s.Failed++
			}
		}
	}
	return s
}

// OK reports whether every job succeeded. An empty summary is not OK.
func (s Summary) OK() bool {
	if len(s.Entries) == 0 {
		return false
	}
	for _, e := range s.Entries {
		if !e.OK() {
			return false
		}
	}
	return true
}

// Err returns ErrJobsFailed with counts when any job failed, else nil.
func (s Summary) Err() error {
	if s.OK() {
		return nil
	}
	if len(s.Entries) == 0 {
		return errors.ErrNoCombinations
	}
	return fmt.Errorf("%d of %d builds failed, %d of %d runs failed: %w",
		s.BuildFailed, len(s.Entries), s.Failed, s.Passed+s.Failed, errors.ErrJobsFailed)
}

// Merge appends other's entries and counts to s.
func (s Summary) Merge(other Summary) Summary {
	return newSummary(append(append([]Entry{}, s.Entries...), other.Entries...))
}
