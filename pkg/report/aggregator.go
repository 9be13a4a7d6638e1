// Package report collects per-job results into an ordered table and
// serializes it.
package report

import (
	"sort"
	"sync"

	"github.com/psantana5/encbench/pkg/models"
)

// Aggregator is the single shared sink for job results. Appends are
// lock-protected so a worker pool can feed it concurrently; Finalize
// restores grid submission order whatever order jobs finished in.
type Aggregator struct {
	mu      sync.Mutex
	results []models.JobResult
}

// NewAggregator creates an empty aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Append records one job result. Failed jobs append like successful
// ones; the output grid is never shorter than the input grid.
func (a *Aggregator) Append(res models.JobResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, res)
}

// Count returns the number of results recorded so far
func (a *Aggregator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.results)
}

// Finalize returns all results sorted back to submission order
func (a *Aggregator) Finalize() []models.JobResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.JobResult, len(a.results))
	copy(out, a.results)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Spec.Index < out[j].Spec.Index
	})
	return out
}
