// Package batch drives a benchmark grid end to end: run each job,
// measure quality on success, aggregate rows, clean up artifacts.
package batch

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/psantana5/encbench/pkg/logging"
	"github.com/psantana5/encbench/pkg/models"
	"github.com/psantana5/encbench/pkg/report"
)

// JobRunner executes a single job spec
type JobRunner interface {
	Run(ctx context.Context, spec models.JobSpec) models.JobResult
}

// MetricsProbe measures an artifact against its reference
type MetricsProbe interface {
	Measure(ctx context.Context, reference, artifact string) (*models.MetricBundle, error)
}

// Orchestrator is the single point enforcing whole-batch fault
// isolation: every per-job failure, panics included, is converted to a
// tagged result row at this boundary and the batch continues.
type Orchestrator struct {
	runner JobRunner
	probe  MetricsProbe
	log    *logging.Logger

	// KeepArtifacts disables the post-metrics artifact deletion
	KeepArtifacts bool
	// Workers bounds concurrent encoder processes; <=1 runs sequentially
	Workers int
	// OnResult, when set, is called once per finished job in completion
	// order (not submission order)
	OnResult func(models.JobResult)
}

// New creates an orchestrator with sequential execution defaults
func New(runner JobRunner, probe MetricsProbe, log *logging.Logger) *Orchestrator {
	return &Orchestrator{
		runner:  runner,
		probe:   probe,
		log:     log,
		Workers: 1,
	}
}

// Run processes every spec and returns one row per spec in submission
// order. Only batch-level cancellation stops processing early; no
// individual job failure does.
func (o *Orchestrator) Run(ctx context.Context, specs []models.JobSpec) []models.JobResult {
	agg := report.NewAggregator()

	if o.Workers <= 1 {
		for _, spec := range specs {
			if ctx.Err() != nil {
				o.log.Warn("batch cancelled", map[string]interface{}{"completed": agg.Count()})
				break
			}
			res := o.runOne(ctx, spec)
			agg.Append(res)
			if o.OnResult != nil {
				o.OnResult(res)
			}
		}
		return agg.Finalize()
	}

	jobs := make(chan models.JobSpec)
	var wg sync.WaitGroup
	for i := 0; i < o.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for spec := range jobs {
				res := o.runOne(ctx, spec)
				agg.Append(res)
				if o.OnResult != nil {
					o.OnResult(res)
				}
			}
		}()
	}

	for _, spec := range specs {
		if ctx.Err() != nil {
			break
		}
		jobs <- spec
	}
	close(jobs)
	wg.Wait()

	return agg.Finalize()
}

// runOne executes a single grid cell: encode, then metrics, then
// artifact cleanup. A panic anywhere below degrades to a failed row.
func (o *Orchestrator) runOne(ctx context.Context, spec models.JobSpec) (res models.JobResult) {
	defer func() {
		if r := recover(); r != nil {
			res = models.JobResult{
				Spec:    spec,
				Outcome: models.OutcomeEncodeFailed,
				Error:   fmt.Sprintf("job panicked: %v", r),
			}
			o.log.Error("job panicked", map[string]interface{}{
				"input":   spec.Input,
				"quality": spec.Quality,
				"panic":   r,
			})
		}
		if !o.KeepArtifacts {
			o.removeArtifact(spec.Output)
			// Decode intermediates live and die with their artifact
			if res.MeasurePath != "" && res.MeasurePath != spec.Output {
				o.removeArtifact(res.MeasurePath)
			}
		}
	}()

	o.log.Info("encoding", map[string]interface{}{
		"input":   spec.Input,
		"encoder": spec.Encoder,
		"quality": spec.Quality,
	})

	res = o.runner.Run(ctx, spec)
	if res.Outcome != models.OutcomeSuccess {
		o.log.Warn("job failed before measurement", map[string]interface{}{
			"input":   spec.Input,
			"quality": spec.Quality,
			"outcome": res.Outcome,
			"error":   res.Error,
		})
		return res
	}

	target := res.MeasurePath
	if target == "" {
		target = spec.Output
	}
	bundle, err := o.probe.Measure(ctx, spec.Input, target)
	// A partial bundle is still data: keep whatever parsed and degrade
	// the outcome, preserving the measured time and size.
	res.Metrics = bundle
	if err != nil {
		res.Outcome = models.OutcomeMetricsFailed
		res.Error = err.Error()
		o.log.Warn("metrics failed", map[string]interface{}{
			"input":   spec.Input,
			"quality": spec.Quality,
			"error":   err.Error(),
		})
		return res
	}

	o.log.Info("job done", map[string]interface{}{
		"input":    spec.Input,
		"quality":  spec.Quality,
		"duration": res.Duration.String(),
		"size":     res.Size,
	})
	return res
}

// removeArtifact deletes an encode output. Deletion failure is logged
// and never escalated; the already-recorded result stands.
func (o *Orchestrator) removeArtifact(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		o.log.Warn("failed to remove artifact", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}
