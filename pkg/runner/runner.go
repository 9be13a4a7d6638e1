// Package runner executes one encode job as an isolated child process
// with an enforced deadline.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/psantana5/encbench/pkg/encoder"
	"github.com/psantana5/encbench/pkg/logging"
	"github.com/psantana5/encbench/pkg/models"
)

// stderrTailBytes bounds the diagnostic text attached to failed jobs
const stderrTailBytes = 4096

// Resolver maps an encoder id to its invocation profile
type Resolver interface {
	Resolve(id string) (*encoder.Profile, error)
}

// Runner spawns encoder processes and classifies their outcomes
type Runner struct {
	registry Resolver
	timeout  time.Duration
	log      *logging.Logger
}

// New creates a runner. A timeout of zero means no per-job deadline.
func New(registry Resolver, timeout time.Duration, log *logging.Logger) *Runner {
	return &Runner{
		registry: registry,
		timeout:  timeout,
		log:      log,
	}
}

// procResult classifies one finished child process
type procResult struct {
	duration time.Duration
	err      error // non-nil on spawn failure or non-zero exit
	killed   error // ctx.Err() when the process group was terminated
}

// Run executes one job spec to completion and returns its result.
// The reported duration spans the entire encoder process lifetime,
// startup overhead included; that is part of the metric's semantics.
// Encoders whose bitstream the measurement pipeline cannot read get a
// post-encode decode pass under the same deadline; its intermediate is
// recorded as the result's MeasurePath.
//
// Run never returns an error: every failure mode is folded into the
// result's outcome tag so the batch can continue.
func (r *Runner) Run(ctx context.Context, spec models.JobSpec) models.JobResult {
	res := models.JobResult{Spec: spec}

	profile, err := r.registry.Resolve(spec.Encoder)
	if err != nil {
		res.Outcome = models.OutcomeEncodeFailed
		res.Error = err.Error()
		return res
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	args := profile.BuildArgs(spec.Input, spec.Output, spec.Quality, spec.Passthrough)
	r.log.Debug("spawning encoder", map[string]interface{}{
		"exe":  profile.Exe,
		"args": strings.Join(args, " "),
	})

	pr := r.spawn(ctx, profile.Exe, args)
	res.Duration = pr.duration

	switch {
	case errors.Is(pr.killed, context.DeadlineExceeded):
		res.Outcome = models.OutcomeTimedOut
		res.Error = fmt.Sprintf("killed after %s: %v", res.Duration.Round(time.Millisecond), pr.killed)
		r.log.Warn("encode timed out", map[string]interface{}{
			"input":   spec.Input,
			"quality": spec.Quality,
		})
		return res
	case pr.killed != nil:
		// Batch-level cancellation, not a per-job deadline
		res.Outcome = models.OutcomeEncodeFailed
		res.Error = fmt.Sprintf("cancelled after %s: %v", res.Duration.Round(time.Millisecond), pr.killed)
		return res
	case pr.err != nil:
		res.Outcome = models.OutcomeEncodeFailed
		res.Error = pr.err.Error()
		return res
	}

	// Zero exit is necessary but not sufficient: the artifact must exist
	info, err := os.Stat(spec.Output)
	if err != nil {
		res.Outcome = models.OutcomeEncodeFailed
		res.Error = fmt.Sprintf("%s exited 0 but artifact missing: %v", profile.Exe, err)
		return res
	}

	res.Outcome = models.OutcomeSuccess
	res.Size = info.Size()
	res.MeasurePath = spec.Output

	if profile.NeedsDecode() {
		decoded := profile.DecodedPath(spec.Output)
		dec := r.spawn(ctx, profile.Exe, profile.BuildDecodeArgs(spec.Output, decoded))
		if dec.killed != nil || dec.err != nil {
			// Encode stands; only quality measurement is lost. Decode
			// time is not part of the encode duration.
			res.Outcome = models.OutcomeMetricsFailed
			if dec.killed != nil {
				res.Error = fmt.Sprintf("decode for measurement killed: %v", dec.killed)
			} else {
				res.Error = fmt.Sprintf("decode for measurement failed: %v", dec.err)
			}
			r.log.Warn("artifact decode failed", map[string]interface{}{
				"input":   spec.Input,
				"quality": spec.Quality,
				"error":   res.Error,
			})
			return res
		}
		res.MeasurePath = decoded
	}

	return res
}

// spawn runs exe in its own process group, killing the whole group when
// ctx ends so the child's own pipeline (muxers, pipes) dies with it.
func (r *Runner) spawn(ctx context.Context, exe string, args []string) procResult {
	cmd := exec.Command(exe, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return procResult{err: fmt.Errorf("failed to start %s: %v", exe, err)}
	}
	pid := cmd.Process.Pid

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		syscall.Kill(-pid, syscall.SIGKILL)
		<-done
		return procResult{duration: time.Since(start), killed: ctx.Err()}
	case err := <-done:
		pr := procResult{duration: time.Since(start)}
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				pr.err = fmt.Errorf("%s exited %d: %s", exe, exitErr.ExitCode(), tail(stderr.Bytes()))
			} else {
				pr.err = err
			}
		}
		return pr
	}
}

// tail returns the last stderrTailBytes of captured diagnostics
func tail(b []byte) string {
	if len(b) > stderrTailBytes {
		b = b[len(b)-stderrTailBytes:]
	}
	return strings.TrimSpace(string(b))
}
