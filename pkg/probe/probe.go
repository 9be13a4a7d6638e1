// Package probe measures the quality of an encoded artifact against
// its reference by driving an external ffmpeg filter graph and
// scraping scores out of its log output.
//
// The scraping is inherently fragile, so every extraction is fallible:
// format drift in the tool surfaces as a ParseError here and nowhere
// else.
package probe

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/psantana5/encbench/pkg/logging"
	"github.com/psantana5/encbench/pkg/models"
)

// One filter graph computes PSNR, SSIM and XPSNR in a single decode
// pass; three separate invocations would triple the cost.
const metricsFilter = "[0:v][1:v]psnr=shortest=1;[0:v][1:v]ssim=shortest=1;[0:v][1:v]xpsnr=shortest=1"

// Probe invokes the quality-measurement pipeline
type Probe struct {
	ffmpeg  string
	timeout time.Duration
	log     *logging.Logger
}

// New creates a probe. ffmpegPath defaults to "ffmpeg" when empty; a
// timeout of zero means no per-invocation deadline.
func New(ffmpegPath string, timeout time.Duration, log *logging.Logger) *Probe {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Probe{ffmpeg: ffmpegPath, timeout: timeout, log: log}
}

// Measure compares reference and artifact streams and returns the
// parsed metric bundle. The pipeline runs under the probe's deadline; a
// hung filter graph is killed, never waited on indefinitely. On a parse
// failure the returned bundle still carries whatever metrics were
// found; the error reports what was not.
func (p *Probe) Measure(ctx context.Context, reference, artifact string) (*models.MetricBundle, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	args := []string{
		"-hide_banner",
		"-i", reference,
		"-i", artifact,
		"-filter_complex", metricsFilter,
		"-f", "null", "-",
	}

	cmd := exec.Command(p.ffmpeg, args...)
	// Same process-group treatment as the encode stage: a deadline kill
	// must take the pipeline's children with it.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	// ffmpeg writes metric summaries to stderr; capture both streams
	// and scan the combined text.
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("metrics pipeline failed: %w", err)
	}
	pid := cmd.Process.Pid

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		syscall.Kill(-pid, syscall.SIGKILL)
		<-done
		return nil, fmt.Errorf("metrics pipeline killed: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("metrics pipeline failed: %w: %s", err, tail(out.Bytes()))
		}
	}

	bundle, err := parseMetrics(out.String())
	if err != nil {
		return bundle, err
	}

	p.log.Debug("metrics parsed", map[string]interface{}{
		"psnr":    bundle.PSNR,
		"ssim":    bundle.SSIM,
		"w_xpsnr": bundle.WXPSNR,
	})
	return bundle, nil
}

func tail(b []byte) string {
	const n = 2048
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(bytes.TrimSpace(b))
}
