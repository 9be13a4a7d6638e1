package probe

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/psantana5/encbench/pkg/logging"
)

func quietLogger() *logging.Logger {
	return logging.New(logging.ERROR, false)
}

// fakePipeline writes an executable shell script standing in for the
// measurement tool
func fakePipeline(t *testing.T, script string) string {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMeasureKillsHungPipeline(t *testing.T) {
	p := New(fakePipeline(t, "exec sleep 30"), 200*time.Millisecond, quietLogger())

	start := time.Now()
	_, err := p.Measure(context.Background(), "ref.mp4", "artifact.bin")
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("Measure() returned no error for a hung pipeline")
	}
	if !strings.Contains(err.Error(), "killed") {
		t.Errorf("error = %q, want kill diagnostic", err)
	}
	// Termination must land within a bounded grace period of the deadline
	if elapsed > 3*time.Second {
		t.Errorf("Measure took %v to enforce a 200ms deadline", elapsed)
	}
}

func TestMeasureParsesPipelineOutput(t *testing.T) {
	script := `cat >&2 <<'EOF'
[Parsed_psnr_0 @ 0x1] PSNR y:41.2 u:44.1 v:44.8 average:42.01234 min:38.9 max:47.2
[Parsed_ssim_1 @ 0x2] SSIM Y:0.97 U:0.96 V:0.96 All:0.96842 (15.0)
[Parsed_xpsnr_2 @ 0x3] XPSNR  y: 40.5100  u: 43.2200  v: 43.8000  (minimum: 40.5100)
EOF`
	p := New(fakePipeline(t, script), 5*time.Second, quietLogger())

	bundle, err := p.Measure(context.Background(), "ref.mp4", "artifact.bin")
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}
	if math.Abs(bundle.PSNR-42.01234) > 1e-9 {
		t.Errorf("PSNR = %v, want 42.01234", bundle.PSNR)
	}
	if math.IsNaN(bundle.WXPSNR) {
		t.Error("WXPSNR not derived")
	}
}

func TestMeasurePipelineFailure(t *testing.T) {
	p := New(fakePipeline(t, "echo graph error >&2; exit 1"), 5*time.Second, quietLogger())

	_, err := p.Measure(context.Background(), "ref.mp4", "artifact.bin")
	if err == nil {
		t.Fatal("Measure() returned no error for a failing pipeline")
	}
	if !strings.Contains(err.Error(), "graph error") {
		t.Errorf("diagnostics not attached: %q", err)
	}
}

func TestInspectMissingFile(t *testing.T) {
	_, err := Inspect(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"))
	if err == nil {
		t.Fatal("Inspect() returned no error for a missing file")
	}
}
