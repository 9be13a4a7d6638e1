package probe

import (
	"math"
	"testing"
)

// Captured shape of ffmpeg's metric filter summaries
const sampleOutput = `Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'ref.mp4':
  Duration: 00:00:10.00, start: 0.000000, bitrate: 8000 kb/s
Output #0, null, to 'pipe:':
frame=  300 fps=145 q=-0.0 Lsize=N/A time=00:00:10.00 bitrate=N/A speed=4.83x
[Parsed_psnr_0 @ 0x55d1c40] PSNR y:41.212345 u:44.101010 v:44.808080 average:42.012345 min:38.91 max:47.23
[Parsed_ssim_1 @ 0x55d1c41] SSIM Y:0.971234 (15.5) U:0.961111 (14.1) V:0.962222 (14.2) All:0.968421 (15.0)
[Parsed_xpsnr_2 @ 0x55d1c42] XPSNR  y: 40.5100  u: 43.2200  v: 43.8000  (minimum: 40.5100)
`

func TestParseMetrics(t *testing.T) {
	bundle, err := parseMetrics(sampleOutput)
	if err != nil {
		t.Fatalf("parseMetrics() error = %v", err)
	}

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"psnr", bundle.PSNR, 42.012345},
		{"ssim", bundle.SSIM, 0.968421},
		{"xpsnr_y", bundle.XPSNRY, 40.51},
		{"xpsnr_u", bundle.XPSNRU, 43.22},
		{"xpsnr_v", bundle.XPSNRV, 43.80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if math.Abs(tt.got-tt.want) > 1e-9 {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}

	if math.IsNaN(bundle.WXPSNR) {
		t.Error("WXPSNR not derived despite all channels present")
	}
}

func TestParseMetricsMissingSSIM(t *testing.T) {
	output := `[Parsed_psnr_0 @ 0x1] PSNR y:41.2 u:44.1 v:44.8 average:42.012345 min:38.9 max:47.2
[Parsed_xpsnr_1 @ 0x2] XPSNR  y: 40.5100  u: 43.2200  v: 43.8000  (minimum: 40.5100)
`
	bundle, err := parseMetrics(output)
	if err == nil {
		t.Fatal("parseMetrics() expected error for missing SSIM")
	}

	parseErr, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
	if len(parseErr.Missing) != 1 || parseErr.Missing[0] != "ssim" {
		t.Errorf("Missing = %v, want [ssim]", parseErr.Missing)
	}

	// Partial-parse policy: metrics that did parse stay usable,
	// the missing one carries the absent sentinel.
	if math.IsNaN(bundle.PSNR) {
		t.Error("PSNR blanked despite parsing successfully")
	}
	if !math.IsNaN(bundle.SSIM) {
		t.Errorf("SSIM = %v, want NaN sentinel", bundle.SSIM)
	}
	if math.IsNaN(bundle.WXPSNR) {
		t.Error("WXPSNR should still derive from the three parsed channels")
	}
}

func TestParseMetricsNothingFound(t *testing.T) {
	bundle, err := parseMetrics("frame= 300 fps=145 speed=4.83x\n")
	if err == nil {
		t.Fatal("parseMetrics() expected error for empty output")
	}
	parseErr, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
	if len(parseErr.Missing) != 5 {
		t.Errorf("Missing = %v, want all 5 metrics", parseErr.Missing)
	}
	if !math.IsNaN(bundle.WXPSNR) {
		t.Error("WXPSNR derived without channel data")
	}
}

func TestFloatAfter(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		label string
		want  float64
		ok    bool
	}{
		{"plain", "average:42.01", "average:", 42.01, true},
		{"spaced", "y:  40.51  u: 43.22", "y:", 40.51, true},
		{"trailing text", "All:0.968421 (15.0)", "All:", 0.968421, true},
		{"negative", "delta: -3.5 dB", "delta:", -3.5, true},
		{"label missing", "nothing here", "average:", 0, false},
		{"no number", "average: n/a", "average:", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := floatAfter(tt.line, tt.label)
			if ok != tt.ok {
				t.Fatalf("floatAfter() ok = %v, want %v", ok, tt.ok)
			}
			if ok && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("floatAfter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeightedXPSNR(t *testing.T) {
	// Equal channels must round-trip through the MSE domain unchanged
	if got := WeightedXPSNR(40, 40, 40); math.Abs(got-40) > 1e-9 {
		t.Errorf("WeightedXPSNR(40,40,40) = %v, want 40", got)
	}

	// Luma dominates 4:1:1, so the result sits closer to Y than to the mean
	got := WeightedXPSNR(40, 50, 50)
	if got <= 40 || got >= 45 {
		t.Errorf("WeightedXPSNR(40,50,50) = %v, want in (40, 45)", got)
	}
}

func TestWeightedXPSNRDeterministic(t *testing.T) {
	first := WeightedXPSNR(40.51, 43.22, 43.80)
	for i := 0; i < 100; i++ {
		if got := WeightedXPSNR(40.51, 43.22, 43.80); got != first {
			t.Fatalf("WeightedXPSNR not deterministic: %v != %v", got, first)
		}
	}
}
