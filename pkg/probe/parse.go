package probe

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/psantana5/encbench/pkg/models"
)

// ParseError reports metric labels that never appeared in the
// pipeline's output. The already-extracted metrics stay usable.
type ParseError struct {
	Missing []string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("metrics not found in pipeline output: %s", strings.Join(e.Missing, ", "))
}

// parseMetrics scans the pipeline's combined output line by line.
// Extraction is tolerant: a metric is identified by its label token
// plus the first parseable float that follows it on the same line,
// never by column position. Labels match what ffmpeg's psnr, ssim and
// xpsnr filters actually print:
//
//	[Parsed_psnr_0 ...] PSNR y:41.2 u:44.1 v:44.8 average:42.01 min:38.9 max:47.2
//	[Parsed_ssim_1 ...] SSIM Y:0.97 U:0.96 V:0.96 All:0.968421 (17.9)
//	[Parsed_xpsnr_2 ...] XPSNR  y: 40.51  u: 43.22  v: 43.80  (minimum: 40.51)
func parseMetrics(output string) (*models.MetricBundle, error) {
	bundle := models.NewMetricBundle()

	for _, line := range strings.Split(output, "\n") {
		switch {
		case strings.Contains(line, "PSNR") && !strings.Contains(line, "XPSNR"):
			if v, ok := floatAfter(line, "average:"); ok {
				bundle.PSNR = v
			}
		case strings.Contains(line, "SSIM"):
			if v, ok := floatAfter(line, "All:"); ok {
				bundle.SSIM = v
			}
		case strings.Contains(line, "XPSNR"):
			if v, ok := floatAfter(line, "y:"); ok {
				bundle.XPSNRY = v
			}
			if v, ok := floatAfter(line, "u:"); ok {
				bundle.XPSNRU = v
			}
			if v, ok := floatAfter(line, "v:"); ok {
				bundle.XPSNRV = v
			}
		}
	}

	var missing []string
	for _, m := range []struct {
		name  string
		value float64
	}{
		{"psnr", bundle.PSNR},
		{"ssim", bundle.SSIM},
		{"xpsnr_y", bundle.XPSNRY},
		{"xpsnr_u", bundle.XPSNRU},
		{"xpsnr_v", bundle.XPSNRV},
	} {
		if math.IsNaN(m.value) {
			missing = append(missing, m.name)
		}
	}

	// The derived score only exists when all three channels parsed
	if !math.IsNaN(bundle.XPSNRY) && !math.IsNaN(bundle.XPSNRU) && !math.IsNaN(bundle.XPSNRV) {
		bundle.WXPSNR = WeightedXPSNR(bundle.XPSNRY, bundle.XPSNRU, bundle.XPSNRV)
	}

	if len(missing) > 0 {
		return bundle, &ParseError{Missing: missing}
	}
	return bundle, nil
}

// floatAfter finds label in line and parses the first float token
// following it. Returns false when the label is absent or nothing
// after it parses as a number.
func floatAfter(line, label string) (float64, bool) {
	idx := strings.Index(line, label)
	if idx < 0 {
		return 0, false
	}
	rest := strings.TrimSpace(line[idx+len(label):])
	if rest == "" {
		return 0, false
	}

	// Token ends at the first rune that cannot be part of a float
	end := 0
	for end < len(rest) {
		c := rest[end]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, false
	}

	v, err := strconv.ParseFloat(rest[:end], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
