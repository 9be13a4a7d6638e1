package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/psantana5/encbench/pkg/models"
)

// Columns is the fixed output schema, one row per job in submission
// order. Absent metrics (failed jobs, unparsed labels) serialize as an
// empty field; that sentinel is part of the format contract.
var Columns = []string{
	"input",
	"encoder",
	"quality",
	"outcome",
	"encode_time",
	"output_filesize",
	"psnr",
	"ssim",
	"xpsnr_y",
	"xpsnr_u",
	"xpsnr_v",
	"w_xpsnr",
}

// WriteCSV serializes results to w under the fixed column schema
func WriteCSV(w io.Writer, results []models.JobResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, res := range results {
		row := []string{
			res.Spec.Input,
			res.Spec.Encoder,
			strconv.Itoa(res.Spec.Quality),
			string(res.Outcome),
			fmtSeconds(res),
			fmtSize(res),
			metricField(res, func(m *models.MetricBundle) float64 { return m.PSNR }),
			metricField(res, func(m *models.MetricBundle) float64 { return m.SSIM }),
			metricField(res, func(m *models.MetricBundle) float64 { return m.XPSNRY }),
			metricField(res, func(m *models.MetricBundle) float64 { return m.XPSNRU }),
			metricField(res, func(m *models.MetricBundle) float64 { return m.XPSNRV }),
			metricField(res, func(m *models.MetricBundle) float64 { return m.WXPSNR }),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", res.Spec.Index, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes results to path, truncating any previous table
func WriteCSVFile(path string, results []models.JobResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	return WriteCSV(f, results)
}

// fmtSeconds renders encode duration in seconds; jobs that never
// spawned (duration zero with a failure tag) render the sentinel
func fmtSeconds(res models.JobResult) string {
	if res.Duration == 0 && res.Outcome.IsFailure() {
		return ""
	}
	return fmt.Sprintf("%.5f", res.Duration.Seconds())
}

func fmtSize(res models.JobResult) string {
	if res.Size == 0 && res.Outcome == models.OutcomeEncodeFailed {
		return ""
	}
	if res.Size == 0 && res.Outcome == models.OutcomeTimedOut {
		return ""
	}
	return strconv.FormatInt(res.Size, 10)
}

func metricField(res models.JobResult, get func(*models.MetricBundle) float64) string {
	if res.Metrics == nil {
		return ""
	}
	v := get(res.Metrics)
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%.5f", v)
}
