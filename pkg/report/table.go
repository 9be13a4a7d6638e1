package report

import (
	"fmt"
	"io"
	"math"
	"path/filepath"

	"github.com/olekukonko/tablewriter"

	"github.com/psantana5/encbench/pkg/models"
)

// RenderTable prints a human-readable result table to w
func RenderTable(w io.Writer, results []models.JobResult) {
	table := tablewriter.NewWriter(w)
	table.Header("Input", "Q", "Outcome", "Time", "Size", "PSNR", "SSIM", "W-XPSNR")

	for _, res := range results {
		table.Append(
			filepath.Base(res.Spec.Input),
			fmt.Sprintf("%d", res.Spec.Quality),
			string(res.Outcome),
			fmtCell(res.Duration.Seconds(), "%.2fs", res.Duration > 0 || !res.Outcome.IsFailure()),
			fmtCell(float64(res.Size), "%.0f", res.Size > 0),
			metricCell(res, func(m *models.MetricBundle) float64 { return m.PSNR }),
			metricCell(res, func(m *models.MetricBundle) float64 { return m.SSIM }),
			metricCell(res, func(m *models.MetricBundle) float64 { return m.WXPSNR }),
		)
	}

	table.Render()
}

func fmtCell(v float64, format string, present bool) string {
	if !present {
		return "-"
	}
	return fmt.Sprintf(format, v)
}

func metricCell(res models.JobResult, get func(*models.MetricBundle) float64) string {
	if res.Metrics == nil {
		return "-"
	}
	v := get(res.Metrics)
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.5f", v)
}
