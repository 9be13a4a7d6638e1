// Package export publishes batch progress and final results as
// Prometheus metrics, either scraped live during a run or written to a
// textfile for the node-exporter textfile collector.
package export

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/psantana5/encbench/pkg/models"
)

// Exporter owns a private metrics registry for one batch run
type Exporter struct {
	registry *prometheus.Registry

	jobsTotal     *prometheus.CounterVec
	encodeSeconds prometheus.Counter
	outputBytes   prometheus.Counter
	wxpsnr        *prometheus.GaugeVec
	psnr          *prometheus.GaugeVec
}

// NewExporter creates an exporter for a batch of the given encoder
func NewExporter(encoder string) *Exporter {
	labels := prometheus.Labels{"encoder": encoder}

	e := &Exporter{
		registry: prometheus.NewRegistry(),
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "encbench_jobs_total",
			Help:        "Jobs finished, by outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),
		encodeSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "encbench_encode_seconds_total",
			Help:        "Cumulative wall-clock encode time",
			ConstLabels: labels,
		}),
		outputBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "encbench_output_bytes_total",
			Help:        "Cumulative encoded artifact size",
			ConstLabels: labels,
		}),
		wxpsnr: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "encbench_weighted_xpsnr",
			Help:        "Weighted XPSNR per grid cell",
			ConstLabels: labels,
		}, []string{"input", "quality"}),
		psnr: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "encbench_psnr",
			Help:        "Average PSNR per grid cell",
			ConstLabels: labels,
		}, []string{"input", "quality"}),
	}

	e.registry.MustRegister(e.jobsTotal, e.encodeSeconds, e.outputBytes, e.wxpsnr, e.psnr)
	return e
}

// Observe records one finished job
func (e *Exporter) Observe(res models.JobResult) {
	e.jobsTotal.WithLabelValues(string(res.Outcome)).Inc()
	e.encodeSeconds.Add(res.Duration.Seconds())
	e.outputBytes.Add(float64(res.Size))

	if res.Metrics == nil {
		return
	}
	q := strconv.Itoa(res.Spec.Quality)
	if !math.IsNaN(res.Metrics.WXPSNR) {
		e.wxpsnr.WithLabelValues(res.Spec.Input, q).Set(res.Metrics.WXPSNR)
	}
	if !math.IsNaN(res.Metrics.PSNR) {
		e.psnr.WithLabelValues(res.Spec.Input, q).Set(res.Metrics.PSNR)
	}
}

// WriteTextfile renders the registry in Prometheus text exposition
// format, suitable for the node-exporter textfile collector
func (e *Exporter) WriteTextfile(path string) error {
	families, err := e.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(f, family); err != nil {
			return fmt.Errorf("failed to encode %s: %w", family.GetName(), err)
		}
	}
	return nil
}
