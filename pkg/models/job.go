package models

import (
	"math"
	"time"
)

// Outcome classifies how a single encode job finished
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeEncodeFailed  Outcome = "encode_failed"
	OutcomeTimedOut      Outcome = "timed_out"
	OutcomeMetricsFailed Outcome = "metrics_failed"
)

// IsFailure reports whether the outcome is any of the failure tags
func (o Outcome) IsFailure() bool {
	return o != OutcomeSuccess
}

// JobSpec describes one encode job: a single (input, quality) cell of
// the benchmark grid. Immutable once built.
type JobSpec struct {
	Index       int      `json:"index"` // position in the submission grid
	Input       string   `json:"input"`
	Quality     int      `json:"quality"`
	Encoder     string   `json:"encoder"`
	Passthrough []string `json:"passthrough,omitempty"`
	Output      string   `json:"output"` // artifact path, unique per spec
}

// MetricBundle holds the quality scores for one encoded artifact.
// Unparsed fields are NaN and serialize as an empty cell.
type MetricBundle struct {
	PSNR   float64 `json:"psnr"`
	SSIM   float64 `json:"ssim"`
	XPSNRY float64 `json:"xpsnr_y"`
	XPSNRU float64 `json:"xpsnr_u"`
	XPSNRV float64 `json:"xpsnr_v"`
	WXPSNR float64 `json:"w_xpsnr"`
}

// NewMetricBundle returns a bundle with every field marked absent
func NewMetricBundle() *MetricBundle {
	nan := math.NaN()
	return &MetricBundle{
		PSNR:   nan,
		SSIM:   nan,
		XPSNRY: nan,
		XPSNRU: nan,
		XPSNRV: nan,
		WXPSNR: nan,
	}
}

// JobResult is the immutable record of one finished job. Every JobSpec
// produces exactly one JobResult, whatever the outcome.
type JobResult struct {
	Spec     JobSpec       `json:"spec"`
	Outcome  Outcome       `json:"outcome"`
	Duration time.Duration `json:"duration"`
	Size     int64         `json:"size_bytes"`
	Metrics  *MetricBundle `json:"metrics,omitempty"`
	Error    string        `json:"error,omitempty"` // stderr tail or parse diagnostic

	// MeasurePath is the stream quality gets measured against: the
	// artifact itself, or a decoded intermediate for encoders whose
	// bitstream the measurement pipeline cannot read. Empty means the
	// artifact.
	MeasurePath string `json:"-"`
}

// RunInfo captures per-batch metadata persisted alongside results
type RunInfo struct {
	ID         string    `json:"id"`
	Encoder    string    `json:"encoder"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	CPUModel   string    `json:"cpu_model"`
	CPUThreads int       `json:"cpu_threads"`
	RAMBytes   uint64    `json:"ram_bytes"`
	JobsTotal  int       `json:"jobs_total"`
	JobsFailed int       `json:"jobs_failed"`
}
