package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/psantana5/encbench/pkg/models"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "encbench.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id string) models.RunInfo {
	start := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	return models.RunInfo{
		ID:         id,
		Encoder:    "x264",
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Minute),
		CPUModel:   "AMD Ryzen 9 5950X",
		CPUThreads: 32,
		RAMBytes:   64 << 30,
		JobsTotal:  4,
		JobsFailed: 1,
	}
}

func sampleResults() []models.JobResult {
	bundle := &models.MetricBundle{
		PSNR: 42.5, SSIM: 0.975,
		XPSNRY: 41.1, XPSNRU: 44.2, XPSNRV: 44.3,
		WXPSNR: 42.0,
	}
	return []models.JobResult{
		{
			Spec:     models.JobSpec{Index: 0, Input: "clip.mp4", Quality: 20, Encoder: "x264"},
			Outcome:  models.OutcomeSuccess,
			Duration: 90 * time.Second,
			Size:     4 << 20,
			Metrics:  bundle,
		},
		{
			Spec:    models.JobSpec{Index: 1, Input: "clip.mp4", Quality: 30, Encoder: "x264"},
			Outcome: models.OutcomeEncodeFailed,
			Error:   "exit status 1",
		},
	}
}

func TestSaveRunAndListRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := sampleRun("run-1")
	if err := s.SaveRun(ctx, run, sampleResults()); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	runs, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	got := runs[0]
	if got.ID != run.ID || got.Encoder != run.Encoder {
		t.Errorf("got run %s/%s, want %s/%s", got.ID, got.Encoder, run.ID, run.Encoder)
	}
	if got.JobsTotal != 4 || got.JobsFailed != 1 {
		t.Errorf("job counts = %d/%d, want 4/1", got.JobsTotal, got.JobsFailed)
	}
	if got.CPUThreads != 32 || got.RAMBytes != 64<<30 {
		t.Errorf("host info not round-tripped: %d threads, %d bytes", got.CPUThreads, got.RAMBytes)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"run-old", "run-mid", "run-new"} {
		run := sampleRun(id)
		run.StartedAt = run.StartedAt.Add(time.Duration(i) * time.Hour)
		run.FinishedAt = run.StartedAt.Add(time.Minute)
		if err := s.SaveRun(ctx, run, nil); err != nil {
			t.Fatalf("SaveRun %s: %v", id, err)
		}
	}

	runs, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	want := []string{"run-new", "run-mid", "run-old"}
	if len(runs) != len(want) {
		t.Fatalf("got %d runs, want %d", len(runs), len(want))
	}
	for i, id := range want {
		if runs[i].ID != id {
			t.Errorf("runs[%d].ID = %s, want %s", i, runs[i].ID, id)
		}
	}
}

func TestListRunsLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		run := sampleRun("run-" + string(rune('a'+i)))
		run.StartedAt = run.StartedAt.Add(time.Duration(i) * time.Minute)
		if err := s.SaveRun(ctx, run, nil); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("got %d runs, want 2", len(runs))
	}
}

func TestSaveRunNullMetrics(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveRun(ctx, sampleRun("run-null"), sampleResults()); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	// The failed row carries no bundle; its metric columns must be NULL,
	// not zero
	var psnr *float64
	err := s.db.QueryRow(
		`SELECT psnr FROM results WHERE run_id = ? AND idx = 1`, "run-null",
	).Scan(&psnr)
	if err != nil {
		t.Fatalf("query failed row: %v", err)
	}
	if psnr != nil {
		t.Errorf("psnr = %v, want NULL", *psnr)
	}

	var good float64
	err = s.db.QueryRow(
		`SELECT psnr FROM results WHERE run_id = ? AND idx = 0`, "run-null",
	).Scan(&good)
	if err != nil {
		t.Fatalf("query success row: %v", err)
	}
	if good != 42.5 {
		t.Errorf("psnr = %v, want 42.5", good)
	}
}

func TestSaveRunDuplicateIDFails(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := sampleRun("run-dup")
	if err := s.SaveRun(ctx, run, nil); err != nil {
		t.Fatalf("first SaveRun: %v", err)
	}
	if err := s.SaveRun(ctx, run, nil); err == nil {
		t.Error("duplicate run id accepted")
	}
}
