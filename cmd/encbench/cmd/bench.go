package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/encbench/pkg/batch"
	"github.com/psantana5/encbench/pkg/encoder"
	"github.com/psantana5/encbench/pkg/export"
	"github.com/psantana5/encbench/pkg/grid"
	"github.com/psantana5/encbench/pkg/logging"
	"github.com/psantana5/encbench/pkg/models"
	"github.com/psantana5/encbench/pkg/probe"
	"github.com/psantana5/encbench/pkg/report"
	"github.com/psantana5/encbench/pkg/runner"
	"github.com/psantana5/encbench/pkg/store"
	"github.com/psantana5/encbench/pkg/sysinfo"
)

var (
	benchInputs      []string
	benchQualities   string
	benchOutput      string
	benchOutDir      string
	benchKeep        bool
	benchParallel    int
	benchTimeout     time.Duration
	benchDB          string
	benchTextfile    string
	benchMetricsAddr string
)

var benchCmd = &cobra.Command{
	Use:   "bench <encoder> [-- encoder-args...]",
	Short: "Run a benchmark grid",
	Long: `Run every (input, quality) combination through the chosen encoder and
write one result row per combination, in grid order, to a CSV table.

Individual job failures are recorded as data and never abort the
batch; the command exits non-zero only when the batch cannot start.

Arguments after "--" are passed to the encoder verbatim.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().StringArrayVarP(&benchInputs, "input", "i", nil, "source video file (repeatable)")
	benchCmd.Flags().StringVarP(&benchQualities, "quality", "q", "", "space-separated quality values (e.g. \"20 30 40\")")
	benchCmd.Flags().StringVarP(&benchOutput, "output", "o", "", "output CSV path")
	benchCmd.Flags().StringVar(&benchOutDir, "out-dir", "", "directory for intermediate artifacts (default: working directory)")
	benchCmd.Flags().BoolVarP(&benchKeep, "keep", "k", false, "keep encoded artifacts instead of deleting them")
	benchCmd.Flags().IntVar(&benchParallel, "parallel", 0, "number of concurrent encode jobs (default from config, 1)")
	benchCmd.Flags().DurationVar(&benchTimeout, "timeout", 0, "per-job timeout (default from config, 1h)")
	benchCmd.Flags().StringVar(&benchDB, "db", "", "SQLite database to record run history in")
	benchCmd.Flags().StringVar(&benchTextfile, "metrics-textfile", "", "write end-of-run Prometheus metrics to this file")
	benchCmd.Flags().StringVar(&benchMetricsAddr, "metrics-listen", "", "serve live /metrics on this address while the batch runs")
	benchCmd.MarkFlagRequired("input")
	benchCmd.MarkFlagRequired("quality")
	benchCmd.MarkFlagRequired("output")
}

func runBench(cmd *cobra.Command, args []string) error {
	log := newLogger()

	encoderID := args[0]
	passthrough := passthroughArgs(cmd, args)

	qualities, err := parseQualities(benchQualities)
	if err != nil {
		return err
	}

	registry := encoder.NewRegistry()
	profile, err := registry.Resolve(encoderID)
	if err != nil {
		return err
	}

	specs, err := grid.Build(benchInputs, qualities, profile, passthrough, benchOutDir)
	if err != nil {
		return err
	}

	host := sysinfo.Detect()
	log.Info("starting batch", map[string]interface{}{
		"encoder":   profile.ID,
		"jobs":      len(specs),
		"inputs":    len(benchInputs),
		"qualities": len(qualities),
		"cpu":       host.CPUModel,
		"threads":   host.CPUThreads,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logSources(ctx, log)

	timeout := benchTimeout
	if timeout == 0 {
		timeout = viper.GetDuration("timeout")
	}
	workers := benchParallel
	if workers == 0 {
		workers = viper.GetInt("parallel")
	}

	orch := batch.New(
		runner.New(registry, timeout, log),
		probe.New(viper.GetString("ffmpeg"), timeout, log),
		log,
	)
	orch.KeepArtifacts = benchKeep
	orch.Workers = workers

	exporter := export.NewExporter(profile.ID)
	if benchMetricsAddr != "" {
		server := export.NewServer(benchMetricsAddr, exporter, log)
		server.Start()
		defer server.Stop()
	}
	orch.OnResult = exporter.Observe

	startedAt := time.Now()
	results := orch.Run(ctx, specs)
	finishedAt := time.Now()

	if err := report.WriteCSVFile(benchOutput, results); err != nil {
		return err
	}
	report.RenderTable(os.Stdout, results)

	failed := 0
	for _, res := range results {
		if res.Outcome.IsFailure() {
			failed++
		}
	}
	log.Info("batch finished", map[string]interface{}{
		"rows":     len(results),
		"failed":   failed,
		"elapsed":  finishedAt.Sub(startedAt).Round(time.Second).String(),
		"table":    benchOutput,
	})

	if benchTextfile != "" {
		if err := exporter.WriteTextfile(benchTextfile); err != nil {
			log.Warn("textfile export failed", map[string]interface{}{"error": err.Error()})
		}
	}

	if dbPath := dbPathOrConfig(); dbPath != "" {
		saveRun(ctx, log, dbPath, models.RunInfo{
			ID:         uuid.New().String(),
			Encoder:    profile.ID,
			StartedAt:  startedAt,
			FinishedAt: finishedAt,
			CPUModel:   host.CPUModel,
			CPUThreads: host.CPUThreads,
			RAMBytes:   host.RAMBytes,
			JobsTotal:  len(results),
			JobsFailed: failed,
		}, results)
	}

	// Per-job failures are data, not a process failure
	return nil
}

// passthroughArgs returns everything the user placed after "--"
func passthroughArgs(cmd *cobra.Command, args []string) []string {
	if dash := cmd.ArgsLenAtDash(); dash >= 0 && dash < len(args) {
		return args[dash:]
	}
	return nil
}

func parseQualities(s string) ([]int, error) {
	fields := strings.Fields(s)
	qualities := make([]int, 0, len(fields))
	for _, f := range fields {
		q, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid quality value %q: %w", f, err)
		}
		qualities = append(qualities, q)
	}
	return qualities, nil
}

// logSources probes each input for dimensions; failures here are
// informational only, the encoder will complain on its own if the
// input is unreadable
func logSources(ctx context.Context, log *logging.Logger) {
	for _, input := range benchInputs {
		src, err := probe.Inspect(ctx, input)
		if err != nil {
			log.Warn("could not probe source", map[string]interface{}{
				"input": input,
				"error": err.Error(),
			})
			continue
		}
		log.Info("source video", map[string]interface{}{
			"name":   src.Name,
			"size":   src.Size,
			"width":  src.Width,
			"height": src.Height,
		})
	}
}

func dbPathOrConfig() string {
	if benchDB != "" {
		return benchDB
	}
	return viper.GetString("db")
}

func saveRun(ctx context.Context, log *logging.Logger, dbPath string, run models.RunInfo, results []models.JobResult) {
	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		log.Warn("could not open history database", map[string]interface{}{"error": err.Error()})
		return
	}
	defer db.Close()

	if err := db.SaveRun(ctx, run, results); err != nil {
		log.Warn("could not save run history", map[string]interface{}{"error": err.Error()})
		return
	}
	log.Info("run recorded", map[string]interface{}{"run_id": run.ID, "db": dbPath})
}
