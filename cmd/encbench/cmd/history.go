package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/encbench/pkg/store"
)

var (
	historyDB    string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded benchmark runs",
	Long:  `List past benchmark runs from the history database written by "bench --db".`,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyDB, "db", "", "SQLite history database (default from config)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum runs to list")
}

func runHistory(cmd *cobra.Command, args []string) error {
	dbPath := historyDB
	if dbPath == "" {
		dbPath = viper.GetString("db")
	}
	if dbPath == "" {
		return fmt.Errorf("no history database configured (use --db or set db in config)")
	}

	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(context.Background(), historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Run", "Encoder", "Started", "Elapsed", "Jobs", "Failed", "CPU")

	for _, run := range runs {
		table.Append(
			run.ID[:8],
			run.Encoder,
			run.StartedAt.Format(time.RFC3339),
			run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String(),
			fmt.Sprintf("%d", run.JobsTotal),
			fmt.Sprintf("%d", run.JobsFailed),
			run.CPUModel,
		)
	}

	table.Render()
	return nil
}
