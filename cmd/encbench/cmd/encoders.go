package cmd

import (
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/psantana5/encbench/pkg/encoder"
)

var encodersCmd = &cobra.Command{
	Use:   "encoders",
	Short: "List supported encoders",
	Long:  `List the supported encoders, their invocation conventions, and whether their executables are on PATH.`,
	RunE:  runEncoders,
}

func init() {
	rootCmd.AddCommand(encodersCmd)
}

func runEncoders(cmd *cobra.Command, args []string) error {
	registry := encoder.NewRegistry()

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Encoder", "Executable", "Quality", "Extension", "Available")

	for _, id := range registry.IDs() {
		profile, err := registry.Resolve(id)
		if err != nil {
			return err
		}
		available := "no"
		if profile.Available() {
			available = "yes"
		}
		table.Append(profile.ID, profile.Exe, profile.QualityKind, "."+profile.Ext, available)
	}

	table.Render()
	return nil
}
