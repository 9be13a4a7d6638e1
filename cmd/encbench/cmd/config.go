package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  `Commands for inspecting the effective encbench configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Print the merged configuration (defaults, config file, environment)
as YAML. The output is a valid config file; redirect it to
$HOME/.encbench/config.yaml to pin the current settings.`,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}

// effectiveConfig is the config file schema
type effectiveConfig struct {
	FFmpeg   string `yaml:"ffmpeg"`
	Timeout  string `yaml:"timeout"`
	Parallel int    `yaml:"parallel"`
	OutDir   string `yaml:"out_dir,omitempty"`
	DB       string `yaml:"db,omitempty"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := effectiveConfig{
		FFmpeg:   viper.GetString("ffmpeg"),
		Timeout:  viper.GetString("timeout"),
		Parallel: viper.GetInt("parallel"),
		OutDir:   viper.GetString("out_dir"),
		DB:       viper.GetString("db"),
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Print(string(data))
	return nil
}
