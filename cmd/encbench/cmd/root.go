package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/encbench/pkg/logging"
)

var (
	cfgFile  string
	logLevel string
	logJSON  bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "encbench",
	Short: "Benchmark video encoders across a quality grid",
	Long: `encbench drives external video encoders across a grid of inputs and
quality settings, measures time, size and quality (PSNR, SSIM, XPSNR)
for every cell, and emits a row-oriented result table.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.encbench/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log in JSON format")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(filepath.Join(home, ".encbench"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ENCBENCH")
	viper.AutomaticEnv()

	viper.SetDefault("ffmpeg", "ffmpeg")
	viper.SetDefault("timeout", "1h")
	viper.SetDefault("parallel", 1)
	viper.SetDefault("out_dir", "")
	viper.SetDefault("db", "")

	// Missing config file is fine; defaults and env cover everything
	_ = viper.ReadInConfig()
}

// newLogger builds the process logger from the global flags
func newLogger() *logging.Logger {
	return logging.New(logging.ParseLevel(logLevel), logJSON)
}
