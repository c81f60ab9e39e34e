// Package main provides the CLI entry point for xlflow.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ukaji3/xlflow-go/internal/config"
	"github.com/ukaji3/xlflow-go/internal/logging"
	"go.uber.org/zap"
)

var (
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "xlflow",
		Short: "Analyze multi-sheet Excel workbooks",
		Long: `xlflow scans every sheet of an Excel workbook, skips empty and index
sheets, then detects structure, maps fields and extracts rows for each
remaining sheet in parallel. Results are written as JSON.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Env file with XLFLOW_* variables (default: ./.env if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console or json")

	rootCmd.AddCommand(newAnalyzeCmd(), newScanCmd())
	return rootCmd
}

// setup loads the configuration and builds the logger. Command line flags
// win over the environment and the config file.
func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return nil, nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func readWorkbook(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	return data, err
}
