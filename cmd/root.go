// Package cmd implements the command-line interface for the PDP engine.
// It is the batch-trigger surface: callers supply a product identifier or
// "all" plus a score threshold and receive per-product results back.
package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/structr/internal/config"
)

// Version is set at build time.
var Version = "1.0.0"

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug logging for all commands.
	debug bool

	// outputDir overrides the configured output directory.
	outputDir string

	// model overrides the configured generation model.
	model string

	rootCmd = &cobra.Command{
		Use:   "structr",
		Short: "Local-first PDP optimization engine",
		Long: `Generate, audit, and repair product detail pages with compliance
scoring against SEO and Google Product schema rules.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available to viper.
	_ = godotenv.Load()

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "", "override the output directory")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "override the generation model")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("structr version %s\n", Version)
		},
	})

	rootCmd.AddCommand(newGenerateCommand())
	rootCmd.AddCommand(newAuditCommand())
	rootCmd.AddCommand(newFixCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newMonitorCommand())
}

// loadConfig reads configuration and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	if outputDir != "" {
		cfg.OutputDir = outputDir
	}

	if model != "" {
		cfg.LLM.Model = model
	}

	if debug {
		cfg.Log.Level = "debug"
	}

	return cfg, nil
}
