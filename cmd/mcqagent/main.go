// mcqagent answers multiple-choice benchmark questions through a
// checkpointed, resumable batch driver backed by VNPT AI models and a
// local vector store.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"mcqagent/internal/config"
	"mcqagent/internal/logging"
)

var (
	// Global flags
	configPath string
	debug      bool

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "mcqagent",
	Short: "Multiple-choice question answering agent",
	Long: `mcqagent classifies each question into a solving strategy (math, rag,
reading, toxic) and executes it against the VNPT AI generation and
embedding services, checkpointing every answer so a run survives rate
limits and restarts without losing or repeating work.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Credentials usually live in .env; missing file is fine.
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if debug {
			cfg.Logging.Debug = true
		}

		if err := os.MkdirAll(cfg.Paths.OutputDir, 0o755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
		return logging.Initialize(cfg.Paths.OutputDir, cfg.Logging.Debug)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(consolidateCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(stopCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
