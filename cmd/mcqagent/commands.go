package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"mcqagent/internal/driver"
	"mcqagent/internal/embedding"
	"mcqagent/internal/evaluate"
	"mcqagent/internal/ingest"
	"mcqagent/internal/store"
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Rebuild the final answer table from the checkpoint log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logPath := filepath.Join(cfg.Paths.OutputDir, "inference_log.jsonl")
		outPath := filepath.Join(cfg.Paths.OutputDir, "submission.csv")
		rows, err := driver.Consolidate(logPath, outPath)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %d rows to %s\n", rows, outPath)
		return nil
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <ground-truth.json>",
	Short: "Score the checkpoint log against labeled answers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		truths, err := evaluate.LoadGroundTruth(args[0])
		if err != nil {
			return err
		}

		logPath := filepath.Join(cfg.Paths.OutputDir, "inference_log.jsonl")
		report, err := evaluate.Evaluate(logPath, truths)
		if err != nil {
			return err
		}

		for _, item := range report.Items {
			switch {
			case item.Missing:
				fmt.Printf("%s: MISSING (expected %s)\n", item.QID, item.Expected)
			case !item.Correct:
				fmt.Printf("%s: WRONG got %s expected %s\n", item.QID, item.Got, item.Expected)
			}
		}
		fmt.Printf("correct=%d wrong=%d missing=%d accuracy=%.4f\n",
			report.Correct, report.Wrong, report.Missing, report.Accuracy())
		return nil
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <chunks.json>",
	Short: "Embed cleaned document chunks into the vector store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chunks, err := ingest.LoadChunks(args[0])
		if err != nil {
			return err
		}

		embedder, err := embedding.NewEngine(cfg.Embedding)
		if err != nil {
			return err
		}

		vectors, err := store.NewVectorStore(cfg.Paths.DatabasePath)
		if err != nil {
			return fmt.Errorf("opening vector store: %w", err)
		}
		defer vectors.Close()

		checkpoint, err := ingest.LoadCheckpoint(filepath.Join(cfg.Paths.OutputDir, "embed_checkpoint.json"))
		if err != nil {
			return err
		}

		stats, err := ingest.NewPipeline(embedder, vectors, checkpoint).Run(cmd.Context(), chunks)
		if err != nil {
			return err
		}
		fmt.Printf("embedded=%d skipped=%d too_short=%d\n", stats.Embedded, stats.Skipped, stats.TooShort)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Request a graceful stop of the running driver",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.WriteFile(cfg.Driver.StopFile, nil, 0o644); err != nil {
			return fmt.Errorf("writing stop sentinel: %w", err)
		}
		fmt.Printf("Stop requested via %s; the driver honors it at the next question boundary.\n", cfg.Driver.StopFile)
		return nil
	},
}
