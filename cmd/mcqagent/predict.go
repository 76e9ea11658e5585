package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mcqagent/internal/agent"
	"mcqagent/internal/dataset"
	"mcqagent/internal/driver"
	"mcqagent/internal/embedding"
	"mcqagent/internal/llm"
	"mcqagent/internal/retrieval"
	"mcqagent/internal/sandbox"
	"mcqagent/internal/solver"
	"mcqagent/internal/store"
)

var predictCmd = &cobra.Command{
	Use:   "predict <dataset>",
	Short: "Answer every question in a dataset, resuming from the checkpoint log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		items, err := dataset.Load(args[0])
		if err != nil {
			return err
		}
		items = dataset.Transform(items)
		if err := dataset.Save(filepath.Join(cfg.Paths.OutputDir, "dataset_transformed.json"), items); err != nil {
			return err
		}

		engine, cleanup, err := buildEngine()
		if err != nil {
			return err
		}
		defer cleanup()

		watcher, err := driver.NewStopWatcher(cfg.Driver.StopFile)
		if err != nil {
			return err
		}
		defer watcher.Close()

		logPath := filepath.Join(cfg.Paths.OutputDir, "inference_log.jsonl")
		log, err := driver.OpenCheckpointLog(logPath)
		if err != nil {
			return err
		}
		defer log.Close()

		resumeBuffer, err := cfg.ResumeBuffer()
		if err != nil {
			return err
		}
		d := driver.New(engine, watcher, cfg.Driver, cfg.Paths.OutputDir, resumeBuffer)

		g, gctx := errgroup.WithContext(ctx)
		runCtx, cancelWatch := context.WithCancel(gctx)
		g.Go(func() error {
			err := watcher.Watch(runCtx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			defer cancelWatch()
			return d.Run(runCtx, items, log)
		})
		return g.Wait()
	},
}

// buildEngine wires the full solving stack: client, embedder, vector
// store, retrieval searcher, sandbox, the four solvers, and the router.
func buildEngine() (*agent.Engine, func(), error) {
	llmTimeout, err := cfg.LLMTimeout()
	if err != nil {
		return nil, nil, err
	}
	sandboxTimeout, err := cfg.SandboxTimeout()
	if err != nil {
		return nil, nil, err
	}

	client := llm.NewVNPTClient(cfg.LLM, llmTimeout)

	embedder, err := embedding.NewEngine(cfg.Embedding)
	if err != nil {
		return nil, nil, err
	}

	vectors, err := store.NewVectorStore(cfg.Paths.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening vector store: %w", err)
	}
	cleanup := func() { _ = vectors.Close() }

	searcher := retrieval.NewSearcher(embedder, vectors, cfg.Retrieval)

	dispatcher := agent.NewDispatcher()
	dispatcher.Register(agent.CategoryMath, solver.NewMathSolver(client, sandbox.New(sandboxTimeout), cfg.Solver))
	dispatcher.Register(agent.CategoryRAG, solver.NewRAGSolver(client, searcher, cfg.Retrieval, cfg.Solver))
	dispatcher.Register(agent.CategoryReading, solver.NewReadingSolver(client, cfg.Solver))
	dispatcher.Register(agent.CategoryToxic, solver.NewToxicSolver(cfg.Solver))

	return agent.NewEngine(agent.NewRouter(client), dispatcher), cleanup, nil
}
