package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"query-evolver/internal/evolution"
	"query-evolver/internal/repository"
	"query-evolver/internal/services"
	"query-evolver/internal/workflow"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		generations int
		reset       bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the evolution loop, resuming from the latest stored generation",
		Long: `Runs a fixed number of generations. Each generation mutates the current
workflow, scores parent and candidate against the benchmark, keeps the winner
and stores a snapshot. An interrupt stops the loop after the running
generation has been stored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("generations") {
				a.cfg.Evolution.Generations = generations
			}
			if err := a.cfg.ValidateForRun(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.run(ctx, reset, cmd)
		},
	}
	cmd.Flags().IntVarP(&generations, "generations", "n", 0, "Number of generations (overrides evolution.generations)")
	cmd.Flags().BoolVar(&reset, "reset", false, "Empty the generation store before starting")
	return cmd
}

func (a *app) run(ctx context.Context, reset bool, cmd *cobra.Command) error {
	cfg, logger := a.cfg, a.logger

	policy, err := evolution.ParsePolicy(cfg.Evolution.Policy)
	if err != nil {
		return err
	}

	items, err := services.LoadBenchmark(cfg.Benchmark.Path, cfg.Benchmark.MaxItems)
	if err != nil {
		return err
	}
	logger.Info("Benchmark loaded", "path", cfg.Benchmark.Path, "items", len(items))

	store, closeStore, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if reset {
		if err := store.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset generation store: %w", err)
		}
		logger.Info("Generation store reset")
	}

	registry := workflow.NewRegistry()
	start, err := evolution.Resume(ctx, store, registry)
	if err != nil {
		return err
	}

	graph, err := services.NewNeo4jGraph(ctx, cfg.Graph.URI, cfg.Graph.User, cfg.Graph.Password, cfg.Graph.Database)
	if err != nil {
		return err
	}
	defer graph.Close(context.WithoutCancel(ctx))

	schema, err := graph.Schema(ctx)
	if err != nil {
		return err
	}

	llm := services.NewOllamaClient(cfg.LLM.URL, cfg.LLM.Model, cfg.LLM.Timeout)
	logger.Info("Language model configured", "url", cfg.LLM.URL, "model", llm.Model(), "diagnose", cfg.Evolution.Diagnose)
	writer := services.NewQueryGenerator(llm, schema)
	fitness := evolution.NewBenchmarkFitness(items, writer, graph, cfg.Evolution.Concurrency, logger)

	opts := evolution.Options{
		Generations: cfg.Evolution.Generations,
		Policy:      policy,
		Rand:        workflow.NewRand(cfg.Evolution.Seed),
		Logger:      logger,
	}
	if cfg.Evolution.Diagnose {
		opts.Advisor = services.NewDiagnoser(llm)
	}
	engine, err := evolution.NewEngine(fitness, store, opts)
	if err != nil {
		return err
	}

	final, err := engine.Run(ctx, start)
	fmt.Fprintf(cmd.OutOrStdout(), "Best performance: %.2f%%, next generation %d\n", final.BestPerformance*100, final.Generation)
	if ctx.Err() != nil {
		logger.Warn("Evolution interrupted", "next_generation", final.Generation)
		return nil
	}
	return err
}
