package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"query-evolver/internal/apperrors"
	"query-evolver/internal/evolution"
	"query-evolver/internal/repository"
	"query-evolver/internal/workflow"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Store a workflow from a JSON or YAML file as the next generation",
		Long: `Reads a workflow in the format printed by "show --workflow" and stores it
after the latest generation, so the next run resumes from it. Files ending in
.yaml or .yml are read as YAML, everything else as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return apperrors.Configuration("import", err)
			}
			wf, err := parseWorkflow(args[0], string(data))
			if err != nil {
				return err
			}

			store, closeStore, err := repository.Open(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer closeStore()

			rec, err := evolution.Import(ctx, store, wf)
			if err != nil {
				return err
			}
			a.logger.Info("Workflow imported", "file", args[0], "generation", rec.Generation)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s as generation %d (%s)\n",
				args[0], rec.Generation, strings.Join(wf.ActiveStageNames(), ", "))
			return nil
		},
	}
}

func parseWorkflow(path, data string) (*workflow.Workflow, error) {
	registry := workflow.NewRegistry()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return workflow.FromYAML(data, registry)
	default:
		return workflow.FromJSON(data, registry)
	}
}
