package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"query-evolver/internal/apperrors"
	"query-evolver/internal/repository"
	"query-evolver/internal/workflow"
	"query-evolver/pkg/models"
)

func newShowCmd(a *app) *cobra.Command {
	var (
		format       string
		workflowOnly bool
	)

	cmd := &cobra.Command{
		Use:   "show [generation]",
		Short: "Print a stored generation, the latest by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeStore, err := repository.Open(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer closeStore()

			var rec *models.Generation
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid generation %q", args[0])
				}
				rec, err = store.Get(ctx, n)
				if err != nil {
					return err
				}
			} else if rec, err = store.Latest(ctx); err != nil {
				return err
			}

			// A record whose stages no longer resolve cannot be resumed.
			wf, loadErr := workflow.Deserialize(rec.Workflow, workflow.NewRegistry())
			if loadErr != nil {
				a.logger.Warn("Stored workflow does not load", "generation", rec.Generation, "error", loadErr)
			}

			var out string
			if workflowOnly {
				if loadErr != nil {
					return loadErr
				}
				out, err = renderWorkflow(wf, format)
			} else {
				out, err = render(rec, format)
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().BoolVarP(&workflowOnly, "workflow", "w", false, "Print only the workflow, in a form accepted by import")
	return cmd
}

func renderWorkflow(wf *workflow.Workflow, format string) (string, error) {
	switch format {
	case "json":
		out, err := wf.ToJSON()
		if err != nil {
			return "", err
		}
		return out + "\n", nil
	case "yaml":
		return wf.ToYAML()
	}
	return "", apperrors.Configurationf("show", "unknown format %q", format)
}

func render(rec *models.Generation, format string) (string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	case "yaml":
		data, err := yaml.Marshal(rec)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return "", apperrors.Configurationf("show", "unknown format %q", format)
}
