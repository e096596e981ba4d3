package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"query-evolver/internal/repository"
)

func newCleanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Delete every stored generation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeStore, err := repository.Open(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := store.Reset(ctx); err != nil {
				return fmt.Errorf("failed to reset generation store: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Generation store emptied")
			return nil
		},
	}
}
