package main

import (
	"github.com/spf13/cobra"

	"query-evolver/internal/config"
	"query-evolver/internal/logging"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	envFile string
	cfg     *config.Config
	logger  *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "evolve",
		Short:         "Evolve query-rewriting workflows against a Cypher benchmark",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(a.envFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
			if err != nil {
				return err
			}
			a.cfg, a.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env", "", "Path to .env file")

	root.AddCommand(
		newRunCmd(a),
		newCleanCmd(a),
		newShowCmd(a),
		newImportCmd(a),
		newScoreCmd(),
	)
	return root
}
