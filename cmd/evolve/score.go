package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"query-evolver/internal/similarity"
	"query-evolver/pkg/models"
)

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score result sets or strings with the similarity functions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "datasets LEFT.json RIGHT.json",
		Short: `Compare two result-set files, each {"query": ..., "rows": [...]}`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			left, err := readResultSet(args[0])
			if err != nil {
				return err
			}
			right, err := readResultSet(args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.6f\n", similarity.ComparePair(left, right))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "strings A B",
		Short: "Jaro-Winkler similarity of two strings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%.6f\n", similarity.StringSimilarity(args[0], args[1]))
			return nil
		},
	})
	return cmd
}

func readResultSet(path string) (models.ResultSet, error) {
	var rs models.ResultSet
	data, err := os.ReadFile(path)
	if err != nil {
		return rs, err
	}
	if err := json.Unmarshal(data, &rs); err != nil {
		return rs, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return rs, nil
}
