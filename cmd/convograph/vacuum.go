package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var vacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Compact the local database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore(cmd.Context(), cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Vacuum(cmd.Context()); err != nil {
			return fmt.Errorf("vacuum: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "vacuumed", cfg.DBPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(vacuumCmd)
}
