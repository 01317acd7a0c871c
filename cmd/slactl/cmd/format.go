package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SumanthNagolu/intime-v3-sub032/sla"
)

func formatCmd() *cobra.Command {
	var minutes float64

	cmd := &cobra.Command{
		Use:   "format",
		Short: "Render a minute count for display",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), sla.FormatElapsedTime(minutes))
		},
	}

	cmd.Flags().Float64Var(&minutes, "minutes", 0, "Minutes to format")
	_ = cmd.MarkFlagRequired("minutes")

	return cmd
}
