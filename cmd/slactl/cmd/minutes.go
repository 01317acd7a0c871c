package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SumanthNagolu/intime-v3-sub032/sla"
)

func minutesCmd(flags *hoursFlags) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "minutes",
		Short: "Count business minutes between two times",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config()
			if err != nil {
				return err
			}
			from, err := parseTime(start, cfg)
			if err != nil {
				return err
			}
			to, err := parseTime(end, cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			business := sla.BusinessMinutes(from, to, cfg)
			fmt.Fprintf(out, "Business minutes: %d (%s)\n", business, sla.FormatElapsedTime(float64(business)))
			fmt.Fprintf(out, "Business hours:   %g\n", sla.BusinessHours(from, to, cfg))
			fmt.Fprintf(out, "Calendar minutes: %d\n", sla.TotalMinutes(from, to))
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "Start time")
	cmd.Flags().StringVar(&end, "end", "", "End time")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}
