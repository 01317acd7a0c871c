package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/SumanthNagolu/intime-v3-sub032/sla"
)

func deadlineCmd(flags *hoursFlags) *cobra.Command {
	var (
		start string
		value float64
		unit  string
	)

	cmd := &cobra.Command{
		Use:   "deadline",
		Short: "Compute the deadline for a target",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config()
			if err != nil {
				return err
			}
			u, err := sla.ParseTargetUnit(unit)
			if err != nil {
				return err
			}
			if err := (sla.Target{Value: value, Unit: u}).Validate(cfg); err != nil {
				return err
			}
			from, err := parseTime(start, cfg)
			if err != nil {
				return err
			}

			deadline := sla.Deadline(from, value, u, cfg)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Deadline: %s\n", deadline.Format(time.RFC3339))
			fmt.Fprintf(out, "Target:   %g minutes\n", sla.ConvertToMinutes(value, u, cfg))
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "Start time")
	cmd.Flags().Float64Var(&value, "value", 0, "Target value")
	cmd.Flags().StringVar(&unit, "unit", string(sla.UnitBusinessHours), "Target unit: minutes, hours, business_hours, days, business_days, weeks")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}
