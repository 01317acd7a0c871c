package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/SumanthNagolu/intime-v3-sub032/sla"
)

// parseLevels reads escalation levels written as NUMBER:NAME:PERCENT
func parseLevels(raw []string) ([]sla.EscalationLevel, error) {
	levels := make([]sla.EscalationLevel, 0, len(raw))
	for _, s := range raw {
		parts := strings.Split(s, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid level %q: want NUMBER:NAME:PERCENT", s)
		}
		number, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid level number in %q: %w", s, err)
		}
		pct, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(parts[2]), "%"), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid trigger percentage in %q: %w", s, err)
		}
		levels = append(levels, sla.EscalationLevel{
			LevelNumber:       number,
			LevelName:         strings.TrimSpace(parts[1]),
			TriggerPercentage: pct,
		})
	}
	if err := sla.ValidateEscalationLevels(levels); err != nil {
		return nil, err
	}
	return levels, nil
}

func statusColor(s sla.Status) *color.Color {
	switch s {
	case sla.StatusCritical:
		return color.New(color.FgHiRed, color.Bold)
	case sla.StatusBreach:
		return color.New(color.FgRed)
	case sla.StatusWarning:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgHiGreen)
	}
}

func elapsedCmd(flags *hoursFlags) *cobra.Command {
	var (
		start      string
		end        string
		value      float64
		unit       string
		levelSpecs []string
	)

	cmd := &cobra.Command{
		Use:   "elapsed",
		Short: "Measure elapsed time against a target and show escalation status",
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
			levels, err := parseLevels(levelSpecs)
			if err != nil {
				return err
			}
			from, err := parseTime(start, cfg)
			if err != nil {
				return err
			}
			now := cfg.LocalTime(time.Now())
			if end != "" {
				if now, err = parseTime(end, cfg); err != nil {
					return err
				}
			}

			eval := sla.Evaluate(from, sla.Target{Value: value, Unit: u}, cfg, levels, now)
			r := eval.Elapsed

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Business minutes: %d\n", r.BusinessMinutes)
			fmt.Fprintf(out, "Calendar minutes: %d\n", r.TotalMinutes)
			fmt.Fprintf(out, "Target used:      %.2f%%\n", r.PercentageOfTarget)
			fmt.Fprintf(out, "Deadline:         %s (%s)\n",
				eval.Deadline.Format(time.RFC3339), sla.FormatTimeRemaining(eval.Deadline, now))
			if r.IsOverdue {
				fmt.Fprintf(out, "Overdue by:       %s\n", color.New(color.FgRed).Sprint(sla.FormatElapsedTime(r.OverdueMinutes)))
			}
			if len(levels) > 0 {
				label := eval.Status.Label()
				if level, ok := sla.FindLevel(eval.Level, levels); ok {
					label = fmt.Sprintf("%s (level %d: %s)", label, level.LevelNumber, level.LevelName)
				}
				fmt.Fprintf(out, "Status:           %s\n", statusColor(eval.Status).Sprint(label))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "Start time")
	cmd.Flags().StringVar(&end, "end", "", "End time (default now)")
	cmd.Flags().Float64Var(&value, "value", 0, "Target value")
	cmd.Flags().StringVar(&unit, "unit", string(sla.UnitBusinessHours), "Target unit")
	cmd.Flags().StringArrayVar(&levelSpecs, "level", nil, "Escalation level NUMBER:NAME:PERCENT (repeatable)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}
