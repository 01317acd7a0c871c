package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/SumanthNagolu/intime-v3-sub032/sla"
)

const inputLayout = "2006-01-02T15:04"

// hoursFlags are the persistent business-hours flags shared by every command
type hoursFlags struct {
	startHour       int
	endHour         int
	timezone        string
	includeWeekends bool
	holidays        []string
}

func (f *hoursFlags) config() (sla.BusinessHoursConfig, error) {
	holidays := f.holidays
	if holidays == nil {
		holidays = []string{}
	}
	cfg := sla.BusinessHoursConfig{
		StartHour:       f.startHour,
		EndHour:         f.endHour,
		Timezone:        f.timezone,
		ExcludeWeekends: !f.includeWeekends,
		Holidays:        holidays,
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// parseTime accepts RFC3339 or a wall-clock time in the configured timezone
func parseTime(value string, cfg sla.BusinessHoursConfig) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return cfg.LocalTime(t), nil
	}
	t, err := time.ParseInLocation(inputLayout, value, cfg.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: use %s or RFC3339", value, inputLayout)
	}
	return t, nil
}

func newRootCmd() *cobra.Command {
	defaults := sla.DefaultBusinessHours()
	flags := &hoursFlags{}

	root := &cobra.Command{
		Use:   "slactl",
		Short: "SLA business-hours calculator",
		Long: `Compute business minutes, deadlines and escalation status the same way
the SLA worker does, without a database.

Examples:
  slactl minutes --start 2024-01-05T16:00 --end 2024-01-08T10:00
  slactl deadline --start 2024-01-05T16:00 --value 2 --unit business_hours
  slactl elapsed --start 2024-01-05T09:00 --value 4 --unit business_hours \
      --level 1:warning:75 --level 2:breach:100
  slactl format --minutes 90`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.IntVar(&flags.startHour, "start-hour", defaults.StartHour, "Business day start hour (0-23)")
	pf.IntVar(&flags.endHour, "end-hour", defaults.EndHour, "Business day end hour (0-23)")
	pf.StringVar(&flags.timezone, "timezone", defaults.Timezone, "IANA timezone of the business hours")
	pf.BoolVar(&flags.includeWeekends, "include-weekends", false, "Count Saturdays and Sundays as business days")
	pf.StringArrayVar(&flags.holidays, "holiday", nil, "Holiday date YYYY-MM-DD (repeatable)")

	root.AddCommand(minutesCmd(flags))
	root.AddCommand(deadlineCmd(flags))
	root.AddCommand(elapsedCmd(flags))
	root.AddCommand(formatCmd())

	return root
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
