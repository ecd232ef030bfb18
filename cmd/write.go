package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/brbcoffee/ttcli/internal/api"
	"github.com/brbcoffee/ttcli/internal/timeutil"
)

var (
	writeDate    string
	writeWeekday string
	writeLock    bool
)

var writeCmd = &cobra.Command{
	Use:   "write HOURS DESCRIPTION",
	Short: "Write hours to every configured service",
	Args:  cobra.ExactArgs(2),
	RunE:  runWrite,
}

func init() {
	writeCmd.Flags().StringVarP(&writeDate, "date", "d", "", "Day to log hours for (YYYY-MM-DD, default today)")
	writeCmd.Flags().StringVarP(&writeWeekday, "weekday", "D", "", "Day of the current week to log hours for (monday..sunday)")
	writeCmd.Flags().BoolVar(&writeLock, "lock", false, "Lock the day after writing, where supported")
}

// resolveDay turns the --date and --weekday flags into a concrete day. The
// weekday flag resolves within the week of the --date value (or today).
func resolveDay(dateFlag, weekdayFlag string) (time.Time, error) {
	day := timeutil.StartOfDay(time.Now())
	if dateFlag != "" {
		parsed, err := timeutil.ParseISODate(dateFlag)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", dateFlag)
		}
		day = parsed
	}
	if weekdayFlag != "" {
		return timeutil.WeekdayDate(day, weekdayFlag)
	}
	return day, nil
}

func parseHours(arg string) (float64, error) {
	hours, err := strconv.ParseFloat(arg, 64)
	if err != nil || hours <= 0 {
		return 0, fmt.Errorf("invalid hours %q", arg)
	}
	return hours, nil
}

func runWrite(cmd *cobra.Command, args []string) error {
	hours, err := parseHours(args[0])
	if err != nil {
		return err
	}
	day, err := resolveDay(writeDate, writeWeekday)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	services, err := newRegistry().Configured(store)
	if err != nil {
		return err
	}
	p := stdoutPrinter()
	if len(services) == 0 {
		p.Warnf("No services are configured, run: ttcli configure")
		return nil
	}

	if failed := api.WriteToAll(cmd.Context(), services, hours, args[1], day, writeLock, p); failed > 0 {
		return fmt.Errorf("%d service(s) failed", failed)
	}
	return nil
}
