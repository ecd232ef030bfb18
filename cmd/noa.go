package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/brbcoffee/ttcli/internal/config"
	"github.com/brbcoffee/ttcli/internal/noa"
	"github.com/brbcoffee/ttcli/internal/report"
	"github.com/brbcoffee/ttcli/internal/timeutil"
)

var (
	noaHoursDate          string
	noaHoursWeekday       string
	noaMonthIncludeFuture bool
	noaReportFormat       string
	noaReportOut          string
	noaReportFuture       bool
)

var noaCmd = &cobra.Command{
	Use:   "noa",
	Short: "Commands for the Noa Workbook application",
}

var noaHoursCmd = &cobra.Command{
	Use:   "hours HOURS DESCRIPTION",
	Short: "Write hours to Noa Workbook only",
	Args:  cobra.ExactArgs(2),
	RunE:  runNoaHours,
}

var noaTimesheetCmd = &cobra.Command{
	Use:   "timesheet [WEEK]",
	Short: "Show the timesheet for a week (default: current)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runNoaTimesheet,
}

var noaTimesheetMonthCmd = &cobra.Command{
	Use:   "timesheet-month [MONTH]",
	Short: "Show week-by-week totals for a month (default: current)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runNoaTimesheetMonth,
}

var noaReportCmd = &cobra.Command{
	Use:   "report [MONTH]",
	Short: "Render a monthly report",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runNoaReport,
}

func init() {
	noaHoursCmd.Flags().StringVarP(&noaHoursDate, "date", "d", "", "Day to log hours for (YYYY-MM-DD, default today)")
	noaHoursCmd.Flags().StringVarP(&noaHoursWeekday, "weekday", "D", "", "Day of the current week to log hours for (monday..sunday)")
	noaTimesheetMonthCmd.Flags().BoolVar(&noaMonthIncludeFuture, "include-future", false, "Include days after today")
	noaReportCmd.Flags().StringVar(&noaReportFormat, "format", "md", "Output format: md, csv")
	noaReportCmd.Flags().StringVar(&noaReportOut, "out", "", "Write an HTML report to this file instead of stdout")
	noaReportCmd.Flags().BoolVar(&noaReportFuture, "include-future", false, "Include days after today")

	noaCmd.AddCommand(noaHoursCmd)
	noaCmd.AddCommand(noaTimesheetCmd)
	noaCmd.AddCommand(noaTimesheetMonthCmd)
	noaCmd.AddCommand(noaReportCmd)
}

// noaClient opens the store and builds a Workbook client from it. The caller
// must close the returned store.
func noaClient() (*noa.Client, *config.Store, error) {
	store, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := store.Read(noa.ServiceName)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	client, err := noa.New(cfg, store)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return client, store, nil
}

func parseWeekArg(args []string) (int, error) {
	if len(args) == 0 {
		return timeutil.WeekNumber(time.Now()), nil
	}
	week, err := strconv.Atoi(args[0])
	if err != nil || week < 1 || week > 53 {
		return 0, fmt.Errorf("invalid week %q", args[0])
	}
	return week, nil
}

func parseMonthArg(args []string) (time.Month, error) {
	if len(args) == 0 {
		return time.Now().Month(), nil
	}
	month, err := strconv.Atoi(args[0])
	if err != nil || month < 1 || month > 12 {
		return 0, fmt.Errorf("invalid month %q", args[0])
	}
	return time.Month(month), nil
}

func runNoaHours(cmd *cobra.Command, args []string) error {
	hours, err := parseHours(args[0])
	if err != nil {
		return err
	}
	day, err := resolveDay(noaHoursDate, noaHoursWeekday)
	if err != nil {
		return err
	}

	client, store, err := noaClient()
	if err != nil {
		return err
	}
	defer store.Close()

	entry, err := client.WriteEntry(cmd.Context(), hours, args[1], day)
	if err != nil {
		return err
	}

	p := stdoutPrinter()
	p.Successf("Done! Logged %v hours on %s", *entry.Hours, timeutil.ISODate(entry.PostDate.Time))
	return nil
}

// printWeekTimesheet renders one week of logged entries and returns the total.
func printWeekTimesheet(cmd *cobra.Command, client *noa.Client, year, week int) (float64, error) {
	logged, err := client.LoggedDuringWeek(cmd.Context(), year, week)
	if err != nil {
		return 0, err
	}

	p := stdoutPrinter()
	total := 0.0
	for _, entry := range logged {
		if entry.Description == nil {
			continue
		}
		day := entry.PostDate.Time
		p.Successf("%s", day.Weekday())
		p.Dimf("(%s)", timeutil.ISODate(day))
		if *entry.Hours == 7.5 {
			p.Warnf("%v: %s", *entry.Hours, *entry.Description)
		} else {
			p.Errorf("%v: %s", *entry.Hours, *entry.Description)
		}
		p.Dimf("--")
		total += *entry.Hours
	}
	p.Successf("Total w%d: %vh", week, total)
	return total, nil
}

func runNoaTimesheet(cmd *cobra.Command, args []string) error {
	week, err := parseWeekArg(args)
	if err != nil {
		return err
	}

	client, store, err := noaClient()
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = printWeekTimesheet(cmd, client, time.Now().Year(), week)
	return err
}

func runNoaTimesheetMonth(cmd *cobra.Command, args []string) error {
	month, err := parseMonthArg(args)
	if err != nil {
		return err
	}

	client, store, err := noaClient()
	if err != nil {
		return err
	}
	defer store.Close()

	m, err := report.BuildMonth(cmd.Context(), client, time.Now(), month, noaMonthIncludeFuture)
	if err != nil {
		return err
	}

	p := stdoutPrinter()
	p.Titlef("Month summary for %s:", m.Name)
	for _, week := range m.Weeks {
		p.Successf("Total w%d: %vh", week.Number, week.Total)
	}
	p.Dimf("--")
	p.Successf("Total %s: %v", m.Name, m.Total)
	return nil
}

func runNoaReport(cmd *cobra.Command, args []string) error {
	month, err := parseMonthArg(args)
	if err != nil {
		return err
	}

	client, store, err := noaClient()
	if err != nil {
		return err
	}
	defer store.Close()

	m, err := report.BuildMonth(cmd.Context(), client, time.Now(), month, noaReportFuture)
	if err != nil {
		return err
	}

	if noaReportOut != "" {
		if err := report.WriteHTML(noaReportOut, m); err != nil {
			return err
		}
		stdoutPrinter().Successf("Wrote %s", noaReportOut)
		return nil
	}

	switch noaReportFormat {
	case "csv":
		return report.RenderCSV(os.Stdout, m)
	case "md":
		report.RenderMarkdown(os.Stdout, m)
		return nil
	default:
		return fmt.Errorf("unknown format %q, expected md or csv", noaReportFormat)
	}
}
