package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/brbcoffee/ttcli/internal/config"
	"github.com/brbcoffee/ttcli/internal/timeutil"
	"github.com/brbcoffee/ttcli/internal/tripletex"
)

var (
	tripletexFindJSON      bool
	tripletexHoursActivity int
	tripletexHoursProject  int
	tripletexHoursDate     string
)

var tripletexCmd = &cobra.Command{
	Use:   "tripletex",
	Short: "Commands for the TripleTex application",
}

var tripletexFindCmd = &cobra.Command{
	Use:   "find NAME",
	Short: "Find activities by name",
	Args:  cobra.ExactArgs(1),
	RunE:  runTripletexFind,
}

var tripletexHoursCmd = &cobra.Command{
	Use:   "hours HOURS COMMENT",
	Short: "Write hours to TripleTex only",
	Args:  cobra.ExactArgs(2),
	RunE:  runTripletexHours,
}

var tripletexTimesheetCmd = &cobra.Command{
	Use:   "timesheet [WEEK]",
	Short: "Show the timesheet for a week (default: current)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTripletexTimesheet,
}

func init() {
	tripletexFindCmd.Flags().BoolVar(&tripletexFindJSON, "json", false, "Print the raw search result as JSON")
	tripletexHoursCmd.Flags().IntVarP(&tripletexHoursActivity, "activity", "a", 0, "Activity id (default: configured activity)")
	tripletexHoursCmd.Flags().IntVarP(&tripletexHoursProject, "project", "p", 0, "Project id")
	tripletexHoursCmd.Flags().StringVarP(&tripletexHoursDate, "date", "d", "", "Day to log hours for (YYYY-MM-DD, default today)")

	tripletexCmd.AddCommand(tripletexFindCmd)
	tripletexCmd.AddCommand(tripletexHoursCmd)
	tripletexCmd.AddCommand(tripletexTimesheetCmd)
}

// tripletexClient opens the store and builds a TripleTex client from it.
// The caller must close the returned store.
func tripletexClient() (*tripletex.Client, *config.Store, error) {
	store, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := store.Read(tripletex.ServiceName)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	client, err := tripletex.New(cfg, store)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return client, store, nil
}

func runTripletexFind(cmd *cobra.Command, args []string) error {
	client, store, err := tripletexClient()
	if err != nil {
		return err
	}
	defer store.Close()

	search, err := client.FindActivities(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if tripletexFindJSON {
		return json.NewEncoder(os.Stdout).Encode(search)
	}
	p := stdoutPrinter()
	if len(search.Values) == 0 {
		p.Dimf("No activities match %q", args[0])
		return nil
	}
	for _, activity := range search.Values {
		name := activity.DisplayName
		if name == "" {
			name = activity.Name
		}
		p.Printf("%7d  %s\n", activity.ID, name)
	}
	return nil
}

func runTripletexHours(cmd *cobra.Command, args []string) error {
	hours, err := parseHours(args[0])
	if err != nil {
		return err
	}
	day, err := resolveDay(tripletexHoursDate, "")
	if err != nil {
		return err
	}

	client, store, err := tripletexClient()
	if err != nil {
		return err
	}
	defer store.Close()

	entry, err := client.WriteEntry(cmd.Context(), hours, args[1], day, tripletexHoursActivity, tripletexHoursProject)
	if err != nil {
		return err
	}

	p := stdoutPrinter()
	p.Successf("Done! Logged %v hours on %s", entry.Hours, timeutil.ISODate(entry.Date.Time))
	return nil
}

func runTripletexTimesheet(cmd *cobra.Command, args []string) error {
	week := timeutil.WeekNumber(time.Now())
	if len(args) == 1 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed < 1 || parsed > 53 {
			return fmt.Errorf("invalid week %q", args[0])
		}
		week = parsed
	}

	client, store, err := tripletexClient()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := client.TimesheetWeek(cmd.Context(), week)
	if err != nil {
		return err
	}

	p := stdoutPrinter()
	total := 0.0
	for _, entry := range entries {
		if entry.Hours == 0 {
			continue
		}
		day := entry.Date.Time
		p.Successf("%s", day.Weekday())
		p.Dimf("(%s)", timeutil.ISODate(day))
		p.Printf("%v: %s\n", entry.Hours, entry.Comment)
		p.Dimf("--")
		total += entry.Hours
	}
	p.Successf("Total w%d: %vh", week, total)
	return nil
}
