package cmd

import (
	"github.com/spf13/cobra"

	"github.com/brbcoffee/ttcli/internal/config"
	"github.com/brbcoffee/ttcli/internal/severa"
	"github.com/brbcoffee/ttcli/internal/timeutil"
)

var (
	severaHoursDate string
	severaLockDate  string
)

var severaCmd = &cobra.Command{
	Use:   "severa",
	Short: "Commands for the Visma Severa application",
}

var severaHoursCmd = &cobra.Command{
	Use:   "hours HOURS DESCRIPTION",
	Short: "Write hours to Severa only",
	Args:  cobra.ExactArgs(2),
	RunE:  runSeveraHours,
}

var severaLockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Mark a Severa work day as completed",
	Args:  cobra.NoArgs,
	RunE:  runSeveraLock,
}

func init() {
	severaHoursCmd.Flags().StringVarP(&severaHoursDate, "date", "d", "", "Day to log hours for (YYYY-MM-DD, default today)")
	severaLockCmd.Flags().StringVarP(&severaLockDate, "date", "d", "", "Day to lock (YYYY-MM-DD, default today)")

	severaCmd.AddCommand(severaHoursCmd)
	severaCmd.AddCommand(severaLockCmd)
}

// severaClient opens the store and builds a Severa client from it. The caller
// must close the returned store.
func severaClient() (*severa.Client, *config.Store, error) {
	store, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := store.Read(severa.ServiceName)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	client, err := severa.New(cfg, store)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return client, store, nil
}

func runSeveraHours(cmd *cobra.Command, args []string) error {
	hours, err := parseHours(args[0])
	if err != nil {
		return err
	}
	day, err := resolveDay(severaHoursDate, "")
	if err != nil {
		return err
	}

	client, store, err := severaClient()
	if err != nil {
		return err
	}
	defer store.Close()

	wh, err := client.WriteWorkHour(cmd.Context(), hours, args[1], day)
	if err != nil {
		return err
	}

	p := stdoutPrinter()
	p.Successf("Done! Logged %v hours on %s (%s)", wh.Quantity, wh.EventDate, wh.Phase.Name)
	return nil
}

func runSeveraLock(cmd *cobra.Command, args []string) error {
	day, err := resolveDay(severaLockDate, "")
	if err != nil {
		return err
	}

	client, store, err := severaClient()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := client.LockDay(cmd.Context(), day); err != nil {
		return err
	}
	stdoutPrinter().Successf("Locked %s", timeutil.ISODate(day))
	return nil
}
