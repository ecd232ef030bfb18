package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/brbcoffee/ttcli/internal/api"
	"github.com/brbcoffee/ttcli/internal/timeutil"
)

var writeCSVLock bool

var writeCSVCmd = &cobra.Command{
	Use:   "write-csv FILE",
	Short: "Write a CSV of hours to every configured service",
	Long: `Write every row of a CSV file to all configured services.
The file needs a date,hours,description header followed by one row per day:

	date,hours,description
	2026-08-24,7.5,backend work
	2026-08-25,7.5,frontend work`,
	Args: cobra.ExactArgs(1),
	RunE: runWriteCSV,
}

func init() {
	writeCSVCmd.Flags().BoolVar(&writeCSVLock, "lock", false, "Lock each day after writing, where supported")
}

func runWriteCSV(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	if len(header) != 3 || header[0] != "date" || header[1] != "hours" || header[2] != "description" {
		return fmt.Errorf("%s: expected a date,hours,description header", args[0])
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

	failed := 0
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		day, err := timeutil.ParseISODate(row[0])
		if err != nil {
			return fmt.Errorf("%s line %d: invalid date %q", args[0], line, row[0])
		}
		hours, err := strconv.ParseFloat(row[1], 64)
		if err != nil || hours <= 0 {
			return fmt.Errorf("%s line %d: invalid hours %q", args[0], line, row[1])
		}

		p.Titlef("%s", timeutil.ISODate(day))
		failed += api.WriteToAll(cmd.Context(), services, hours, row[2], day, writeCSVLock, p)
	}

	if failed > 0 {
		return fmt.Errorf("%d write(s) failed", failed)
	}
	return nil
}
