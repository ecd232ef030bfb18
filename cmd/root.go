package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/brbcoffee/ttcli/internal/api"
	"github.com/brbcoffee/ttcli/internal/config"
	"github.com/brbcoffee/ttcli/internal/noa"
	"github.com/brbcoffee/ttcli/internal/output"
	"github.com/brbcoffee/ttcli/internal/severa"
	"github.com/brbcoffee/ttcli/internal/tripletex"
)

var rootCmd = &cobra.Command{
	Use:   "ttcli",
	Short: "ttcli – write your hours to every timesheet at once",
	Long: `ttcli logs work hours to TripleTex, Visma Severa and Noa Workbook.
Credentials are stored encrypted under your user config directory.`,
	SilenceUsage: true,
}

// Execute is the entry point called from main.
func Execute() {
	// A .env next to the invocation can override defaults; absence is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(writeCSVCmd)
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(tripletexCmd)
	rootCmd.AddCommand(severaCmd)
	rootCmd.AddCommand(noaCmd)
}

// newRegistry enumerates the known providers in their stable order.
func newRegistry() *api.Registry {
	return api.NewRegistry(
		tripletex.Registration(),
		severa.Registration(),
		noa.Registration(),
	)
}

// openStore opens the credential store. When the stored blobs can no longer
// be decrypted (rotated or lost key) the only way forward is to wipe the
// store and reconfigure, which is verified here by reading every entry.
func openStore() (*config.Store, error) {
	store, err := config.Open()
	if err != nil {
		return nil, err
	}
	if _, err := store.List(); err != nil {
		if errors.Is(err, config.ErrDecryptFailed) {
			_ = store.ClearAll()
			_ = store.Close()
			return nil, fmt.Errorf("stored credentials could not be decrypted and have been cleared, run: ttcli configure")
		}
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func stdoutPrinter() *output.Printer {
	return output.NewPrinter(os.Stdout, term.IsTerminal(int(os.Stdout.Fd())))
}
