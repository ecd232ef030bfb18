package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listConfigured bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List known timesheet services",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listConfigured, "configured", false, "Only list configured services")
}

func runList(cmd *cobra.Command, args []string) error {
	registry := newRegistry()

	if !listConfigured {
		for _, reg := range registry.All() {
			fmt.Println(reg.Name)
		}
		return nil
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	names, err := registry.ConfiguredNames(store)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
