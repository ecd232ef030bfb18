package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/brbcoffee/ttcli/internal/noa"
	"github.com/brbcoffee/ttcli/internal/output"
	"github.com/brbcoffee/ttcli/internal/severa"
	"github.com/brbcoffee/ttcli/internal/tripletex"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure timesheet services",
}

var configureListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show which services are configured",
	Args:  cobra.NoArgs,
	RunE:  runConfigureList,
}

var configureClearCmd = &cobra.Command{
	Use:   "clear [SERVICE]",
	Short: "Remove stored credentials, for one service or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigureClear,
}

var configureTripletexCmd = &cobra.Command{
	Use:   "tripletex",
	Short: "Configure TripleTex",
	Args:  cobra.NoArgs,
	RunE:  runConfigureTripletex,
}

var configureSeveraCmd = &cobra.Command{
	Use:   "severa",
	Short: "Configure Visma Severa",
	Args:  cobra.NoArgs,
	RunE:  runConfigureSevera,
}

var configureNoaCmd = &cobra.Command{
	Use:   "noa",
	Short: "Configure Noa Workbook",
	Args:  cobra.NoArgs,
	RunE:  runConfigureNoa,
}

func init() {
	configureCmd.AddCommand(configureListCmd)
	configureCmd.AddCommand(configureClearCmd)
	configureCmd.AddCommand(configureTripletexCmd)
	configureCmd.AddCommand(configureSeveraCmd)
	configureCmd.AddCommand(configureNoaCmd)
}

// promptLine reads one line of input after printing a label.
func promptLine(label string) (string, error) {
	fmt.Printf("%s: ", label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads input without echoing it. Falls back to a plain read
// when stdin is not a terminal (pipes, tests).
func promptSecret(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptLine(label)
	}
	fmt.Printf("%s (won't be visible): ", label)
	secret, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}

func runConfigureList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	configs, err := store.List()
	if err != nil {
		return err
	}
	p := stdoutPrinter()
	if len(configs) == 0 {
		p.Dimf("No services configured")
		return nil
	}
	for _, sc := range configs {
		keys := make([]string, 0, len(sc.Config))
		for k := range sc.Config {
			keys = append(keys, k)
		}
		p.Printf("%s: %s\n", p.Styles().Bold.Render(sc.Service), strings.Join(keys, ", "))
	}
	return nil
}

func runConfigureClear(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	p := stdoutPrinter()
	if len(args) == 0 {
		if err := store.ClearAll(); err != nil {
			return err
		}
		p.Successf("Cleared all stored credentials")
		return nil
	}

	reg, ok := newRegistry().Lookup(args[0])
	if !ok {
		return fmt.Errorf("unknown service %q, see: ttcli list", args[0])
	}
	if err := store.Clear(reg.Name); err != nil {
		return err
	}
	p.Successf("Cleared credentials for %s", reg.Name)
	return nil
}

func runConfigureTripletex(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	p := stdoutPrinter()

	p.Warnf("Please fill in your TripleTex credentials")
	token, err := promptSecret("Employee token")
	if err != nil {
		return err
	}
	serviceURL, err := promptLine("Login service url")
	if err != nil {
		return err
	}

	cfg := map[string]string{
		tripletex.EmployeeTokenKey: token,
		tripletex.ServiceURLKey:    serviceURL,
	}
	if err := store.Write(tripletex.ServiceName, cfg); err != nil {
		return err
	}

	client, err := tripletex.New(cfg, store)
	if err != nil {
		return err
	}
	if _, err := client.Employee(cmd.Context()); err != nil {
		p.Errorf("Wrong employee token or service url")
		_ = store.Clear(tripletex.ServiceName)
		return err
	}

	activity, err := chooseActivity(cmd, client, p)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(activity)
	if err != nil {
		return err
	}
	cfg[tripletex.ConfiguredActivityKey] = string(raw)
	if err := store.Write(tripletex.ServiceName, cfg); err != nil {
		return err
	}

	p.Successf("Success!")
	p.Printf("Hours will be logged to %s\n", p.Styles().Bold.Render(activityLabel(activity)))
	return nil
}

// chooseActivity lists the recently used activities and lets the user pick
// the default billing target.
func chooseActivity(cmd *cobra.Command, client *tripletex.Client, p *output.Printer) (*tripletex.ConfiguredActivity, error) {
	recent, err := client.RecentActivities(cmd.Context())
	if err != nil {
		return nil, err
	}

	var choices []tripletex.ConfiguredActivity
	p.Titlef("Recently used activities:")
	for _, activity := range recent.General {
		choices = append(choices, tripletex.ConfiguredActivity{Activity: activity})
		p.Printf("%3d. %s\n", len(choices), activityLabel(&choices[len(choices)-1]))
	}
	for _, pa := range recent.Project {
		project := pa.Project
		for _, activity := range pa.Activities {
			choices = append(choices, tripletex.ConfiguredActivity{
				Activity:  activity,
				Project:   &project,
				IsProject: true,
			})
			p.Printf("%3d. %s\n", len(choices), activityLabel(&choices[len(choices)-1]))
		}
	}
	if len(choices) == 0 {
		return nil, fmt.Errorf("no recent tripletex activities to choose from")
	}

	answer, err := promptLine("Which activity should hours be logged to?")
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(choices) {
		return nil, fmt.Errorf("invalid choice %q", answer)
	}
	return &choices[n-1], nil
}

func activityLabel(ca *tripletex.ConfiguredActivity) string {
	name := ca.Activity.DisplayName
	if name == "" {
		name = ca.Activity.Name
	}
	if ca.Project == nil {
		return name
	}
	project := ca.Project.DisplayName
	if project == "" {
		project = ca.Project.Name
	}
	return project + " / " + name
}

func runConfigureSevera(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	p := stdoutPrinter()

	p.Warnf("Please fill in your Severa credentials")
	username, err := promptLine("Username")
	if err != nil {
		return err
	}
	password, err := promptSecret("Password")
	if err != nil {
		return err
	}

	cfg := map[string]string{
		severa.UsernameKey: username,
		severa.PasswordKey: password,
	}
	if err := store.Write(severa.ServiceName, cfg); err != nil {
		return err
	}

	client, err := severa.New(cfg, store)
	if err != nil {
		return err
	}
	today := time.Now()
	if _, err := client.WorkHours(cmd.Context(), today, today); err != nil {
		p.Errorf("Wrong username or password")
		_ = store.Clear(severa.ServiceName)
		return err
	}

	p.Successf("Success! You are good to go")
	return nil
}

func runConfigureNoa(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	p := stdoutPrinter()

	p.Warnf("Please fill in your Noa credentials")
	username, err := promptLine("Username")
	if err != nil {
		return err
	}
	password, err := promptSecret("Password")
	if err != nil {
		return err
	}

	cfg := map[string]string{
		noa.UsernameKey: username,
		noa.PasswordKey: password,
	}
	if err := store.Write(noa.ServiceName, cfg); err != nil {
		return err
	}

	client, err := noa.New(cfg, store)
	if err != nil {
		return err
	}
	vis, err := client.DayVisualization(cmd.Context(), time.Now())
	if err != nil {
		p.Errorf("Wrong username or password")
		_ = store.Clear(noa.ServiceName)
		return err
	}

	p.Successf("Success! You are good to go")
	p.Printf("Hours will be logged to the following task:\n")
	p.Printf("  Client: %s\n", vis.CustomerName)
	p.Printf("  Job:    %s\n", vis.JobName)
	p.Printf("  Task:   %s\n", vis.TaskDescription)
	return nil
}
