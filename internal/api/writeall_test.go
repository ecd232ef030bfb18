package api_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/brbcoffee/ttcli/internal/api"
	"github.com/brbcoffee/ttcli/internal/config"
	"github.com/brbcoffee/ttcli/internal/output"
)

// fakeService records calls and fails on demand.
type fakeService struct {
	name     string
	writeErr error
	lockErr  error

	writes int
	locks  int
}

func (f *fakeService) Name() string       { return f.name }
func (f *fakeService) IsConfigured() bool { return true }

func (f *fakeService) WriteHours(_ context.Context, hours float64, description string, day time.Time) error {
	f.writes++
	return f.writeErr
}

func (f *fakeService) LockDay(context.Context, time.Time) error {
	f.locks++
	return f.lockErr
}

func TestWriteToAllContinuesPastFailures(t *testing.T) {
	first := &fakeService{name: "First"}
	broken := &fakeService{name: "Broken", writeErr: errors.New("boom")}
	unconfigured := &fakeService{name: "Unconfigured", writeErr: &api.ConfigError{
		Message:    "Unconfigured is not configured",
		MissingKey: "SOME_KEY",
	}}
	last := &fakeService{name: "Last"}

	var buf bytes.Buffer
	p := output.NewPrinter(&buf, false)
	services := []api.Service{first, broken, unconfigured, last}

	failed := api.WriteToAll(context.Background(), services, 7.5, "work", time.Now(), false, p)
	if failed != 2 {
		t.Errorf("failed = %d, want 2", failed)
	}
	// Every service must be attempted despite earlier failures.
	for _, svc := range []*fakeService{first, broken, unconfigured, last} {
		if svc.writes != 1 {
			t.Errorf("%s writes = %d, want 1", svc.name, svc.writes)
		}
	}

	out := buf.String()
	if !strings.Contains(out, "Error: Broken: boom") {
		t.Errorf("output missing hard failure report:\n%s", out)
	}
	// Config errors are warnings pointing at configure, not hard errors.
	if !strings.Contains(out, "Warning: Unconfigured: Unconfigured is not configured") {
		t.Errorf("output missing config warning:\n%s", out)
	}
}

func TestWriteToAllLocksAfterWriting(t *testing.T) {
	svc := &fakeService{name: "First"}
	failing := &fakeService{name: "Second", writeErr: errors.New("boom")}

	var buf bytes.Buffer
	failed := api.WriteToAll(context.Background(), []api.Service{svc, failing}, 7.5, "work",
		time.Now(), true, output.NewPrinter(&buf, false))
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
	if svc.locks != 1 {
		t.Errorf("locks = %d, want 1", svc.locks)
	}
	// A failed write must not lock the day.
	if failing.locks != 0 {
		t.Errorf("failing service locks = %d, want 0", failing.locks)
	}
}

func TestRegistryConfiguredNames(t *testing.T) {
	store, err := config.OpenAt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenAt: %v", err)
	}
	defer store.Close()

	factory := func(name string) api.Factory {
		return func(cfg map[string]string, _ *config.Store) (api.Service, error) {
			if len(api.MissingKeys(cfg, []string{"KEY"})) > 0 {
				return nil, &api.ConfigError{Message: name + " is not configured", MissingKey: "KEY"}
			}
			return &fakeService{name: name}, nil
		}
	}
	registry := api.NewRegistry(
		api.Registration{Name: "Alpha", Keys: []string{"KEY"}, New: factory("Alpha")},
		api.Registration{Name: "Beta", Keys: []string{"KEY"}, New: factory("Beta")},
	)

	if err := store.Write("Beta", map[string]string{"KEY": "value"}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	names, err := registry.ConfiguredNames(store)
	if err != nil {
		t.Fatalf("ConfiguredNames: %v", err)
	}
	if len(names) != 1 || names[0] != "Beta" {
		t.Errorf("configured = %v, want [Beta]", names)
	}

	services, err := registry.Configured(store)
	if err != nil {
		t.Fatalf("Configured: %v", err)
	}
	if len(services) != 1 || services[0].Name() != "Beta" {
		t.Errorf("services = %v, want just Beta", services)
	}

	if _, err := registry.Instantiate("Gamma", store); err == nil {
		t.Error("Instantiate of an unknown service must fail")
	}
}
