package api

import (
	"fmt"

	"github.com/brbcoffee/ttcli/internal/config"
)

// Factory builds a provider client from its stored config. cfg may be nil
// when the provider has never been configured; factories return a
// *ConfigError when required keys are absent.
type Factory func(cfg map[string]string, store *config.Store) (Service, error)

// Registration describes one known provider: its stable name, the credential
// keys it requires, and its factory.
type Registration struct {
	Name string
	Keys []string
	New  Factory
}

// Registry enumerates the known providers in a stable order.
type Registry struct {
	entries []Registration
}

// NewRegistry creates a registry; iteration order follows the argument order.
func NewRegistry(regs ...Registration) *Registry {
	return &Registry{entries: regs}
}

// All returns every known provider registration.
func (r *Registry) All() []Registration {
	return r.entries
}

// Lookup finds a registration by provider name.
func (r *Registry) Lookup(name string) (Registration, bool) {
	for _, reg := range r.entries {
		if reg.Name == name {
			return reg, true
		}
	}
	return Registration{}, false
}

// ConfiguredNames returns the names of providers whose required keys are all
// present in the store. No provider is constructed and no network I/O occurs.
func (r *Registry) ConfiguredNames(store *config.Store) ([]string, error) {
	var names []string
	for _, reg := range r.entries {
		cfg, err := store.Read(reg.Name)
		if err != nil {
			return nil, err
		}
		if len(MissingKeys(cfg, reg.Keys)) == 0 {
			names = append(names, reg.Name)
		}
	}
	return names, nil
}

// Configured instantiates every configured provider, in registry order.
func (r *Registry) Configured(store *config.Store) ([]Service, error) {
	var services []Service
	for _, reg := range r.entries {
		cfg, err := store.Read(reg.Name)
		if err != nil {
			return nil, err
		}
		if len(MissingKeys(cfg, reg.Keys)) > 0 {
			continue
		}
		svc, err := reg.New(cfg, store)
		if err != nil {
			return nil, fmt.Errorf("constructing %s client: %w", reg.Name, err)
		}
		services = append(services, svc)
	}
	return services, nil
}

// Instantiate constructs one provider by name from its stored config.
func (r *Registry) Instantiate(name string, store *config.Store) (Service, error) {
	reg, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown service %q", name)
	}
	cfg, err := store.Read(reg.Name)
	if err != nil {
		return nil, err
	}
	return reg.New(cfg, store)
}
