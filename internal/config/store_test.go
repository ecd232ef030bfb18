package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/brbcoffee/ttcli/internal/config"
)

func TestReadMissingService(t *testing.T) {
	store, err := config.OpenAt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenAt: %v", err)
	}
	defer store.Close()

	cfg, err := store.Read("TripleTex")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if cfg != nil {
		t.Errorf("Read = %v, want nil for unconfigured service", cfg)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	store, err := config.OpenAt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenAt: %v", err)
	}
	defer store.Close()

	in := map[string]string{
		"NOA_USERNAME": "alice",
		"NOA_PASSWORD": "s3cret",
	}
	if err := store.Write("Noa Workbook", in); err != nil {
		t.Fatalf("Write: %v", err)
	}

	out, err := store.Read("Noa Workbook")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if out["NOA_USERNAME"] != "alice" || out["NOA_PASSWORD"] != "s3cret" {
		t.Errorf("Read = %v, want %v", out, in)
	}
}

func TestWriteReplacesExisting(t *testing.T) {
	store, err := config.OpenAt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenAt: %v", err)
	}
	defer store.Close()

	if err := store.Write("Severa", map[string]string{"SEVERA_USERNAME": "old"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := store.Write("Severa", map[string]string{"SEVERA_USERNAME": "new"}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	out, err := store.Read("Severa")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if out["SEVERA_USERNAME"] != "new" {
		t.Errorf("SEVERA_USERNAME = %q, want %q", out["SEVERA_USERNAME"], "new")
	}
}

func TestClearAndList(t *testing.T) {
	store, err := config.OpenAt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenAt: %v", err)
	}
	defer store.Close()

	if err := store.Write("TripleTex", map[string]string{"TT_EMPLOYEE_TOKEN": "tok"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := store.Write("Severa", map[string]string{"SEVERA_USERNAME": "alice"}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := store.Clear("TripleTex"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	configs, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(configs) != 1 {
		t.Fatalf("List returned %d configs, want 1", len(configs))
	}
	if configs[0].Service != "Severa" {
		t.Errorf("remaining service = %q, want %q", configs[0].Service, "Severa")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := config.OpenAt(dir)
	if err != nil {
		t.Fatalf("OpenAt: %v", err)
	}
	if err := store.Write("TripleTex", map[string]string{"TT_SERVICE_URL": "https://login.example"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := config.OpenAt(dir)
	if err != nil {
		t.Fatalf("OpenAt (reopen): %v", err)
	}
	defer reopened.Close()

	cfg, err := reopened.Read("TripleTex")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if cfg["TT_SERVICE_URL"] != "https://login.example" {
		t.Errorf("TT_SERVICE_URL = %q, want %q", cfg["TT_SERVICE_URL"], "https://login.example")
	}
}

func TestRotatedKeyFailsDecryption(t *testing.T) {
	dir := t.TempDir()

	store, err := config.OpenAt(dir)
	if err != nil {
		t.Fatalf("OpenAt: %v", err)
	}
	if err := store.Write("Severa", map[string]string{"SEVERA_PASSWORD": "hunter2"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Simulate a rotated/corrupted key: the store must surface a
	// distinguished error so the caller can clear all stored config.
	if err := os.Remove(filepath.Join(dir, "key")); err != nil {
		t.Fatalf("removing key: %v", err)
	}

	reopened, err := config.OpenAt(dir)
	if err != nil {
		t.Fatalf("OpenAt (reopen): %v", err)
	}
	defer reopened.Close()

	_, err = reopened.Read("Severa")
	if !errors.Is(err, config.ErrDecryptFailed) {
		t.Errorf("Read error = %v, want ErrDecryptFailed", err)
	}
}
