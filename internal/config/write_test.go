package config

import (
	"os"
	"path/filepath"
	"testing"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}
	return string(data)
}

func TestSetKeyInFile_NewKeyEmptyFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "config")

	if err := SetKeyInFile(path, "", "verbose", "true"); err != nil {
		t.Fatalf("SetKeyInFile returned error: %v", err)
	}

	if got := readFile(t, path); got != "verbose true\n" {
		t.Fatalf("expected 'verbose true', got %q", got)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath returned error: %v", err)
	}
	if v, ok := cfg.GetGlobalOption("verbose"); !ok || v != "true" {
		t.Fatalf("expected verbose=true after round-trip, got %q exists=%v", v, ok)
	}
}

func TestSetKeyInFile_GlobalInsertedBeforeSections(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config")
	initial := "# comment\nverbose true\n\n[window]\nmax-cells 50\n"
	if err := os.WriteFile(path, []byte(initial), 0644); err != nil {
		t.Fatalf("failed to write initial config: %v", err)
	}

	if err := SetKeyInFile(path, "", "log.level", "debug"); err != nil {
		t.Fatalf("SetKeyInFile returned error: %v", err)
	}

	want := "# comment\nverbose true\nlog.level debug\n\n[window]\nmax-cells 50\n"
	if got := readFile(t, path); got != want {
		t.Fatalf("unexpected content:\n%s", got)
	}
}

func TestSetKeyInFile_ReplacesInSectionOnly(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config")
	initial := "[scheduler]\nmax-per-tick 3\n\n[window]\nmax-cells 50\ndead-zone 2\n"
	if err := os.WriteFile(path, []byte(initial), 0644); err != nil {
		t.Fatalf("failed to write initial config: %v", err)
	}

	if err := SetKeyInFile(path, "window", "max-cells", "80"); err != nil {
		t.Fatalf("SetKeyInFile returned error: %v", err)
	}
	if err := SetKeyInFile(path, "scheduler", "max-cells", "9"); err != nil {
		t.Fatalf("SetKeyInFile returned error: %v", err)
	}

	want := "[scheduler]\nmax-per-tick 3\nmax-cells 9\n\n[window]\nmax-cells 80\ndead-zone 2\n"
	if got := readFile(t, path); got != want {
		t.Fatalf("unexpected content:\n%s", got)
	}
}

func TestSetKeyInFile_AppendsMissingSection(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte("verbose true\n"), 0644); err != nil {
		t.Fatalf("failed to write initial config: %v", err)
	}

	if err := SetKeyInFile(path, "layout", "default-extent", "30"); err != nil {
		t.Fatalf("SetKeyInFile returned error: %v", err)
	}

	want := "verbose true\n\n[layout]\ndefault-extent 30\n"
	if got := readFile(t, path); got != want {
		t.Fatalf("unexpected content:\n%s", got)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath returned error: %v", err)
	}
	if v, ok := cfg.GetSectionOption("layout", "default-extent"); !ok || v != "30" {
		t.Fatalf("expected layout.default-extent=30, got %q exists=%v", v, ok)
	}
}

func TestSetKeyInFile_EmptyValue(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config")
	if err := SetKeyInFile(path, "", "verbose", ""); err != nil {
		t.Fatalf("SetKeyInFile returned error: %v", err)
	}
	if got := readFile(t, path); got != "verbose\n" {
		t.Fatalf("unexpected content %q", got)
	}
}
