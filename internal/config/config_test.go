package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigParsing(t *testing.T) {
	configContent := `# Global options
verbose true
log.level debug

[window]
max-cells 120
buffer-unit items

[scheduler]
max-per-tick 4`

	config, err := LoadFromReader(strings.NewReader(configContent))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if value, ok := config.GetGlobalOption("verbose"); !ok || value != "true" {
		t.Errorf("Expected verbose=true, got %s (exists: %v)", value, ok)
	}

	if value, ok := config.GetGlobalOption("log.level"); !ok || value != "debug" {
		t.Errorf("Expected log.level=debug, got %s (exists: %v)", value, ok)
	}

	if value, ok := config.GetSectionOption("window", "max-cells"); !ok || value != "120" {
		t.Errorf("Expected window.max-cells=120, got %s (exists: %v)", value, ok)
	}

	if value, ok := config.GetSectionOption("scheduler", "max-per-tick"); !ok || value != "4" {
		t.Errorf("Expected scheduler.max-per-tick=4, got %s (exists: %v)", value, ok)
	}

	// section options never fall back to globals
	if value, ok := config.GetSectionOption("window", "verbose"); ok {
		t.Errorf("Expected no fallback, got %s", value)
	}

	if value, ok := config.GetSectionOption("nonexistent", "option"); ok {
		t.Errorf("Expected nonexistent option to not exist, but got %s", value)
	}

	if config.HasWarnings() {
		t.Errorf("Expected no warnings, got %v", config.GetWarnings())
	}
}

func TestEmptyConfig(t *testing.T) {
	config, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Failed to load empty config: %v", err)
	}

	if len(config.Global) != 0 {
		t.Errorf("Expected empty global options, got %d", len(config.Global))
	}

	if len(config.Sections) != 0 {
		t.Errorf("Expected empty sections, got %d", len(config.Sections))
	}
}

func TestConfigWarnings(t *testing.T) {
	configContent := `mystery 1
[window]
max-cells lots
bogus 3
[nowhere]
x y`

	config, err := LoadFromReader(strings.NewReader(configContent))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	warnings := strings.Join(config.GetWarnings(), "\n")
	for _, want := range []string{
		`unknown global option: "mystery"`,
		`option "max-cells" in [window]: expected int, got "lots"`,
		`unknown option in [window]: "bogus"`,
		`unknown section: [nowhere]`,
	} {
		if !strings.Contains(warnings, want) {
			t.Errorf("Expected warning %q in:\n%s", want, warnings)
		}
	}
}

func TestConfigDuplicateOptionWarns(t *testing.T) {
	config, err := LoadFromReader(strings.NewReader("[layout]\ndefault-extent 40\ndefault-extent 60\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if v, _ := config.GetSectionOption("layout", "default-extent"); v != "60" {
		t.Errorf("expected the last value to win, got %q", v)
	}
	warnings := config.GetWarnings()
	if len(warnings) != 1 || !strings.Contains(warnings[0], `line 3: "default-extent" set again`) {
		t.Errorf("unexpected warnings: %q", warnings)
	}
}

func TestConfigEmptySectionName(t *testing.T) {
	if _, err := LoadFromReader(strings.NewReader("[ ]\n")); err == nil {
		t.Fatal("Expected error for empty section name")
	}
}

func TestConfigOptionWithoutValue(t *testing.T) {
	config, err := LoadFromReader(strings.NewReader("verbose\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if value, ok := config.GetGlobalOption("verbose"); !ok || value != "" {
		t.Errorf("Expected empty verbose, got %q (exists: %v)", value, ok)
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	config, err := LoadFromPath(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if len(config.Global) != 0 {
		t.Errorf("Expected empty config")
	}
}

func TestLoadFromPathRejectsSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real")
	if err := os.WriteFile(target, []byte("verbose true\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	link := filepath.Join(dir, "link")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if _, err := LoadFromPath(link); err == nil || !strings.Contains(err.Error(), "symlink not allowed") {
		t.Fatalf("Expected symlink rejection, got %v", err)
	}
}

func TestSetOptions(t *testing.T) {
	config := NewConfig()
	config.SetGlobalOption("verbose", "true")
	config.SetSectionOption("layout", "default-extent", "30")

	if value, ok := config.GetGlobalOption("verbose"); !ok || value != "true" {
		t.Errorf("Expected verbose=true, got %s (exists: %v)", value, ok)
	}
	if value, ok := config.GetSectionOption("layout", "default-extent"); !ok || value != "30" {
		t.Errorf("Expected layout.default-extent=30, got %s (exists: %v)", value, ok)
	}
}
