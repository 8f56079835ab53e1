package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// --- ConfigSchema tests ---

func TestSchemaRegister(t *testing.T) {
	t.Parallel()
	s := NewSchema()
	s.Register(ConfigOption{Key: "verbose", Type: TypeBool, Section: ""})
	s.Register(ConfigOption{Key: "max-cells", Type: TypeInt, Section: "window"})

	if !s.IsKnown("", "verbose") {
		t.Error("expected 'verbose' to be known globally")
	}
	if !s.IsKnown("window", "max-cells") {
		t.Error("expected 'max-cells' to be known in [window]")
	}
	if s.IsKnown("window", "verbose") {
		t.Error("expected global 'verbose' to not be known in [window]")
	}
	if s.IsKnown("", "nonexistent") {
		t.Error("expected 'nonexistent' to not be known")
	}
}

func TestSchemaLookup(t *testing.T) {
	t.Parallel()
	s := NewSchema()
	s.Register(ConfigOption{Key: "log.level", Type: TypeString, Default: "info", Section: ""})
	s.Register(ConfigOption{Key: "dead-zone", Type: TypeFloat, Section: "window"})

	opt := s.Lookup("", "log.level")
	if opt == nil || opt.Key != "log.level" || opt.Default != "info" {
		t.Fatalf("unexpected Lookup result: %+v", opt)
	}

	opt = s.Lookup("window", "dead-zone")
	if opt == nil || opt.Type != TypeFloat {
		t.Fatalf("unexpected Lookup result for window.dead-zone: %+v", opt)
	}

	if opt := s.Lookup("nosection", "nokey"); opt != nil {
		t.Fatalf("expected nil for nosection.nokey, got %+v", opt)
	}
}

func TestSchemaSections(t *testing.T) {
	t.Parallel()
	got := DefaultSchema().Sections()
	want := []string{"engine", "layout", "scheduler", "viewability", "window"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected sections %v, got %v", want, got)
	}
}

func TestSchemaDuplicateOverwrites(t *testing.T) {
	t.Parallel()
	s := NewSchema()
	s.Register(ConfigOption{Key: "x", Section: "a", Default: "1"})
	s.Register(ConfigOption{Key: "x", Section: "a", Default: "2"})
	if got := s.Lookup("a", "x").Default; got != "2" {
		t.Fatalf("expected last registration to win, got %q", got)
	}
}

func TestValidateConfig_AllValid(t *testing.T) {
	t.Parallel()
	c := NewConfig()
	c.SetGlobalOption("verbose", "yes")
	c.SetSectionOption("window", "velocity-bias", "0.25")
	c.SetSectionOption("engine", "sticky", "0, 5,9")
	c.SetSectionOption("viewability", "minimum-view-time", "1s")
	if issues := ValidateConfig(c, DefaultSchema()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}
}

func TestValidateType(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		typ   OptionType
		value string
		ok    bool
	}{
		{TypeString, "anything", true},
		{TypeBool, "on", true},
		{TypeBool, "maybe", false},
		{TypeInt, "42", true},
		{TypeInt, "4.2", false},
		{TypeFloat, "4.2", true},
		{TypeFloat, "x", false},
		{TypeDuration, "250ms", true},
		{TypeDuration, "250", false},
		{TypeIntList, "1,2, 3", true},
		{TypeIntList, "", true},
		{TypeIntList, "1,a", false},
		{OptionType("nope"), "", false},
	} {
		err := validateType(tc.typ, tc.value)
		if (err == nil) != tc.ok {
			t.Errorf("validateType(%s, %q) = %v, want ok=%v", tc.typ, tc.value, err, tc.ok)
		}
	}
}

func TestParseIntList(t *testing.T) {
	t.Parallel()
	got, err := ParseIntList(" 3, ,10,0 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []int{3, 10, 0}) {
		t.Fatalf("unexpected list: %v", got)
	}
}

func TestGetBool(t *testing.T) {
	t.Parallel()
	c := NewConfig()
	c.SetGlobalOption("verbose", "yes")
	c.SetGlobalOption("bad", "x")

	if !c.GetBool("verbose") || c.GetBool("bad") || c.GetBool("missing") {
		t.Error("unexpected GetBool results")
	}
}

func TestSchemaResolve(t *testing.T) {
	s := DefaultSchema()
	c := NewConfig()

	if got := s.Resolve(c, "log.level"); got != "info" {
		t.Fatalf("expected schema default, got %q", got)
	}
	c.SetGlobalOption("log.level", "warn")
	if got := s.Resolve(c, "log.level"); got != "warn" {
		t.Fatalf("expected config value, got %q", got)
	}
	t.Setenv("VLIST_LOG_LEVEL", "debug")
	if got := s.Resolve(c, "log.level"); got != "debug" {
		t.Fatalf("expected env override, got %q", got)
	}

	if got := s.ResolveSection(c, "window", "max-cells"); got != "200" {
		t.Fatalf("expected schema default for max-cells, got %q", got)
	}
	c.SetSectionOption("window", "max-cells", "50")
	if got, err := s.ResolveInt(c, "window", "max-cells"); err != nil || got != 50 {
		t.Fatalf("expected 50, got %d (%v)", got, err)
	}
	t.Setenv("VLIST_MAX_CELLS", "75")
	if got, err := s.ResolveInt(c, "window", "max-cells"); err != nil || got != 75 {
		t.Fatalf("expected env override 75, got %d (%v)", got, err)
	}
}

func TestSchemaResolveTyped(t *testing.T) {
	t.Parallel()
	s := DefaultSchema()
	c := NewConfig()

	if d, err := s.ResolveDuration(c, "viewability", "minimum-view-time"); err != nil || d != 250*time.Millisecond {
		t.Fatalf("unexpected duration %v (%v)", d, err)
	}
	if f, err := s.ResolveFloat(c, "window", "velocity-bias"); err != nil || f != 0.5 {
		t.Fatalf("unexpected float %v (%v)", f, err)
	}
	if b, err := s.ResolveBool(c, "viewability", "wait-for-interaction"); err != nil || b {
		t.Fatalf("unexpected bool %v (%v)", b, err)
	}
	if l, err := s.ResolveIntList(c, "engine", "sticky"); err != nil || len(l) != 0 {
		t.Fatalf("unexpected list %v (%v)", l, err)
	}

	c.SetSectionOption("window", "velocity-bias", "fast")
	if _, err := s.ResolveFloat(c, "window", "velocity-bias"); err == nil || !strings.Contains(err.Error(), "[window] velocity-bias") {
		t.Fatalf("expected descriptive error, got %v", err)
	}
}

func TestFormatHelp(t *testing.T) {
	t.Parallel()
	help := DefaultSchema().FormatHelp()
	for _, want := range []string{
		"Global Options:",
		"[window] Options:",
		"max-cells",
		"env: VLIST_MAX_CELLS",
		"type: duration",
	} {
		if !strings.Contains(help, want) {
			t.Errorf("expected %q in help:\n%s", want, help)
		}
	}
	if got := NewSchema().FormatHelp(); got != "" {
		t.Errorf("expected empty help, got %q", got)
	}
}
