package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// OptionType represents the expected type of a configuration option value.
type OptionType string

const (
	// TypeString is a plain string value (the default for all config values).
	TypeString OptionType = "string"
	// TypeBool is a boolean value (true/false/yes/no/1/0/on/off).
	TypeBool OptionType = "bool"
	// TypeInt is an integer value.
	TypeInt OptionType = "int"
	// TypeDuration is a Go time.Duration value (e.g. "30s", "5m", "1h").
	TypeDuration OptionType = "duration"
	// TypeFloat is a floating point value.
	TypeFloat OptionType = "float"
	// TypeIntList is a comma-separated list of integers.
	TypeIntList OptionType = "int-list"
)

// ConfigOption declares a single configuration option with its type, default,
// documentation, and environment variable override.
type ConfigOption struct {
	// Key is the option name as it appears in the config file (kebab-case).
	Key string
	// Type is the expected value type for validation.
	Type OptionType
	// Default is the default value as a string, or "" for no default.
	Default string
	// Description is a human-readable description of the option.
	Description string
	// Section is "" for global options, or a section name.
	Section string
	// EnvVar is the environment variable that overrides this option, or "".
	EnvVar string
}

// ConfigSchema declares the expected configuration options for the application.
// It is used for validation, documentation, typed getters, and env var mapping.
type ConfigSchema struct {
	options []*ConfigOption
	// byKey indexes global options by key for fast lookup.
	byKey map[string]*ConfigOption
	// bySection indexes section options by section then key.
	bySection map[string]map[string]*ConfigOption
}

// NewSchema creates a new empty ConfigSchema.
func NewSchema() *ConfigSchema {
	return &ConfigSchema{
		byKey:     make(map[string]*ConfigOption),
		bySection: make(map[string]map[string]*ConfigOption),
	}
}

// Register adds a ConfigOption to the schema. Duplicate keys within the same
// section are silently overwritten (last registration wins).
func (s *ConfigSchema) Register(opt ConfigOption) {
	ref := new(ConfigOption)
	*ref = opt
	s.options = append(s.options, ref)
	if opt.Section == "" {
		s.byKey[opt.Key] = ref
	} else {
		if s.bySection[opt.Section] == nil {
			s.bySection[opt.Section] = make(map[string]*ConfigOption)
		}
		s.bySection[opt.Section][opt.Key] = ref
	}
}

// RegisterAll adds multiple ConfigOptions to the schema.
func (s *ConfigSchema) RegisterAll(opts []ConfigOption) {
	for _, opt := range opts {
		s.Register(opt)
	}
}

// Lookup returns the ConfigOption for a key in a given section ("" for global).
// Returns nil if the key is not registered.
func (s *ConfigSchema) Lookup(section, key string) *ConfigOption {
	if section == "" {
		return s.byKey[key]
	}
	if sec, ok := s.bySection[section]; ok {
		return sec[key]
	}
	return nil
}

// IsKnown returns true if the key is registered in the given section.
func (s *ConfigSchema) IsKnown(section, key string) bool {
	return s.Lookup(section, key) != nil
}

// GlobalOptions returns all registered global options (Section == "").
func (s *ConfigSchema) GlobalOptions() []ConfigOption {
	var out []ConfigOption
	for _, o := range s.options {
		if o.Section == "" {
			out = append(out, *o)
		}
	}
	return out
}

// SectionOptions returns all registered options for a specific section.
func (s *ConfigSchema) SectionOptions(section string) []ConfigOption {
	var out []ConfigOption
	for _, o := range s.options {
		if o.Section == section {
			out = append(out, *o)
		}
	}
	return out
}

// Sections returns a sorted list of all registered non-empty section names.
func (s *ConfigSchema) Sections() []string {
	seen := make(map[string]bool)
	for sec := range s.bySection {
		seen[sec] = true
	}
	out := make([]string, 0, len(seen))
	for sec := range seen {
		out = append(out, sec)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the effective value for a global config key by checking,
// in order: (1) the environment variable declared in the schema for this key,
// (2) the config value, (3) the schema default. Returns "" if the key is not
// found anywhere.
func (s *ConfigSchema) Resolve(c *Config, key string) string {
	return s.ResolveSection(c, "", key)
}

// ResolveSection is Resolve for an option of a section ("" for global).
func (s *ConfigSchema) ResolveSection(c *Config, section, key string) string {
	opt := s.Lookup(section, key)
	// Check env var override from schema.
	if opt != nil && opt.EnvVar != "" {
		if v, ok := os.LookupEnv(opt.EnvVar); ok {
			return v
		}
	}
	// Check config value.
	var (
		v  string
		ok bool
	)
	if section == "" {
		v, ok = c.GetGlobalOption(key)
	} else {
		v, ok = c.GetSectionOption(section, key)
	}
	if ok {
		return v
	}
	// Fall back to schema default.
	if opt != nil {
		return opt.Default
	}
	return ""
}

// ValidateConfig checks a loaded Config against the schema and returns a list
// of human-readable issues (empty if the config is valid). Validation includes:
//   - Unknown global options (not in schema)
//   - Unknown sections, and unknown options within known sections
//   - Type mismatches for options with declared types
func ValidateConfig(c *Config, s *ConfigSchema) []string {
	var issues []string

	// Validate global options.
	for key, value := range c.Global {
		opt := s.Lookup("", key)
		if opt == nil {
			issues = append(issues, fmt.Sprintf("unknown global option: %q (value: %q)", key, value))
			continue
		}
		if err := validateType(opt.Type, value); err != nil {
			issues = append(issues, fmt.Sprintf("global option %q: %v", key, err))
		}
	}

	// Validate section options.
	for section, opts := range c.Sections {
		if _, ok := s.bySection[section]; !ok {
			issues = append(issues, fmt.Sprintf("unknown section: [%s]", section))
			continue
		}
		for key, value := range opts {
			opt := s.Lookup(section, key)
			if opt == nil {
				issues = append(issues, fmt.Sprintf("unknown option in [%s]: %q (value: %q)", section, key, value))
				continue
			}
			if err := validateType(opt.Type, value); err != nil {
				issues = append(issues, fmt.Sprintf("option %q in [%s]: %v", key, section, err))
			}
		}
	}

	sort.Strings(issues)
	return issues
}

// validateType checks that a string value matches the expected OptionType.
func validateType(t OptionType, value string) error {
	switch t {
	case TypeString, "":
		return nil
	case TypeBool:
		if _, err := parseBool(value); err != nil {
			return fmt.Errorf("expected bool, got %q", value)
		}
	case TypeInt:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("expected int, got %q", value)
		}
	case TypeFloat:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("expected float, got %q", value)
		}
	case TypeDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("expected duration, got %q", value)
		}
	case TypeIntList:
		if _, err := ParseIntList(value); err != nil {
			return fmt.Errorf("expected comma-separated ints, got %q", value)
		}
	default:
		return fmt.Errorf("unknown option type %q", t)
	}
	return nil
}


// ParseIntList parses a comma-separated list of integers. Blank entries are
// skipped.
func ParseIntList(value string) ([]int, error) {
	var out []int
	for _, field := range strings.Split(value, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		i, err := strconv.Atoi(field)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, nil
}

// GetBool reports whether the global option key is set to a true value.
// Unset and unparsable values are false.
func (c *Config) GetBool(key string) bool {
	v, ok := c.GetGlobalOption(key)
	if !ok {
		return false
	}
	b, _ := parseBool(v)
	return b
}

// --- Typed resolution of section options ---

// ResolveInt resolves a section option as an int. An empty value resolves to
// 0 without error.
func (s *ConfigSchema) ResolveInt(c *Config, section, key string) (int, error) {
	v := strings.TrimSpace(s.ResolveSection(c, section, key))
	if v == "" {
		return 0, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("[%s] %s: expected int, got %q", section, key, v)
	}
	return i, nil
}

// ResolveFloat resolves a section option as a float64.
func (s *ConfigSchema) ResolveFloat(c *Config, section, key string) (float64, error) {
	v := strings.TrimSpace(s.ResolveSection(c, section, key))
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("[%s] %s: expected float, got %q", section, key, v)
	}
	return f, nil
}

// ResolveBool resolves a section option as a bool.
func (s *ConfigSchema) ResolveBool(c *Config, section, key string) (bool, error) {
	v := strings.TrimSpace(s.ResolveSection(c, section, key))
	if v == "" {
		return false, nil
	}
	b, err := parseBool(v)
	if err != nil {
		return false, fmt.Errorf("[%s] %s: expected bool, got %q", section, key, v)
	}
	return b, nil
}

// ResolveDuration resolves a section option as a time.Duration.
func (s *ConfigSchema) ResolveDuration(c *Config, section, key string) (time.Duration, error) {
	v := strings.TrimSpace(s.ResolveSection(c, section, key))
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("[%s] %s: expected duration, got %q", section, key, v)
	}
	return d, nil
}

// ResolveIntList resolves a section option as a list of ints.
func (s *ConfigSchema) ResolveIntList(c *Config, section, key string) ([]int, error) {
	v := s.ResolveSection(c, section, key)
	out, err := ParseIntList(v)
	if err != nil {
		return nil, fmt.Errorf("[%s] %s: expected comma-separated ints, got %q", section, key, v)
	}
	return out, nil
}

// --- Help text generation ---

// FormatHelp returns a formatted, human-readable reference of all registered
// options in the schema, grouped by section.
func (s *ConfigSchema) FormatHelp() string {
	var b strings.Builder

	// Global options first.
	globals := s.GlobalOptions()
	if len(globals) > 0 {
		b.WriteString("Global Options:\n")
		for _, o := range globals {
			writeOptionHelp(&b, o)
		}
	}

	for _, sec := range s.Sections() {
		opts := s.SectionOptions(sec)
		if len(opts) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n[%s] Options:\n", sec)
		for _, o := range opts {
			writeOptionHelp(&b, o)
		}
	}

	return b.String()
}

// DefaultFile renders a config file in which every option is present but
// commented out at its default, grouped by section.
func (s *ConfigSchema) DefaultFile() string {
	var b strings.Builder
	b.WriteString("# vlist configuration\n")
	b.WriteString("# Format: optionName remainingLineIsTheValue\n")
	for _, o := range s.GlobalOptions() {
		writeOptionDefault(&b, o)
	}
	for _, sec := range s.Sections() {
		fmt.Fprintf(&b, "\n[%s]\n", sec)
		for _, o := range s.SectionOptions(sec) {
			writeOptionDefault(&b, o)
		}
	}
	return b.String()
}

func writeOptionDefault(b *strings.Builder, o ConfigOption) {
	fmt.Fprintf(b, "# %s\n# %s %s\n", o.Description, o.Key, o.Default)
}

func writeOptionHelp(b *strings.Builder, o ConfigOption) {
	fmt.Fprintf(b, "  %-30s %s", o.Key, o.Description)
	parts := make([]string, 0, 3)
	if o.Type != "" && o.Type != TypeString {
		parts = append(parts, fmt.Sprintf("type: %s", o.Type))
	}
	if o.Default != "" {
		parts = append(parts, fmt.Sprintf("default: %s", o.Default))
	}
	if o.EnvVar != "" {
		parts = append(parts, fmt.Sprintf("env: %s", o.EnvVar))
	}
	if len(parts) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteString("\n")
}

// --- Default schema for vlist ---

// Section names.
const (
	SectionWindow      = "window"
	SectionScheduler   = "scheduler"
	SectionLayout      = "layout"
	SectionViewability = "viewability"
	SectionEngine      = "engine"
)

// DefaultSchema returns the canonical schema declaring all known vlist
// configuration options. This is the single source of truth for option names,
// types, defaults, descriptions, and environment variable overrides.
func DefaultSchema() *ConfigSchema {
	s := NewSchema()
	s.RegisterAll(defaultGlobalOptions())
	s.RegisterAll(defaultSectionOptions())
	return s
}

func defaultGlobalOptions() []ConfigOption {
	return []ConfigOption{
		{Key: "verbose", Type: TypeBool, Default: "false", Description: "Enable verbose output"},
		{Key: "log.file", Type: TypeString, Default: "", Description: "Log file path (JSON output)", EnvVar: "VLIST_LOG_FILE"},
		{Key: "log.level", Type: TypeString, Default: "info", Description: "Log level: debug, info, warn, error", EnvVar: "VLIST_LOG_LEVEL"},
		{Key: "log.buffer-size", Type: TypeInt, Default: "1000", Description: "In-memory log buffer size (entries)"},
	}
}

func defaultSectionOptions() []ConfigOption {
	return []ConfigOption{
		// [window]
		{Key: "initial-num-to-render", Section: SectionWindow, Type: TypeInt, Default: "10", Description: "Items rendered before the first scroll event"},
		{Key: "buffer-unit", Section: SectionWindow, Type: TypeString, Default: "viewports", Description: "Unit of the buffers: items or viewports"},
		{Key: "buffer-behind", Section: SectionWindow, Type: TypeFloat, Default: "2", Description: "Buffer kept behind the visible span"},
		{Key: "buffer-ahead", Section: SectionWindow, Type: TypeFloat, Default: "2", Description: "Buffer kept ahead of the visible span"},
		{Key: "max-cells", Section: SectionWindow, Type: TypeInt, Default: "200", Description: "Maximum resident cells, sticky cells included", EnvVar: "VLIST_MAX_CELLS"},
		{Key: "velocity-bias", Section: SectionWindow, Type: TypeFloat, Default: "0.5", Description: "Fraction of the trailing buffer moved ahead while scrolling"},
		{Key: "dead-zone", Section: SectionWindow, Type: TypeFloat, Default: "1", Description: "Offset change below which the window is not recomputed"},

		// [scheduler]
		{Key: "max-per-tick", Section: SectionScheduler, Type: TypeInt, Default: "10", Description: "Mount plus unmount operations per host tick"},

		// [layout]
		{Key: "default-extent", Section: SectionLayout, Type: TypeFloat, Default: "50", Description: "Extent assumed before any item is measured"},

		// [viewability]
		{Key: "item-visible-percent", Section: SectionViewability, Type: TypeFloat, Default: "0", Description: "Percent of an item that must be visible"},
		{Key: "view-area-coverage-percent", Section: SectionViewability, Type: TypeFloat, Default: "0", Description: "Percent of the viewport an item must cover"},
		{Key: "minimum-view-time", Section: SectionViewability, Type: TypeDuration, Default: "250ms", Description: "Time above threshold before an item is viewable"},
		{Key: "wait-for-interaction", Section: SectionViewability, Type: TypeBool, Default: "false", Description: "Hold viewability timers until the first interaction"},

		// [engine]
		{Key: "sticky", Section: SectionEngine, Type: TypeIntList, Default: "", Description: "Indices kept resident outside the window"},
		{Key: "end-reached-threshold", Section: SectionEngine, Type: TypeFloat, Default: "2", Description: "Viewports from the end at which end-reached fires (0 disables)"},
		{Key: "scroll-animation", Section: SectionEngine, Type: TypeDuration, Default: "300ms", Description: "Duration of animated programmatic scrolls"},
		{Key: "frame-interval", Section: SectionEngine, Type: TypeDuration, Default: "16ms", Description: "Interval between scroll animation frames"},
	}
}
