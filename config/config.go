// Package config handles loading and managing application configuration
// from YAML files, a local .env file and environment variable overrides.
package config

import (
	"fmt"
	"image/color"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// maxLogoFraction caps how much of the symbol a logo may cover. Beyond this
// even the highest correction level stops being reliable.
const maxLogoFraction = 0.3

// LogoConfig controls how a logo is composited onto the QR code.
type LogoConfig struct {
	Fraction  float64 `yaml:"fraction"`
	Padding   int     `yaml:"padding"`
	Shadow    bool    `yaml:"shadow"`
	MaxBytes  int64   `yaml:"max_bytes"`
	MaxPixels int64   `yaml:"max_pixels"`
}

// ColorConfig holds the module colors as hex strings ("#rrggbb").
type ColorConfig struct {
	Dark  string `yaml:"dark"`
	Light string `yaml:"light"`
}

// Config holds all application configuration values.
type Config struct {
	Bind        string      `yaml:"bind"`
	Port        int         `yaml:"port"`
	LogLevel    string      `yaml:"log_level"`
	Sizes       []int       `yaml:"sizes"`
	DefaultSize int         `yaml:"default_size"`
	OutputDir   string      `yaml:"output_dir"`
	NoticeTTL   Duration    `yaml:"notice_ttl"`
	VerifyScan  bool        `yaml:"verify_scan"`
	Colors      ColorConfig `yaml:"colors"`
	Logo        LogoConfig  `yaml:"logo"`
}

// Duration is a wrapper around time.Duration that supports YAML unmarshalling
// from human-readable strings like "3s", "500ms".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Defaults returns a Config populated with sensible default values.
func Defaults() *Config {
	return &Config{
		Bind:        "127.0.0.1",
		Port:        8590,
		LogLevel:    "info",
		Sizes:       []int{128, 256, 512, 1024},
		DefaultSize: 256,
		OutputDir:   ".",
		NoticeTTL:   Duration{3 * time.Second},
		VerifyScan:  false,
		Colors: ColorConfig{
			Dark:  "#000000",
			Light: "#ffffff",
		},
		Logo: LogoConfig{
			Fraction:  0.2,
			Padding:   8,
			Shadow:    true,
			MaxBytes:  10 << 20,
			MaxPixels: 4096 * 4096,
		},
	}
}

// Load reads configuration from the YAML file at path, falling back to
// defaults if the file does not exist. A .env file in the working directory
// is loaded first; environment variables with the QRC_ prefix then override
// any file or default values. The result is validated before it is returned.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// File doesn't exist, proceed with defaults.
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies QRC_* environment variable overrides to cfg. A
// variable that is set but cannot be parsed is an error.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("QRC_BIND"); v != "" {
		cfg.Bind = v
	}
	if v := os.Getenv("QRC_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return envError("QRC_PORT", v, err)
		}
		cfg.Port = p
	}
	if v := os.Getenv("QRC_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("QRC_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("QRC_DEFAULT_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError("QRC_DEFAULT_SIZE", v, err)
		}
		cfg.DefaultSize = n
	}
	if v := os.Getenv("QRC_NOTICE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return envError("QRC_NOTICE_TTL", v, err)
		}
		cfg.NoticeTTL = Duration{d}
	}
	if v := os.Getenv("QRC_LOGO_FRACTION"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return envError("QRC_LOGO_FRACTION", v, err)
		}
		cfg.Logo.Fraction = f
	}
	if v := os.Getenv("QRC_LOGO_MAX_PIXELS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return envError("QRC_LOGO_MAX_PIXELS", v, err)
		}
		cfg.Logo.MaxPixels = n
	}
	if v := os.Getenv("QRC_VERIFY_SCAN"); v != "" {
		b, ok := parseBool(v)
		if !ok {
			return envError("QRC_VERIFY_SCAN", v, nil)
		}
		cfg.VerifyScan = b
	}
	if v := os.Getenv("QRC_LOGO_SHADOW"); v != "" {
		b, ok := parseBool(v)
		if !ok {
			return envError("QRC_LOGO_SHADOW", v, nil)
		}
		cfg.Logo.Shadow = b
	}
	return nil
}

func envError(name, value string, err error) error {
	if err == nil {
		return fmt.Errorf("invalid %s value %q", name, value)
	}
	return fmt.Errorf("invalid %s value %q: %w", name, value, err)
}

func parseBool(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true, true
	case "false", "0", "no":
		return false, true
	}
	return false, false
}

// Validate reports the first configuration value that cannot be used.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d must be in 1..65535", c.Port)
	}
	if len(c.Sizes) == 0 {
		return fmt.Errorf("sizes must not be empty")
	}
	for _, s := range c.Sizes {
		if s <= 0 {
			return fmt.Errorf("size %d must be positive", s)
		}
	}
	if !slices.Contains(c.Sizes, c.DefaultSize) {
		return fmt.Errorf("default_size %d is not one of %v", c.DefaultSize, c.Sizes)
	}
	if c.Logo.Fraction <= 0 || c.Logo.Fraction > maxLogoFraction {
		return fmt.Errorf("logo.fraction %.2f must be in (0, %.2f]", c.Logo.Fraction, maxLogoFraction)
	}
	if c.Logo.Padding < 0 {
		return fmt.Errorf("logo.padding %d must not be negative", c.Logo.Padding)
	}
	if c.Logo.MaxBytes <= 0 {
		return fmt.Errorf("logo.max_bytes must be positive")
	}
	if c.Logo.MaxPixels <= 0 {
		return fmt.Errorf("logo.max_pixels must be positive")
	}
	if c.NoticeTTL.Duration < 0 {
		return fmt.Errorf("notice_ttl must not be negative")
	}
	if _, err := ParseHexColor(c.Colors.Dark); err != nil {
		return fmt.Errorf("colors.dark: %w", err)
	}
	if _, err := ParseHexColor(c.Colors.Light); err != nil {
		return fmt.Errorf("colors.light: %w", err)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// DarkColor returns the parsed dark module color. Call Validate first.
func (c *Config) DarkColor() color.Color {
	col, _ := ParseHexColor(c.Colors.Dark)
	return col
}

// LightColor returns the parsed light module color. Call Validate first.
func (c *Config) LightColor() color.Color {
	col, _ := ParseHexColor(c.Colors.Light)
	return col
}

// ParseHexColor parses "#rgb" or "#rrggbb" into an opaque color.
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// EnsureOutputDir creates OutputDir if it does not already exist.
func (c *Config) EnsureOutputDir() error {
	if err := os.MkdirAll(c.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir %s: %w", c.OutputDir, err)
	}
	return nil
}
