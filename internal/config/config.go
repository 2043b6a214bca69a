// Package config loads runtime settings for the hitreco server and CLI.
//
// Settings are resolved, lowest precedence first, from built-in defaults, an
// optional hitreco.yaml file, HITRECO_* environment variables and command
// line flags bound to the returned viper instance.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/viper"

	"github.com/ironsheep/hit-reco-mcp/internal/detection"
	"github.com/ironsheep/hit-reco-mcp/internal/imaging"
	"github.com/ironsheep/hit-reco-mcp/internal/logging"
)

// EnvPrefix is prepended to every environment variable, with dots in keys
// replaced by underscores: overlay.scale is HITRECO_OVERLAY_SCALE.
const EnvPrefix = "HITRECO"

// Setting keys.
const (
	KeyLogLevel            = "log_level"
	KeyLogFormat           = "log_format"
	KeyThreshold           = "threshold"
	KeyOverlayScale        = "overlay.scale"
	KeyOverlayBoxHalfWidth = "overlay.box_half_width"
	KeyOverlayColors       = "overlay.colors"
)

// Config holds the resolved settings.
type Config struct {
	LogLevel  string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string        `mapstructure:"log_format" yaml:"log_format"`
	Threshold int           `mapstructure:"threshold" yaml:"threshold"`
	Overlay   OverlayConfig `mapstructure:"overlay" yaml:"overlay"`
}

// OverlayConfig holds the overlay rendering defaults.
type OverlayConfig struct {
	Scale        int               `mapstructure:"scale" yaml:"scale"`
	BoxHalfWidth int               `mapstructure:"box_half_width" yaml:"box_half_width"`
	Colors       map[string]string `mapstructure:"colors" yaml:"colors"`
}

// New returns a viper instance with defaults and environment overrides set
// up. Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, logging.FormatConsole)
	v.SetDefault(KeyThreshold, 1)
	v.SetDefault(KeyOverlayScale, 4)
	v.SetDefault(KeyOverlayBoxHalfWidth, 0)
	for shape, hex := range imaging.DefaultColors {
		v.SetDefault(KeyOverlayColors+"."+string(shape), hex)
	}

	// Enable environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the config file and returns the validated settings.
//
// An empty path searches for hitreco.yaml in the working directory and in
// $HOME/.config/hitreco; finding none is not an error. A non-empty path must
// exist.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("hitreco")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/hitreco")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects out-of-range settings.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	switch c.LogFormat {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("log_format must be %q or %q, got %q", logging.FormatConsole, logging.FormatJSON, c.LogFormat)
	}
	if c.Threshold < 1 || c.Threshold > 255 {
		return fmt.Errorf("threshold must be between 1 and 255, got %d", c.Threshold)
	}
	if c.Overlay.Scale < 1 {
		return fmt.Errorf("overlay.scale must be at least 1, got %d", c.Overlay.Scale)
	}
	if c.Overlay.BoxHalfWidth < 0 {
		return fmt.Errorf("overlay.box_half_width must not be negative, got %d", c.Overlay.BoxHalfWidth)
	}
	for shape, hex := range c.Overlay.Colors {
		if _, err := colorful.Hex(hex); err != nil {
			return fmt.Errorf("overlay.colors.%s: invalid color %q", shape, hex)
		}
	}
	return nil
}

// ThresholdLevel returns Threshold as an 8-bit luminance level. Validate
// guarantees it fits.
func (c *Config) ThresholdLevel() uint8 {
	return uint8(c.Threshold)
}

// OverlayOptions converts the overlay settings for the imaging package.
func (c *Config) OverlayOptions() imaging.OverlayOptions {
	colors := make(map[detection.ShapeType]string, len(c.Overlay.Colors))
	for shape, hex := range c.Overlay.Colors {
		colors[detection.ShapeType(shape)] = hex
	}
	return imaging.OverlayOptions{
		Scale:        c.Overlay.Scale,
		BoxHalfWidth: c.Overlay.BoxHalfWidth,
		Colors:       colors,
	}
}
