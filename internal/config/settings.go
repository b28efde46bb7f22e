package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// FLOWCOUNT_OUTPUT_CSV=/tmp/counts.csv.
const EnvPrefix = "FLOWCOUNT"

// Settings holds application-level configuration: where inputs come from,
// where artefacts go, and the optional live surfaces.
type Settings struct {
	Source     string `mapstructure:"source" toml:"source"`
	Directions string `mapstructure:"directions" toml:"directions"`
	Tuning     string `mapstructure:"tuning" toml:"tuning"`

	Output OutputSettings `mapstructure:"output" toml:"output"`
	DB     DBSettings     `mapstructure:"db" toml:"db"`
	UI     UISettings     `mapstructure:"ui" toml:"ui"`
}

// OutputSettings names the end-of-run artefacts. Empty paths disable the
// chart and timeline.
type OutputSettings struct {
	CSV      string `mapstructure:"csv" toml:"csv"`
	Chart    string `mapstructure:"chart" toml:"chart"`
	Timeline string `mapstructure:"timeline" toml:"timeline"`
}

// DBSettings controls the run database. An empty path disables it.
type DBSettings struct {
	Path string `mapstructure:"path" toml:"path"`
}

// UISettings controls the live surfaces.
type UISettings struct {
	Window      bool    `mapstructure:"window" toml:"window"`
	Terminal    bool    `mapstructure:"terminal" toml:"terminal"`
	RenderHz    float64 `mapstructure:"render_hz" toml:"render_hz"`
	MonitorAddr string  `mapstructure:"monitor_addr" toml:"monitor_addr"`
	Verbose     bool    `mapstructure:"verbose" toml:"verbose"`
}

// setDefaults registers the built-in values on v.
func setDefaults(v *viper.Viper) {
	v.SetDefault("source", "0")
	v.SetDefault("directions", "traffic_directions.json")
	v.SetDefault("tuning", "")
	v.SetDefault("output.csv", "traffic_counts.csv")
	v.SetDefault("output.chart", "")
	v.SetDefault("output.timeline", "")
	v.SetDefault("db.path", "")
	v.SetDefault("ui.window", true)
	v.SetDefault("ui.terminal", false)
	v.SetDefault("ui.render_hz", 2.0)
	v.SetDefault("ui.monitor_addr", "")
	v.SetDefault("ui.verbose", false)
}

// NewViper returns a viper instance with defaults, env overrides and, when
// path is non-empty, the given TOML file. A missing file named explicitly is
// an error; with no path the working directory's flowcount.toml is read if
// present.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings %q: %w", path, err)
		}
		return v, nil
	}

	v.SetConfigName("flowcount")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}
	return v, nil
}

// LoadSettings decodes the effective settings from v.
func LoadSettings(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	if s.UI.RenderHz < 0 {
		return Settings{}, fmt.Errorf("ui.render_hz must be non-negative, got %f", s.UI.RenderHz)
	}
	return s, nil
}
