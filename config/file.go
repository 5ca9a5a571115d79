package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	neterr "netcall/internal/errors"
)

// fileConfig is the on-disk shape shared by netcall.toml and
// netcall.yaml.  Pointer fields distinguish "absent" from a zero value;
// durations are strings such as "250ms".
type fileConfig struct {
	Listen       *string `toml:"listen" yaml:"listen"`
	Stdio        *bool   `toml:"stdio" yaml:"stdio"`
	Metrics      *string `toml:"metrics" yaml:"metrics"`
	MaxInflight  *int    `toml:"max_inflight" yaml:"max_inflight"`
	MaxTimeout   *string `toml:"max_timeout" yaml:"max_timeout"`
	IOTimeout    *string `toml:"io_timeout" yaml:"io_timeout"`
	PollInterval *string `toml:"poll_interval" yaml:"poll_interval"`
	Verbose      *int    `toml:"verbose" yaml:"verbose"`
}

// LoadFile overlays the settings in path onto cfg.  The format is chosen
// by extension: .toml, or .yaml/.yml.  Keys the file does not set leave
// cfg untouched; unknown keys are an error.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var raw fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		meta, err := toml.Decode(string(data), &raw)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		if undec := meta.Undecoded(); len(undec) > 0 {
			return &neterr.ConfigError{Field: "config", Value: path,
				Message: fmt.Sprintf("unknown key %q", undec[0].String())}
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(strings.NewReader(string(data)))
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("load config %s: %w", path, err)
		}
	default:
		return &neterr.ConfigError{Field: "config", Value: path,
			Message: "unsupported config format " + ext, Hint: "use a .toml, .yaml or .yml file"}
	}

	return raw.apply(cfg)
}

func (f *fileConfig) apply(cfg *Config) error {
	if f.Listen != nil {
		cfg.ListenAddr = strings.TrimSpace(*f.Listen)
	}
	if f.Stdio != nil {
		cfg.Stdio = *f.Stdio
	}
	if f.Metrics != nil {
		cfg.MetricsAddr = strings.TrimSpace(*f.Metrics)
	}
	if f.MaxInflight != nil {
		cfg.MaxInflight = *f.MaxInflight
	}
	if f.Verbose != nil {
		cfg.Verbose = *f.Verbose
	}

	durations := []struct {
		key string
		src *string
		dst *time.Duration
	}{
		{"max-timeout", f.MaxTimeout, &cfg.MaxTimeout},
		{"io-timeout", f.IOTimeout, &cfg.IOTimeout},
		{"poll-interval", f.PollInterval, &cfg.PollInterval},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := ParseDuration(*d.src)
		if err != nil {
			return &neterr.ConfigError{Field: d.key, Value: *d.src, Message: err.Error(),
				Hint: `durations are strings such as "250ms" or "2s"`}
		}
		*d.dst = v
	}
	return nil
}
