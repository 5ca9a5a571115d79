package config

import (
	"strings"
	"testing"
	"time"

	neterr "netcall/internal/errors"
)

func TestDefault_Valid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

// ── Validate ─────────────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string // empty means valid
	}{
		{"defaults", func(*Config) {}, ""},
		{"stdio without listen", func(c *Config) { c.Stdio = true; c.ListenAddr = "" }, ""},
		{"no listen", func(c *Config) { c.ListenAddr = "" }, "listen"},
		{"listen no port", func(c *Config) { c.ListenAddr = "localhost" }, "listen"},
		{"listen all interfaces", func(c *Config) { c.ListenAddr = ":7070" }, ""},
		{"bad metrics", func(c *Config) { c.MetricsAddr = "9090" }, "metrics"},
		{"metrics ok", func(c *Config) { c.MetricsAddr = ":9090" }, ""},
		{"zero inflight", func(c *Config) { c.MaxInflight = 0 }, "max-inflight"},
		{"negative max timeout", func(c *Config) { c.MaxTimeout = -time.Second }, "max-timeout"},
		{"uncapped max timeout", func(c *Config) { c.MaxTimeout = 0 }, ""},
		{"negative io timeout", func(c *Config) { c.IOTimeout = -1 }, "io-timeout"},
		{"zero poll", func(c *Config) { c.PollInterval = 0 }, "poll-interval"},
		{"poll above cap", func(c *Config) { c.MaxTimeout = time.Second; c.PollInterval = 2 * time.Second }, "poll-interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ce *neterr.ConfigError
			if !neterr.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if ce.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ce.Field, tt.wantField)
			}
		})
	}
}

// TestValidate_ErrorMessages verifies that Validate returns actionable
// error messages with hints.
func TestValidate_ErrorMessages(t *testing.T) {
	cfg := Default()
	cfg.ListenAddr = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, sub := range []string{"--listen", "hint:", "--stdio"} {
		if !strings.Contains(err.Error(), sub) {
			t.Errorf("error %q should contain %q", err.Error(), sub)
		}
	}
}

// ── ParseDuration ────────────────────────────────────────────────────

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"250ms", 250 * time.Millisecond, false},
		{"2s", 2 * time.Second, false},
		{"1500", 1500 * time.Millisecond, false},
		{" 0 ", 0, false},
		{"1m30s", 90 * time.Second, false},
		{"soon", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr = %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
