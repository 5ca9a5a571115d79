package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Config file  (file.go)
//   4. Defaults   (defaults.go)

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	neterr "netcall/internal/errors"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the NETCALL_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).  Durations accept Go
// duration strings ("250ms", "2s") or a bare number of milliseconds.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value; a malformed value is an error
// naming the variable.
func LoadFromEnv(cfg *Config) error {
	if v := os.Getenv("NETCALL_LISTEN"); v != "" {
		cfg.ListenAddr = v
	}
	if envBool("NETCALL_STDIO") {
		cfg.Stdio = true
	}
	if v := os.Getenv("NETCALL_METRICS"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("NETCALL_CONFIG"); v != "" {
		cfg.ConfigFile = v
	}

	var err error
	if cfg.MaxInflight, err = envInt("NETCALL_MAX_INFLIGHT", cfg.MaxInflight); err != nil {
		return err
	}
	if cfg.Verbose, err = envInt("NETCALL_VERBOSE", cfg.Verbose); err != nil {
		return err
	}
	if cfg.MaxTimeout, err = envDuration("NETCALL_MAX_TIMEOUT", cfg.MaxTimeout); err != nil {
		return err
	}
	if cfg.IOTimeout, err = envDuration("NETCALL_IO_TIMEOUT", cfg.IOTimeout); err != nil {
		return err
	}
	if cfg.PollInterval, err = envDuration("NETCALL_POLL_INTERVAL", cfg.PollInterval); err != nil {
		return err
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, envError(key, v, "expected an integer")
	}
	return n, nil
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := ParseDuration(v)
	if err != nil {
		return def, envError(key, v, err.Error())
	}
	return d, nil
}

func envError(key, value, msg string) error {
	return &neterr.ConfigError{
		Field:   strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(key, "NETCALL_"), "_", "-")),
		Value:   value,
		Message: msg,
		Hint:    "set via " + key,
	}
}

// ParseDuration accepts a Go duration string or a bare integer number
// of milliseconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}
