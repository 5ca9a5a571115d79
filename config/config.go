// Package config defines the runtime configuration for netcall and the
// layers it is loaded from: defaults, a config file, NETCALL_* environment
// variables and CLI flags, in increasing precedence.
package config

import (
	"net"
	"time"

	neterr "netcall/internal/errors"
)

// Config holds every tuneable for one netcall process.
type Config struct {
	// ── Front end ────────────────────────────────────────────────────
	ListenAddr  string // control listener host:port
	Stdio       bool   // serve requests on stdin/stdout instead
	MetricsAddr string // host:port for /metrics; empty disables
	MaxInflight int    // concurrent requests per control stream

	// ── Transport ────────────────────────────────────────────────────
	MaxTimeout   time.Duration // caps every request timeout; 0 = uncapped
	IOTimeout    time.Duration // per read/write deadline; 0 = none
	PollInterval time.Duration // first delay between connect-and-wait attempts

	// ── Output ───────────────────────────────────────────────────────
	Verbose int

	// ── Process ──────────────────────────────────────────────────────
	ConfigFile string
	DryRun     bool
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		ListenAddr:   DefaultListenAddr,
		MaxInflight:  DefaultMaxInflight,
		MaxTimeout:   DefaultMaxTimeout,
		IOTimeout:    DefaultIOTimeout,
		PollInterval: DefaultPollInterval,
		Verbose:      DefaultVerbose,
	}
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.  The
// returned error is a *errors.ConfigError naming the offending flag.
func (c *Config) Validate() error {
	if !c.Stdio {
		if c.ListenAddr == "" {
			return &neterr.ConfigError{
				Field:   "listen",
				Message: "a listen address is required",
				Hint:    "use -l host:port, or --stdio to serve on stdin/stdout",
			}
		}
		if err := checkHostPort("listen", c.ListenAddr); err != nil {
			return err
		}
	}
	if c.MetricsAddr != "" {
		if err := checkHostPort("metrics", c.MetricsAddr); err != nil {
			return err
		}
	}

	if c.MaxInflight < 1 {
		return &neterr.ConfigError{Field: "max-inflight", Value: c.MaxInflight, Message: "must be at least 1"}
	}
	if c.MaxTimeout < 0 {
		return &neterr.ConfigError{Field: "max-timeout", Value: c.MaxTimeout, Message: "must not be negative",
			Hint: "use 0 to leave request timeouts uncapped"}
	}
	if c.IOTimeout < 0 {
		return &neterr.ConfigError{Field: "io-timeout", Value: c.IOTimeout, Message: "must not be negative",
			Hint: "use 0 to disable read/write deadlines"}
	}
	if c.PollInterval <= 0 {
		return &neterr.ConfigError{Field: "poll-interval", Value: c.PollInterval, Message: "must be positive"}
	}
	if c.MaxTimeout > 0 && c.PollInterval > c.MaxTimeout {
		return &neterr.ConfigError{Field: "poll-interval", Value: c.PollInterval,
			Message: "exceeds --max-timeout", Hint: "connect-and-wait would dial only once"}
	}
	return nil
}

func checkHostPort(field, addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return &neterr.ConfigError{Field: field, Value: addr, Message: "expected host:port",
			Hint: "for all interfaces use :port, e.g. :7070"}
	}
	return nil
}
