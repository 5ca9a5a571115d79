package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so CLI flags, config files and
// environment loading agree on them.

const (
	// DefaultListenAddr is where the control server accepts requests.
	DefaultListenAddr = "127.0.0.1:7070"

	// DefaultMaxInflight limits concurrent requests on one control stream.
	DefaultMaxInflight = 64

	// DefaultMaxTimeout caps the timeout a request may ask for.
	DefaultMaxTimeout = 5 * time.Minute

	// DefaultIOTimeout bounds a single socket read or write.
	DefaultIOTimeout = 30 * time.Second

	// DefaultPollInterval is the first delay between connect-and-wait
	// attempts; later delays back off from it.
	DefaultPollInterval = 50 * time.Millisecond

	// DefaultVerbose prints info and warnings.
	DefaultVerbose = 1

	// DefaultGracePeriod bounds the graceful shutdown of the metrics HTTP
	// server.  Control requests still in flight are not waited for.
	DefaultGracePeriod = 5 * time.Second
)
