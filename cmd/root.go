// Package cmd wires up the CLI flags and runs the netcall control server.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"netcall/config"
	"netcall/internal/dispatch"
	"netcall/internal/metrics"
	"netcall/internal/retry"
	"netcall/internal/server"
	"netcall/internal/transport"
	"netcall/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X netcall/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and serves until ctx is cancelled, using the
// process's stdin/stdout for --stdio.
func Execute(ctx context.Context, args []string) error {
	return Run(ctx, args, os.Stdin, os.Stdout)
}

// Run is Execute with explicit streams for --stdio mode and for the
// --version output.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	cfg, done, err := parseConfig(args, stdout)
	if err != nil || done {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := util.NewLogger(cfg.Verbose)
	if cfg.DryRun {
		logger.Info("configuration ok")
		return nil
	}

	return serve(ctx, cfg, logger, stdin, stdout)
}

// parseConfig layers defaults, the config file, NETCALL_* variables and
// finally the flags given in args.  done is true when the invocation was
// fully handled (--help, --version).
func parseConfig(args []string, stdout io.Writer) (cfg *config.Config, done bool, err error) {
	flags := config.Default()
	fs := flag.NewFlagSet("netcall", flag.ContinueOnError)

	// ── front end ────────────────────────────────────────────────
	fs.StringVarP(&flags.ListenAddr, "listen", "l", flags.ListenAddr, "Control listener host:port")
	fs.BoolVar(&flags.Stdio, "stdio", false, "Serve requests on stdin/stdout")
	fs.StringVar(&flags.MetricsAddr, "metrics", "", "Serve Prometheus metrics on host:port")
	fs.IntVar(&flags.MaxInflight, "max-inflight", flags.MaxInflight, "Concurrent requests per control stream")

	// ── transport ────────────────────────────────────────────────
	fs.DurationVar(&flags.MaxTimeout, "max-timeout", flags.MaxTimeout, "Cap on any request timeout (0 = uncapped)")
	fs.DurationVar(&flags.IOTimeout, "io-timeout", flags.IOTimeout, "Per read/write deadline (0 = none)")
	fs.DurationVar(&flags.PollInterval, "poll-interval", flags.PollInterval, "First delay between connect-and-wait attempts")

	// ── process ──────────────────────────────────────────────────
	fs.StringVarP(&flags.ConfigFile, "config", "f", "", "Config file (.toml, .yaml)")
	fs.BoolVar(&flags.DryRun, "dry-run", false, "Validate configuration and exit")
	fs.CountVarP(&flags.Verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}
	if showHelp {
		printUsage(fs)
		return nil, true, nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "netcall %s\n", version)
		return nil, true, nil
	}
	if fs.NArg() > 0 {
		return nil, false, fmt.Errorf("unexpected argument %q (use --help for usage)", fs.Arg(0))
	}

	// ── layers ───────────────────────────────────────────────────
	cfg = config.Default()

	path := os.Getenv("NETCALL_CONFIG")
	if fs.Changed("config") {
		path = flags.ConfigFile
	}
	if path != "" {
		if err := config.LoadFile(cfg, path); err != nil {
			return nil, false, err
		}
	}
	if err := config.LoadFromEnv(cfg); err != nil {
		return nil, false, err
	}
	cfg.ConfigFile = path

	overlay := map[string]func(){
		"listen":        func() { cfg.ListenAddr = flags.ListenAddr },
		"stdio":         func() { cfg.Stdio = flags.Stdio },
		"metrics":       func() { cfg.MetricsAddr = flags.MetricsAddr },
		"max-inflight":  func() { cfg.MaxInflight = flags.MaxInflight },
		"max-timeout":   func() { cfg.MaxTimeout = flags.MaxTimeout },
		"io-timeout":    func() { cfg.IOTimeout = flags.IOTimeout },
		"poll-interval": func() { cfg.PollInterval = flags.PollInterval },
		"verbose":       func() { cfg.Verbose = flags.Verbose },
		"dry-run":       func() { cfg.DryRun = flags.DryRun },
	}
	for name, set := range overlay {
		if fs.Changed(name) {
			set()
		}
	}
	return cfg, false, nil
}

// ── serving ──────────────────────────────────────────────────────────

func serve(ctx context.Context, cfg *config.Config, logger *util.Logger, stdin io.Reader, stdout io.Writer) error {
	m := metrics.New()
	adapter := &transport.TCPAdapter{
		MaxTimeout: cfg.MaxTimeout,
		IOTimeout:  cfg.IOTimeout,
		Backoff:    &retry.Backoff{InitialDelay: cfg.PollInterval, Jitter: true},
		Logger:     logger,
	}
	d := dispatch.New(adapter, logger, m)
	defer func() {
		if err := d.Shutdown(); err != nil {
			logger.Warn("closing handles: %v", err)
		}
		logger.Verbose("final metrics:\n%s", m.JSON())
	}()

	if cfg.MetricsAddr != "" {
		stop, err := serveMetrics(cfg.MetricsAddr, m, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	srv := &server.Server{
		Address:     cfg.ListenAddr,
		Caller:      dispatch.NewRouter(d),
		Logger:      logger,
		MaxInflight: cfg.MaxInflight,
	}
	if cfg.Stdio {
		logger.Verbose("serving on stdin/stdout")
		errc := make(chan error, 1)
		go func() { errc <- srv.ServeStream(ctx, stdin, stdout) }()
		select {
		case err := <-errc:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case <-ctx.Done():
			// stdin cannot be interrupted; in-flight handles close below.
			return nil
		}
	}
	return srv.Run(ctx)
}

// serveMetrics exposes /metrics (Prometheus) and /metrics.json on addr.
// The returned func shuts the listener down.
func serveMetrics(addr string, m *metrics.Collector, logger *util.Logger) (func(), error) {
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		return nil, err
	}
	reg.MustRegister(collectors.NewGoCollector())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/metrics.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, m.JSON()) //nolint:errcheck
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen on %s: %w", addr, err)
	}
	hs := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server: %v", err)
		}
	}()
	logger.Info("metrics on http://%s/metrics", ln.Addr())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultGracePeriod)
		defer cancel()
		hs.Shutdown(ctx) //nolint:errcheck
	}, nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `netcall – network call dispatcher v%s

Serves handle-based TCP calls over line-delimited JSON.

Usage:
  netcall [options]                  Listen on %s
  netcall -l :7070 --metrics :9090   Listen with Prometheus metrics
  netcall --stdio                    Serve on stdin/stdout

Options:
`, version, config.DefaultListenAddr)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Calls:
  net_wait_for_tcp_connection  {"address","port","timeoutMillis"}
  net_socket_open              {"address","port","timeoutMillis"} -> {"handle"}
  net_socket_write             {"handle","payload"}
  net_socket_read              {"handle"} -> {"data"} or {"dataBase64"}
  net_socket_close             {"handle"}

Example:
  echo '{"id":1,"call":"net_socket_open","params":{"address":"example.com","port":80,"timeoutMillis":2000}}' | netcall --stdio
`)
}
