// Command rspd is the trace-replay RSP server binary. It loads a recorded
// execution trace, parses it with the format named by -f/--format, and
// serves it to a GDB-compatible debugger over the Remote Serial Protocol,
// impersonating the traced target by replaying recorded events instead of
// executing instructions. It optionally exposes a read-only HTTP status
// surface and shuts down gracefully on SIGTERM or SIGINT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/tracereplay/rspreplay/internal/config"
	"github.com/tracereplay/rspreplay/internal/cpu"
	"github.com/tracereplay/rspreplay/internal/session"
	"github.com/tracereplay/rspreplay/internal/statusapi"
	"github.com/tracereplay/rspreplay/internal/trace"
	"github.com/tracereplay/rspreplay/internal/traceio"
)

func main() {
	configPath := flag.String("config", "", "optional path to a YAML configuration file; CLI flags below override its values")
	format := flag.String("f", "", "trace format (spike, sifive-rtl); alias --format")
	formatLong := flag.String("format", "", "trace format (spike, sifive-rtl)")
	cpuName := flag.String("cpu", "", "CPU capability profile (rv32, rv64); defaults to rv32")
	host := flag.String("host", "", "RSP listen host; defaults to localhost")
	port := flag.Int("port", 0, "RSP listen port; defaults to 1234")
	statusAddr := flag.String("status-addr", "", "status API listen address; empty disables it")
	logLevel := flag.String("log-level", "", "log level: debug | info | warn | error")
	flag.Parse()

	tracePath := flag.Arg(0)

	cfg := resolveConfig(*configPath, tracePath, firstNonEmpty(*format, *formatLong), *cpuName, *host, *port, *statusAddr, *logLevel)
	rspAddr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("rspd starting",
		slog.String("trace_path", cfg.TracePath),
		slog.String("format", cfg.Format),
		slog.String("cpu", cfg.CPU),
		slog.String("rsp_addr", rspAddr),
	)

	caps := capabilityFor(cfg.CPU)

	trc, err := loadTrace(cfg.TracePath, cfg.Format)
	if err != nil {
		logger.Error("failed to load trace", slog.Any("error", err))
		os.Exit(2)
	}
	logger.Info("trace loaded", slog.Int("events", trc.Len()))

	ln, err := net.Listen("tcp", rspAddr)
	if err != nil {
		logger.Error("failed to listen", slog.String("addr", rspAddr), slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracker := session.NewTracker()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return session.Serve(gctx, ln, caps, trc, logger, tracker)
	})

	var httpServer *http.Server
	if cfg.StatusAddr != "" {
		httpServer = &http.Server{
			Addr:    cfg.StatusAddr,
			Handler: statusapi.NewRouter(statusapi.NewServer(tracker)),
		}
		g.Go(func() error {
			logger.Info("status API listening", slog.String("addr", cfg.StatusAddr))
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("status API: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return httpServer.Close()
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("rspd exiting with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("rspd shut down cleanly")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolveConfig merges an optional YAML config file with CLI flags; any
// non-empty/non-zero flag value wins over the file, and the file wins over
// built-in defaults (applied by config.Load).
func resolveConfig(configPath, tracePath, format, cpuName, host string, port int, statusAddr, logLevel string) *config.Config {
	var cfg config.Config
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rspd: %v\n", err)
			os.Exit(1)
		}
		cfg = *loaded
	}

	if tracePath != "" {
		cfg.TracePath = tracePath
	}
	if format != "" {
		cfg.Format = format
	}
	if cpuName != "" {
		cfg.CPU = cpuName
	}
	if host != "" {
		cfg.Host = host
	}
	if port != 0 {
		cfg.Port = port
	}
	if statusAddr != "" {
		cfg.StatusAddr = statusAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if cfg.CPU == "" {
		cfg.CPU = "rv32"
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 1234
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if cfg.TracePath == "" {
		fmt.Fprintln(os.Stderr, "rspd: a trace file path is required (positional argument or trace_path in -config)")
		os.Exit(1)
	}
	if cfg.Format == "" {
		fmt.Fprintf(os.Stderr, "rspd: -f/--format is required (one of: %v)\n", traceio.Names())
		os.Exit(1)
	}

	return &cfg
}

func capabilityFor(name string) cpu.Capability {
	if name == "rv64" {
		return cpu.NewRV64()
	}
	return cpu.NewRV32()
}

func loadTrace(path, format string) (trace.Slice, error) {
	parser, ok := traceio.Lookup(format)
	if !ok {
		return nil, traceio.ErrUnknownFormat{Format: format}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace file %q: %w", path, err)
	}
	defer f.Close()

	producer, err := parser(f)
	if err != nil {
		return nil, fmt.Errorf("parsing trace file %q: %w", path, err)
	}

	events, err := trace.Materialize(producer)
	if err != nil {
		return nil, fmt.Errorf("materializing trace %q: %w", path, err)
	}
	return events, nil
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
