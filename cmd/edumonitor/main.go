package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"edumonitor/internal/config"
	"edumonitor/internal/faillog"
	"edumonitor/internal/logging"
	"edumonitor/internal/metrics"
	"edumonitor/internal/models"
	"edumonitor/internal/monitor"
	"edumonitor/internal/registry"
	"edumonitor/internal/server"
	"edumonitor/internal/settings"
	"edumonitor/internal/storage"
)

const registryDebounce = 500 * time.Millisecond

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to configuration file (YAML)")
		addr       = flag.String("addr", "", "address for the web server (overrides config)")
		once       = flag.Bool("once", false, "run a single check, print the summary and exit")
	)
	flag.Parse()

	os.Exit(run(*configPath, *addr, *once))
}

func run(configPath, addr string, once bool) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 2
	}
	if addr != "" {
		cfg.Addr = addr
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	prefs, err := settings.Open(cfg.SettingsPath)
	if err != nil {
		logger.Warn("settings not persisted", "path", cfg.SettingsPath, "error", err)
	}

	registryStore := registry.NewStore(cfg.RegistryPath, logger)

	reports, err := storage.NewReportStorage(cfg.ReportPath())
	if err != nil {
		logger.Error("initialise report storage", "error", err)
		return 2
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	connectivity := monitor.NewConnectivityProber(cfg.Connectivity.Target, cfg.ConnectivityTimeout(), nil)
	mon := monitor.New(monitor.Deps{
		Registry:     registryStore,
		Connectivity: connectivity,
		Prober: monitor.NewSiteProber(monitor.ProberOptions{
			Timeout:            cfg.ProbeTimeout(),
			Attempts:           cfg.Probe.Attempts,
			InsecureSkipVerify: cfg.Probe.InsecureSkipVerify,
			Logger:             logger,
		}),
		Sink:        faillog.New(cfg.FailureLogPath, faillog.WithLogger(logger)),
		Recorder:    metrics.NewRecorder(promRegistry),
		Store:       reports,
		Concurrency: cfg.Probe.Concurrency,
		Interval:    func() time.Duration { return prefs.Get().Interval() },
		Logger:      logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if once {
		return runOnce(ctx, mon)
	}

	if cfg.WatchRegistry {
		watcher, err := registry.NewWatcher(registryStore, registryDebounce, logger, nil)
		if err != nil {
			logger.Warn("registry watcher disabled", "error", err)
		} else {
			watcher.Start()
			defer watcher.Stop()
		}
	}

	srv := server.New(server.Options{
		Addr:               cfg.Addr,
		Checker:            mon,
		Connectivity:       connectivity,
		Reports:            reports,
		Settings:           prefs,
		Gatherer:           promRegistry,
		CheckRatePerMinute: cfg.Server.CheckRatePerMinute,
		CheckDeadline:      time.Duration(cfg.Server.CheckDeadlineSeconds) * time.Second,
		PushInterval:       time.Duration(cfg.Server.PushIntervalSeconds) * time.Second,
		Logger:             logger,
	})

	mon.Start()
	defer mon.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Run)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	logger.Info("edumonitor started", "addr", cfg.Addr, "interval_minutes", prefs.Get().IntervalMinutes)
	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		return 1
	}
	logger.Info("edumonitor stopped")
	return 0
}

type onceSummary struct {
	NetworkError bool                `json:"network_error"`
	Results      []models.SiteStatus `json:"results"`
}

// runOnce performs a single check and prints the all-sites summary.
// The exit code is 1 when any site failed or the network was down.
func runOnce(ctx context.Context, mon *monitor.Monitor) int {
	report := mon.RunCheck(ctx)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(onceSummary{
		NetworkError: report.NetworkError,
		Results:      monitor.Summarize(report, mon.Endpoints()),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "encode summary: %v\n", err)
		return 2
	}

	if report.NetworkError || len(report.Failures) > 0 {
		return 1
	}
	return 0
}
