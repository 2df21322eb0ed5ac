package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"xbee-go-home/internal/stack"
	"xbee-go-home/internal/store"
	"xbee-go-home/internal/trace"
	"xbee-go-home/internal/web"
	"xbee-go-home/internal/xbee"
	"xbee-go-home/internal/zcl"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// stopFunc is returned by the optional subsystems. A nil stopFunc means the
// subsystem did not start.
type stopFunc func()

func (f stopFunc) Stop() {
	if f != nil {
		f()
	}
}

func main() {
	// Temporary logger for config loading errors.
	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfgPath := "config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		bootLogger.Error("load config", "err", err)
		os.Exit(1)
	}
	if err := cfg.validate(); err != nil {
		bootLogger.Error("invalid config", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg, os.Stdout)
	slog.SetDefault(logger)
	logger.Info("xbee-go-home starting", "version", version)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
	logger.Info("goodbye")
}

func run(cfg *Config, logger *slog.Logger) error {
	db, err := store.NewBoltStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	port, err := xbee.OpenSerial(cfg.XBee.Port, cfg.XBee.Baud, logger)
	if err != nil {
		return err
	}
	defer port.Close()
	port.SetTxBuffer(cfg.XBee.TxBuffer)

	sc := cfg.stackConfig()
	if cfg.Trace.Path != "" {
		rec, err := trace.NewRecorder(cfg.Trace.Path)
		if err != nil {
			return err
		}
		defer func() {
			logger.Info("trace closed", "path", cfg.Trace.Path, "frames", rec.Count())
			rec.Close()
		}()
		sc.Observer = rec.Observer()
		logger.Info("tracing frames", "path", cfg.Trace.Path, "session", rec.Session())
	}

	events := stack.NewEventBus(logger)
	st, err := stack.New(port, db, events, sc, logger)
	if err != nil {
		return err
	}
	n, err := zcl.LoadClusterDir(cfg.ClustersDir, st.Registry(), logger)
	if err != nil {
		return err
	}
	logger.Info("ZCL registry initialized", "clusters", len(st.Registry().All()), "custom", n)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = st.Start(ctx)
	cancel()
	if err != nil {
		return err
	}
	defer st.Stop()

	// Both are no-ops when built without their feature tag.
	auto, autoWebOpts := initAutomation(st, cfg, logger)
	defer auto.Stop()
	mqtt := initMQTT(st, cfg, logger)
	defer mqtt.Stop()

	webOpts := []web.ServerOption{web.WithVersion(version)}
	if cfg.Web.APIKey != "" {
		webOpts = append(webOpts, web.WithAPIKey(cfg.Web.APIKey))
	}
	if len(cfg.Web.AllowedOrigins) > 0 {
		webOpts = append(webOpts, web.WithAllowedOrigins(cfg.Web.AllowedOrigins))
	}
	webOpts = append(webOpts, autoWebOpts...)
	webServer := web.NewServer(st, logger, webOpts...)
	defer webServer.Stop()

	httpServer := &http.Server{
		Addr:         cfg.Web.Listen,
		Handler:      webServer,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	mdns := initMDNS(st, cfg, logger)
	defer mdns.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	return serveUntilSignal(httpServer, sigCh, logger)
}

// serveUntilSignal runs srv until a signal arrives or ListenAndServe fails,
// then shuts it down. A listen failure is returned.
func serveUntilSignal(srv *http.Server, sigCh <-chan os.Signal, logger *slog.Logger) error {
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("web server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var err error
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig)
	case err = <-serveErr:
		err = fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Error("http server shutdown", "err", serr)
	}
	return err
}
