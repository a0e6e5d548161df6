package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"monolithgo/internal/api"
	"monolithgo/pkg/config"
	"monolithgo/pkg/db"
	"monolithgo/pkg/db/maintenance"
	"monolithgo/pkg/dtrack"
	"monolithgo/pkg/logging"
	"monolithgo/pkg/probe"
	"monolithgo/pkg/recorder"
	"monolithgo/pkg/stats"
	"monolithgo/pkg/store"
	"monolithgo/pkg/tracker"
	"monolithgo/pkg/version"
)

const defaultConfigPath = "configs/monolith.yaml"

var (
	configPath = flag.String("config", defaultConfigPath, "Path to the config file")
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
)

func main() {
	flag.Parse()

	// Handle --init-config flag
	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load environment: %v\n", err)
		os.Exit(1)
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("Monolith Started", "version", version.Current().String())

	dbConn, st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if err := maintenance.Run(ctx, st, dbConn, time.Duration(appCfg.Recorder.Retention)); err != nil {
		slog.Error("Maintenance tasks failed", "error", err)
	}

	prov := config.NewProvider(appCfg, st)

	sess, err := initSession(appCfg)
	if err != nil {
		return fmt.Errorf("failed to open tracking session: %w", err)
	}
	defer sess.Close()

	// Startup Probes
	probes := []probe.Probe{
		probe.DataSocket(sess),
		probe.ControlChannel(sess, appCfg.Tracker.ServerHost != "" && sess.RemoteSystem() != dtrack.RemoteDTrack),
		probe.WritableDir("Log Directory", filepath.Dir(appCfg.Log.Server.Path), false),
	}
	results := probe.Run(ctx, probes)
	if err := probe.AnalyzeResults(results); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	if appCfg.Tracker.StartMeasurement && sess.ControlValid() {
		if err := sess.StartMeasurement(prov.Channel(ctx)); err != nil {
			slog.Warn("Failed to start measurement", "error", err)
		} else {
			defer func() {
				if err := sess.StopMeasurement(); err != nil {
					slog.Warn("Failed to stop measurement", "error", err)
				}
			}()
		}
	}

	counters := stats.New()
	upd := tracker.New(sess, tracker.Config{
		HeadBody:      appCfg.Tracker.HeadBody,
		WandFlyStick:  appCfg.Tracker.WandFlyStick,
		WandSmoothing: prov.WandSmoothing(ctx),
	}, counters)
	if err := upd.Start(ctx); err != nil {
		return fmt.Errorf("failed to start tracker: %w", err)
	}
	defer upd.Stop()

	rec := recorder.New(upd, st, recorder.Config{
		Interval:     time.Duration(appCfg.Recorder.Interval),
		RemoteSystem: sess.RemoteSystem().String(),
		DataPort:     sess.DataPort(),
	})
	if prov.RecorderEnabled(ctx) {
		if _, err := rec.Start(ctx); err != nil {
			slog.Warn("Failed to start recorder", "error", err)
		}
	}
	defer func() {
		if _, ok := rec.Active(); ok {
			if err := rec.Stop(context.Background()); err != nil {
				slog.Error("Failed to stop recorder", "error", err)
			}
		}
	}()

	var poller *tracker.MessagePoller
	if sess.ControlValid() && appCfg.Tracker.MessagePoll > 0 {
		poller = tracker.NewMessagePoller(sess, time.Duration(appCfg.Tracker.MessagePoll), rec, counters)
		if err := poller.Start(ctx); err != nil {
			return fmt.Errorf("failed to start message polling: %w", err)
		}
		defer poller.Stop()
	}

	return runServer(ctx, appCfg, prov, sess, upd, poller, rec, st, counters)
}

func initDB(appCfg *config.Config) (*db.DB, store.Store, error) {
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

func initSession(appCfg *config.Config) (*dtrack.Session, error) {
	remote, err := dtrack.ParseRemoteSystem(appCfg.Tracker.RemoteSystem)
	if err != nil {
		return nil, err
	}
	cfg := dtrack.DefaultConfig()
	cfg.ServerHost = appCfg.Tracker.ServerHost
	cfg.ServerPort = appCfg.Tracker.ServerPort
	cfg.DataPort = appCfg.Tracker.DataPort
	cfg.RemoteSystem = remote
	if appCfg.Tracker.DataBufferSize > 0 {
		cfg.BufferSize = appCfg.Tracker.DataBufferSize
	}
	if appCfg.Tracker.DataTimeout > 0 {
		cfg.DataTimeout = time.Duration(appCfg.Tracker.DataTimeout)
	}
	if appCfg.Tracker.ControlTimeout > 0 {
		cfg.ControlTimeout = time.Duration(appCfg.Tracker.ControlTimeout)
	}
	return dtrack.New(cfg)
}

func runServer(ctx context.Context, cfg *config.Config, prov config.Provider, sess *dtrack.Session, upd *tracker.Updater, poller *tracker.MessagePoller, rec *recorder.Recorder, st store.Store, counters *stats.Stats) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	var messages api.MessageLog
	if poller != nil {
		messages = poller
	}

	srv := api.NewServer(cfg.Server.Address,
		api.NewPoseHandler(upd, prov),
		api.NewStreamHandler(upd, time.Duration(cfg.Server.StreamRate)),
		api.NewControlHandler(sess, prov, messages),
		api.NewRecordingHandler(rec, st),
		api.NewSettingsHandler(prov),
		api.NewStatsHandler(counters),
		shutdownFunc,
	)

	srv.Handler = loggingMiddleware(srv.Handler)
	return runServerLifecycle(ctx, srv, quit)
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
