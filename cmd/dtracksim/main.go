// Command dtracksim runs a fake tracking controller for development without hardware.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"monolithgo/pkg/config"
	"monolithgo/pkg/dtrack/dtracksim"
)

var (
	configPath = flag.String("config", "configs/monolith.yaml", "Path to the config file")
	dest       = flag.String("dest", "", "Stream frames to host:port right away, without waiting for a client")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dtracksim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	appCfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	srv, err := dtracksim.New(dtracksim.Config{
		ControlAddr:    appCfg.Sim.ControlAddr,
		CommandAddr:    appCfg.Sim.CommandAddr,
		Interval:       time.Duration(appCfg.Sim.Interval),
		FlyStickFormat: appCfg.Sim.FlyStickFormat,
		Bodies:         appCfg.Sim.Bodies,
	})
	if err != nil {
		return err
	}
	defer srv.Close()

	if *dest != "" {
		addr, err := net.ResolveUDPAddr("udp4", *dest)
		if err != nil {
			return fmt.Errorf("invalid destination %q: %w", *dest, err)
		}
		srv.SetDestination(addr)
		srv.SetTracking(true)
	}
	srv.Start()

	slog.Info("Simulator running",
		"control_port", srv.ControlPort(),
		"command_port", srv.CommandPort(),
		"format", appCfg.Sim.FlyStickFormat)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.Info("Simulator stopping")
	return nil
}
