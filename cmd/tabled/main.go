package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/cardroomhq/tabled/internal/game"
	"github.com/cardroomhq/tabled/internal/server"
	"github.com/cardroomhq/tabled/internal/table"
)

var CLI struct {
	Config   string `short:"c" default:"tabled.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" help:"Listen address host:port (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		kctx.Exit(1)
	}

	if CLI.Addr != "" {
		host, portStr, err := net.SplitHostPort(CLI.Addr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --addr %q: %v\n", CLI.Addr, err)
			kctx.Exit(1)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --addr port %q: %v\n", portStr, err)
			kctx.Exit(1)
		}
		cfg.Server.Address = host
		cfg.Server.Port = port
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		kctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	logger.Info("starting tabled",
		"addr", fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		"tables", len(cfg.Tables))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := server.NewHub(logger)
	registry := table.NewRegistry(logger, nil)
	ledger := table.NewLogLedger(logger)

	g, ctx := errgroup.WithContext(ctx)

	for _, tc := range cfg.Tables {
		tableID := tc.Name
		tbl, err := registry.Create(tc.GameConfig(), hub, table.Options{
			AutoStart: tc.AutoStart,
			OnTimeout: func(seat int) {
				hub.BroadcastPlayerTimeout(tableID, seat)
			},
			OnDeferredLeave: func(seat int, stack game.Chips) {
				hub.NotifyDeferredLeave(tableID, seat, stack)
			},
		})
		if err != nil {
			logger.Fatal("creating table", "table", tableID, "error", err)
		}

		// Fan each table's settlements out to the room and the ledger.
		g.Go(func() error {
			for rec := range tbl.Settlements() {
				hub.BroadcastSettlement(rec)
				ledger.Record(rec)
			}
			return nil
		})
	}

	srv := server.NewServer(cfg, registry, hub, logger)
	g.Go(srv.ListenAndServe)

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", "error", err)
		}

		// Closing the tables aborts live hands with refunds and ends the
		// settlement streams, letting the consumers above drain and exit.
		registry.CloseAll()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server error", "error", err)
	}
	logger.Info("goodbye")
}
