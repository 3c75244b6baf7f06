package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"betexec/internal/app"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration")
	pprofAddr := flag.String("pprof", "localhost:6060", "pprof listen address, empty to disable")
	flag.Parse()

	// 1. Pprof Server (for performance profiling)
	if *pprofAddr != "" {
		go func() {
			slog.Info("🕵️ Pprof server started", slog.String("addr", *pprofAddr))
			if err := http.ListenAndServe(*pprofAddr, nil); err != nil {
				slog.Error("Pprof server failed", slog.Any("error", err))
			}
		}()
	}

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Sequencers, processor & control sink
	bootstrap.Start(ctx)
	slog.InfoContext(ctx, "✨ betexec fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-ctx.Done()

	slog.Info("👋 Shutting down gracefully...")
	if err := bootstrap.Wait(); err != nil {
		slog.Error("Shutdown incomplete", slog.Any("error", err))
	}
}
