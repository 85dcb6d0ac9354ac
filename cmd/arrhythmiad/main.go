package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/straja-ai/arrhythmia/internal/app"
	"github.com/straja-ai/arrhythmia/internal/auth"
	"github.com/straja-ai/arrhythmia/internal/config"
	"github.com/straja-ai/arrhythmia/internal/redact"
	"github.com/straja-ai/arrhythmia/internal/server"
)

func main() {
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides config)")
	configPath := flag.String("config", "arrhythmia.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	addr := cfg.Server.Addr
	if *addrFlag != "" {
		addr = *addrFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	authz, err := auth.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	a, err := app.Build(ctx, cfg, app.Options{})
	if err != nil {
		redact.Fatalf("build service: %v", err)
	}
	if err := a.Start(ctx); err != nil {
		redact.Fatalf("start mqtt ingest: %v", err)
	}

	srv := server.New(cfg, authz, a.Service, nil)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			redact.Logf("server error: %v", err)
		}
	case <-ctx.Done():
		log.Printf("shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		redact.Logf("http shutdown: %v", err)
	}
	if err := a.Close(shutdownCtx); err != nil {
		redact.Logf("close: %v", err)
	}
}
