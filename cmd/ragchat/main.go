package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ragchat-client/internal/bootstrap"
	"ragchat-client/internal/config"
	"ragchat-client/internal/server"
	"ragchat-client/internal/tracer"

	"github.com/fatih/color"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		color.Red("Invalid configuration: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(cfg)
	if err != nil {
		log.Fatalf("Unable to bootstrap: %v", err)
	}
	defer container.Close()

	// 3. Tracer
	shutdownTracer := tracer.InitTracer(cfg.Telemetry, container.Logger)
	defer shutdownTracer(context.Background())

	// 4. Background services and the initial session load
	if err := container.Start(ctx); err != nil {
		log.Fatalf("Unable to start background services: %v", err)
	}

	// 5. Server
	srv := server.New(cfg, container)
	go func() {
		<-ctx.Done()
		srv.Shutdown()
	}()

	color.Green("ragchat bridge listening on http://%s", srv.Addr())
	color.Cyan("  backend:     %s", cfg.API.BaseURL)
	color.Cyan("  credentials: %s", cfg.Storage.CredentialBackend)
	if cfg.Events.NatsURL != "" {
		color.Cyan("  events:      %s", cfg.Events.NatsURL)
	}

	if err := srv.Run(); err != nil {
		color.Red("Server stopped: %v", err)
	}
}
