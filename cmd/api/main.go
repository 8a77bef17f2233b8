// Package main provides the main entry point for the recipe diff API server
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alchemorsel/recipediff/internal/infrastructure/container"
	"go.uber.org/fx"
)

func main() {
	configPath := flag.String("config", os.Getenv("RECIPEDIFF_CONFIG"), "path to the config file")
	flag.Parse()

	// Create Fx application with dependency injection
	app := fx.New(
		fx.NopLogger, // Use our own logger instead of Fx's
		fx.Supply(container.ConfigPath(*configPath)),
		container.Module,
	)

	startCtx, startCancel := context.WithTimeout(context.Background(), time.Minute)
	defer startCancel()

	if err := app.Start(startCtx); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	// Wait for an interrupt or a fatal server error
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	exitCode := 0
	select {
	case <-ctx.Done():
	case sig := <-app.Wait():
		exitCode = sig.ExitCode
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		log.Printf("Failed to stop application gracefully: %v", err)
		exitCode = 1
	}

	os.Exit(exitCode)
}
