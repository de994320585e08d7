package portal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deployportal-dev/deployportal/internal/portal/api"
	"github.com/deployportal-dev/deployportal/internal/portal/config"
	"github.com/deployportal-dev/deployportal/internal/portal/deploy"
	"github.com/deployportal-dev/deployportal/internal/portal/remote"
	"github.com/deployportal-dev/deployportal/internal/portal/store"
	"github.com/deployportal-dev/deployportal/internal/portal/telemetry"
)

// App wires the portal together and runs the HTTP server until interrupted.
func App(_ context.Context) error {
	cfg := config.NewConfig()
	if cfg.Verbose {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	log.Printf("Starting deploy portal %s", cfg.Version)

	shutdownTelemetry, metrics, err := telemetry.InitMetrics(cfg.Version)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %v", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Printf("Failed to shutdown telemetry: %v", err)
		}
	}()

	targets := store.NewTargetStore()
	runs := store.NewRunStore()

	executor := deploy.NewExecutor(remote.Dial, cfg.SSHConnectTimeout, cfg.EngineInstallScriptURL)
	service := deploy.NewService(targets, runs, executor, metrics)

	server := api.NewServer(cfg, targets, service, metrics)

	// Start server in a goroutine so it doesn't block signal handling
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()

	if err := server.Shutdown(sctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
	return nil
}
