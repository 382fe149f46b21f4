package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/songdl-go/api"
	"github.com/yourusername/songdl-go/internal/domain"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "Listen host (default from config)")
	serveCmd.Flags().IntP("port", "p", 0, "Listen port (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")

	a, err := newApplication(func(c *domain.Config) {
		if host != "" {
			c.Server.Host = host
		}
		if port != 0 {
			c.Server.Port = port
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()

	log := a.log
	config := a.config

	if err := os.MkdirAll(config.Download.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	log.Info("Starting songdl server",
		zap.String("version", version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("output_dir", config.Download.OutputDir),
		zap.Bool("catalog", config.Spotify.Enabled()))

	router := api.SetupRouter(api.Services{
		Resolver:     a.resolver,
		Orchestrator: a.orchestrator,
		Registry:     a.registry,
		Library:      a.library,
		MultiLogger:  a.multiLog,
		LogsDir:      config.Download.LogsDir(),
	}, log)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Received shutdown signal")
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// In-flight downloads cannot be cancelled, give them the rest of the window
	if err := a.orchestrator.Wait(shutdownCtx); err != nil {
		log.Warn("Downloads still running at exit", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}
