package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"query-evolver/internal/api"
	"query-evolver/internal/config"
	"query-evolver/internal/logging"
	"query-evolver/internal/mcp"
	"query-evolver/internal/repository"
	"query-evolver/internal/tls"
)

func main() {
	ctx := context.Background()

	envFile := flag.String("env", "", "Path to .env file")
	flag.Parse()

	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		log.Fatalf("Configuration loading failed: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("Logger initialization failed: %v", err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		"storage", cfg.Storage.Driver,
		"addr", cfg.Server.Addr,
		"tls", cfg.TLS.Enable,
	)

	if err := cfg.ValidateTLS(); err != nil {
		log.Fatalf("Invalid TLS configuration: %v", err)
	}
	if cfg.TLS.Enable && len(cfg.TLS.Hostnames) > 0 {
		created, err := tls.EnsureCertificate(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames)
		if err != nil {
			log.Fatalf("Certificate generation failed: %v", err)
		}
		if created {
			logger.Warn("Generated self-signed certificate", "cert", cfg.TLS.CertFile, "hostnames", cfg.TLS.Hostnames)
		}
	}

	store, closeStore, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open generation store", "error", err)
		log.Fatalf("Storage initialization failed: %v", err)
	}
	defer closeStore()

	apiServer := api.NewServer(store, cfg.Storage.Driver, logger)
	e := apiServer.NewRouter()

	logger.Info("REST API handlers mounted")

	mcpServer := mcp.NewServer(store, api.Version)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	e.Any("/mcp", echo.WrapHandler(mcpHandlers))
	e.Any("/mcp/*", echo.WrapHandler(mcpHandlers))

	logger.Info("MCP protocol handlers mounted")

	server := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     e,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", cfg.Server.Addr, "tls", cfg.TLS.Enable)
		if cfg.TLS.Enable {
			serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
			return
		}
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			closeStore()
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		logger.Info("Shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("Server close error", "error", err)
			}
		}

		logger.Info("Server stopped gracefully")
	}
}
