package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ochairo/reloaded/internal/config"
	"github.com/ochairo/reloaded/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/reloaded/internal/domain-orchestrators"
	"github.com/ochairo/reloaded/internal/domain/interfaces"
	"github.com/ochairo/reloaded/internal/domain/interfaces/repositories"
	domainservices "github.com/ochairo/reloaded/internal/domain/services"
	"github.com/ochairo/reloaded/internal/external-adapters/httpapi"
	"github.com/ochairo/reloaded/internal/external-adapters/sqlite"
	"github.com/ochairo/reloaded/internal/external-adapters/yaml"
)

func runServe(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var (
		configPath  = fs.String("config", config.DefaultPath(), "Path to config file")
		addr        = fs.String("addr", "", "Listen address (overrides config)")
		catalogDir  = fs.String("catalog-dir", "", "Directory of <package>.yml catalog files")
		packagesDir = fs.String("packages-dir", "", "Directory of files served under /download")
		uploadsDir  = fs.String("uploads-dir", "", "Directory receiving uploads (default <packages-dir>/uploads)")
		dbPath      = fs.String("db", "", "Scan verdict database (overrides config)")
		mock        = fs.Bool("mock", false, "Answer every lookup with an archived placeholder entry")
		logLevel    = fs.String("log-level", "", "Log level: debug, info, warn, error")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: reloaded serve [options]

Run the catalog server.

Endpoints:
  GET  /api/v1/apps/details/{package}?sdk_version=N
  GET  /download/{filename}
  GET  /apps
  POST /upload   (multipart field "apk")
  POST /scan     {"sha256": "...", "packageName": "..."}
  GET  /health

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  reloaded serve --catalog-dir catalog --packages-dir packages
  reloaded serve --mock --addr :3000
`)
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Server.Addr = *addr
		case "catalog-dir":
			cfg.Server.CatalogDir = *catalogDir
		case "packages-dir":
			cfg.Server.PackagesDir = *packagesDir
		case "uploads-dir":
			cfg.Server.UploadsDir = *uploadsDir
		case "db":
			cfg.DBPath = *dbPath
		case "mock":
			cfg.Server.Mock = *mock
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})

	if err := executeServe(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func executeServe(ctx context.Context, cfg *config.Config) error {
	logger := interfaces.NewStderrLogger(interfaces.ParseLevel(cfg.LogLevel))

	var catalog repositories.CatalogRepository
	if cfg.Server.Mock {
		catalog = yaml.NewMockCatalogRepository()
	} else {
		catalog = yaml.NewCatalogRepository(cfg.Server.CatalogDir, logger)
	}

	results, err := sqlite.NewScanRepository(cfg.ScanDBPath())
	if err != nil {
		return fmt.Errorf("failed to open verdict store: %w", err)
	}
	//nolint:errcheck // Defer close
	defer results.Close()

	security := gateways.NewCompositeSecurityGateway(cfg.VirusTotal.URL, cfg.VirusTotal.APIKey, logger)
	scanner := domainservices.NewScanService(security, results, logger)
	scans := orchestrators.NewScanOrchestrator(scanner, results, logger)

	server, err := httpapi.NewServer(catalog, scans, logger, httpapi.Config{
		PackagesDir:    cfg.Server.PackagesDir,
		UploadsDir:     cfg.Server.UploadsDir,
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := server.HTTPServer(cfg.Server.Addr)
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	mode := "catalog " + cfg.Server.CatalogDir
	if cfg.Server.Mock {
		mode = "mock catalog"
	}
	fmt.Printf("🚀 Catalog server listening on %s (%s)\n", cfg.Server.Addr, mode)
	logger.Info("server started", interfaces.F("addr", cfg.Server.Addr), interfaces.F("db", results.Path()))

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fmt.Println("🛑 Shutting down")
	return httpServer.Shutdown(shutdownCtx)
}
