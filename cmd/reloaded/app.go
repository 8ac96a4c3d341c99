package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ochairo/reloaded/internal/config"
	"github.com/ochairo/reloaded/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/reloaded/internal/domain-orchestrators"
	"github.com/ochairo/reloaded/internal/domain/interfaces"
	domaingateways "github.com/ochairo/reloaded/internal/domain/interfaces/gateways"
	"github.com/ochairo/reloaded/internal/domain/interfaces/services"
	domainservices "github.com/ochairo/reloaded/internal/domain/services"
	"github.com/ochairo/reloaded/internal/external-adapters/sqlite"
)

// commonFlags are accepted by every client subcommand
type commonFlags struct {
	config   *string
	server   *string
	sdk      *int
	cacheDir *string
	logLevel *string
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		config:   fs.String("config", config.DefaultPath(), "Path to config file"),
		server:   fs.String("server", "", "Catalog server URL (overrides config)"),
		sdk:      fs.Int("sdk", 0, "Platform SDK version of this device (overrides config)"),
		cacheDir: fs.String("cache-dir", "", "Download and scan cache directory (overrides config)"),
		logLevel: fs.String("log-level", "", "Log level: debug, info, warn, error"),
	}
}

// load reads the config and applies the flags the user actually set
func (c *commonFlags) load(fs *flag.FlagSet) (*config.Config, interfaces.Logger, error) {
	cfg, err := config.Load(*c.config)
	if err != nil {
		return nil, nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "server":
			cfg.ServerURL = *c.server
		case "sdk":
			cfg.SDKVersion = *c.sdk
		case "cache-dir":
			cfg.CacheDir = *c.cacheDir
		case "log-level":
			cfg.LogLevel = *c.logLevel
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, interfaces.NewStderrLogger(interfaces.ParseLevel(cfg.LogLevel)), nil
}

// securityGateway is the composite gateway plus keyring management
type securityGateway interface {
	domaingateways.SecurityGateway
	ImportKeyring(keyPath string) error
	ImportKeyringFromURL(ctx context.Context, keysURL string) error
	SignaturesEnabled() bool
}

// client wires the catalog client stack from configuration
type client struct {
	cfg       *config.Config
	logger    interfaces.Logger
	catalog   *gateways.HTTPCatalogGateway
	security  securityGateway
	results   *sqlite.ScanRepository
	scanner   services.ScanService
	installer domaingateways.Installer
}

func newClient(ctx context.Context, cfg *config.Config, logger interfaces.Logger) (*client, error) {
	// Layer 1: Gateways (Infrastructure)
	security := gateways.NewCompositeSecurityGateway(cfg.VirusTotal.URL, cfg.VirusTotal.APIKey, logger)
	if cfg.Signatures.Enabled() {
		if err := importKeys(ctx, security, cfg.Signatures); err != nil {
			return nil, err
		}
	}

	results, err := sqlite.NewScanRepository(cfg.ScanDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open scan cache: %w", err)
	}

	// Layer 2: Service (Business Logic)
	scanner := domainservices.NewScanService(security, results, logger)

	return &client{
		cfg:       cfg,
		logger:    logger,
		catalog:   gateways.NewHTTPCatalogGateway(cfg.ServerURL),
		security:  security,
		results:   results,
		scanner:   scanner,
		installer: gateways.NewSystemInstaller(),
	}, nil
}

// importKeys loads every configured trusted key source
func importKeys(ctx context.Context, security securityGateway, keys config.SignatureConfig) error {
	if keys.Keyring != "" {
		if err := security.ImportKeyring(keys.Keyring); err != nil {
			return err
		}
	}
	if keys.KeysURL != "" {
		if err := security.ImportKeyringFromURL(ctx, keys.KeysURL); err != nil {
			return err
		}
	}
	return nil
}

// installOrchestrator builds the use case layer, printing status lines to stdout
func (c *client) installOrchestrator() *orchestrators.InstallOrchestrator {
	return orchestrators.NewInstallOrchestrator(
		c.catalog,
		gateways.NewDownloader(),
		c.installer,
		c.scanner,
		c.security,
		c.logger,
		orchestrators.InstallOrchestratorConfig{
			SDKVersion:       c.cfg.SDKVersion,
			CacheDir:         c.cfg.CacheDir,
			VerifySignatures: c.security.SignaturesEnabled(),
			Status:           printStatus,
		},
	)
}

func (c *client) Close() {
	if err := c.results.Close(); err != nil {
		c.logger.Warn("failed to close scan cache", interfaces.F("error", err))
	}
}

func printStatus(msg string) {
	fmt.Println("📱 " + msg)
}

// openClient loads configuration and the client stack
func openClient(ctx context.Context, fs *flag.FlagSet, common *commonFlags) (*client, error) {
	cfg, logger, err := common.load(fs)
	if err != nil {
		return nil, err
	}
	return newClient(ctx, cfg, logger)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
