// Package config loads client and server settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file
const (
	EnvConfigPath = "RELOADED_CONFIG"
	EnvServerURL  = "RELOADED_SERVER_URL"
	EnvVTKey      = "VIRUSTOTAL_API_KEY"
	EnvCacheDir   = "RELOADED_CACHE_DIR"
	EnvDBPath     = "RELOADED_DB"
	EnvSDKVersion = "RELOADED_SDK_VERSION"
	EnvLogLevel   = "RELOADED_LOG_LEVEL"
)

// Defaults
const (
	DefaultServerURL  = "http://localhost:3000"
	DefaultListenAddr = ":3000"
	DefaultSDKVersion = 19
	DefaultLogLevel   = "info"
)

// Config holds every setting shared by the CLI subcommands
type Config struct {
	ServerURL  string           `yaml:"server_url"`
	SDKVersion int              `yaml:"sdk_version"`
	CacheDir   string           `yaml:"cache_dir"`
	DBPath     string           `yaml:"db_path"`
	LogLevel   string           `yaml:"log_level"`
	VirusTotal VirusTotalConfig `yaml:"virustotal"`
	Signatures SignatureConfig  `yaml:"signatures"`
	Server     ServerConfig     `yaml:"server"`
}

// VirusTotalConfig configures the reputation lookup
type VirusTotalConfig struct {
	APIKey string `yaml:"api_key"`
	URL    string `yaml:"url"`
}

// SignatureConfig configures OpenPGP package signature checks
type SignatureConfig struct {
	Keyring string `yaml:"keyring"`
	KeysURL string `yaml:"keys_url"`
}

// Enabled reports whether a trusted key source is configured
func (s SignatureConfig) Enabled() bool {
	return s.Keyring != "" || s.KeysURL != ""
}

// ServerConfig configures the catalog server
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	CatalogDir  string `yaml:"catalog_dir"`
	PackagesDir string `yaml:"packages_dir"`
	UploadsDir  string `yaml:"uploads_dir"`
	Mock        bool   `yaml:"mock"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
}

// Default returns the built-in configuration
func Default() *Config {
	cacheDir := filepath.Join(os.TempDir(), "reloaded")
	if dir, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(dir, "reloaded")
	}

	return &Config{
		ServerURL:  DefaultServerURL,
		SDKVersion: DefaultSDKVersion,
		CacheDir:   cacheDir,
		LogLevel:   DefaultLogLevel,
		Server: ServerConfig{
			Addr:        DefaultListenAddr,
			CatalogDir:  "catalog",
			PackagesDir: "packages",
			MaxUploadMB: 200,
		},
	}
}

// DefaultPath returns $RELOADED_CONFIG or the per-user config file location
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "reloaded.yml"
	}
	return filepath.Join(dir, "reloaded", "config.yml")
}

// Load reads the config file at path over the defaults, then applies the environment.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		//nolint:gosec // G304: path is the user's config file
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables looked up with getenv
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvServerURL); v != "" {
		c.ServerURL = v
	}
	if v := getenv(EnvVTKey); v != "" {
		c.VirusTotal.APIKey = v
	}
	if v := getenv(EnvCacheDir); v != "" {
		c.CacheDir = v
	}
	if v := getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := getenv(EnvSDKVersion); v != "" {
		sdk, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", EnvSDKVersion, err)
		}
		c.SDKVersion = sdk
	}
	return nil
}

// ScanDBPath returns the scan database location, defaulting into the cache dir
func (c *Config) ScanDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.CacheDir, "scans.db")
}

// Validate checks the settings the client needs
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server_url must be an http(s) URL, got %q", c.ServerURL)
	}
	if c.SDKVersion < 0 {
		return fmt.Errorf("sdk_version must not be negative")
	}
	if c.CacheDir == "" {
		return fmt.Errorf("cache_dir is required")
	}
	if c.Server.MaxUploadMB < 0 {
		return fmt.Errorf("server.max_upload_mb must not be negative")
	}
	return nil
}
