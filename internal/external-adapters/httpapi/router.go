// Package httpapi serves the catalog REST API.
package httpapi

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"

	orchestrators "github.com/ochairo/reloaded/internal/domain-orchestrators"
	"github.com/ochairo/reloaded/internal/domain/interfaces"
	"github.com/ochairo/reloaded/internal/domain/interfaces/repositories"
)

// DefaultMaxUploadBytes caps the size of an uploaded package
const DefaultMaxUploadBytes = 200 << 20

// Config holds the server's storage locations and limits
type Config struct {
	// PackagesDir holds the files served by /download
	PackagesDir string
	// UploadsDir receives files posted to /upload
	UploadsDir     string
	MaxUploadBytes int64
}

// Server implements the catalog endpoints
type Server struct {
	catalog repositories.CatalogRepository
	scans   *orchestrators.ScanOrchestrator
	logger  interfaces.Logger
	config  Config
}

// NewServer creates the catalog API server
func NewServer(catalog repositories.CatalogRepository, scans *orchestrators.ScanOrchestrator, logger interfaces.Logger, config Config) (*Server, error) {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if config.UploadsDir == "" {
		config.UploadsDir = filepath.Join(config.PackagesDir, "uploads")
	}
	if err := os.MkdirAll(config.UploadsDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create uploads dir: %w", err)
	}

	return &Server{
		catalog: catalog,
		scans:   scans,
		logger:  logger,
		config:  config,
	}, nil
}

// Router returns the mux with every catalog route registered
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprintln(w, "OK")
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/apps/details/{packageName}", s.handleAppDetails).Methods(http.MethodGet)
	r.HandleFunc("/download/{filename}", s.handleDownload).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/apps", s.handleListApps).Methods(http.MethodGet)
	r.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/scan", s.handleScan).Methods(http.MethodPost)
	r.Use(s.logRequests)
	return r
}

// HTTPServer wraps the router in an http.Server listening on addr
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			interfaces.F("method", r.Method),
			interfaces.F("path", r.URL.Path),
			interfaces.F("status", rec.status),
			interfaces.F("duration", time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
