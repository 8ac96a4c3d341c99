package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	adapters "github.com/ochairo/reloaded/internal/domain-adapters/gateways"
	"github.com/ochairo/reloaded/internal/domain/entities"
	"github.com/ochairo/reloaded/internal/domain/interfaces"
	"github.com/ochairo/reloaded/internal/domain/interfaces/gateways"
	"github.com/ochairo/reloaded/internal/domain/interfaces/services"
)

// handleAppDetails returns the catalog entry for a package and platform version
func (s *Server) handleAppDetails(w http.ResponseWriter, r *http.Request) {
	packageName := mux.Vars(r)["packageName"]
	sdkParam := r.URL.Query().Get("sdk_version")

	sdkVersion, err := strconv.Atoi(sdkParam)
	if err != nil || sdkVersion < 0 {
		http.Error(w, "sdk_version must be a non-negative integer", http.StatusBadRequest)
		return
	}

	s.logger.Debug("details requested", interfaces.F("package", packageName), interfaces.F("sdk", sdkVersion))

	entry, err := s.catalog.GetEntry(r.Context(), packageName, sdkVersion)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleDownload serves a package file from the packages directory
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		http.Error(w, "APK File Not Found", http.StatusNotFound)
		return
	}

	path := filepath.Join(s.config.PackagesDir, filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		s.logger.Debug("download miss", interfaces.F("filename", filename))
		http.Error(w, "APK File Not Found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.android.package-archive")
	http.ServeFile(w, r, path)
}

// handleListApps returns every catalog release as a package descriptor
func (s *Server) handleListApps(w http.ResponseWriter, r *http.Request) {
	entries, err := s.catalog.ListEntries(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	packages := make([]entities.Package, 0, len(entries))
	for _, e := range entries {
		packages = append(packages, e.Package())
	}
	writeJSON(w, http.StatusOK, packages)
}

// handleUpload stores a posted package under a fresh name, then scans and records it
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)

	file, header, err := r.FormFile(adapters.UploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, fmt.Sprintf("missing %q file field", adapters.UploadField), http.StatusBadRequest)
		return
	}
	//nolint:errcheck // Defer close on multipart file
	defer file.Close()

	filename := uuid.NewString() + ".apk"
	path := filepath.Join(s.config.UploadsDir, filename)
	if err := saveUpload(file, path); err != nil {
		s.logger.Error("failed to store upload", interfaces.F("error", err))
		http.Error(w, "failed to store upload", http.StatusInternalServerError)
		return
	}

	s.logger.Info("upload received", interfaces.F("original", header.Filename), interfaces.F("stored", filename))

	result, err := s.scans.ScanUpload(r.Context(), path, services.ScanHints{
		PackageName: r.FormValue("package_name"),
		VersionName: r.FormValue("version_name"),
	})
	if err != nil {
		s.logger.Error("upload scan failed", interfaces.F("stored", filename), interfaces.F("error", err))
		http.Error(w, "failed to scan upload", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, gateways.UploadResult{
		OK:       true,
		Filename: filename,
		SHA256:   result.Scan.SHA256,
		Verdict:  result.Scan.Verdict,
	})
}

// handleScan returns the recorded verdict for a hash
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req adapters.ScanRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64*1024)).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	s.logger.Info("scan requested", interfaces.F("sha256", req.SHA256), interfaces.F("package", req.PackageName))

	verdict, err := s.scans.Verdict(r.Context(), req.SHA256, req.PackageName)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adapters.ScanResponse{Verdict: verdict})
}

func saveUpload(src io.Reader, path string) error {
	//nolint:gosec // G304: path is built from a generated uuid
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		//nolint:errcheck // Already returning the copy error
		dst.Close()
		//nolint:errcheck // Best-effort cleanup
		os.Remove(path)
		return err
	}
	return dst.Close()
}

// writeError maps domain errors to HTTP status codes
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entities.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, entities.ErrInvalid):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Error("request failed", interfaces.F("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
