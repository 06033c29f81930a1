// Package api serves the JSON analysis endpoint and the health check.
package api

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	apphttp "statementlens/internal/http"
	applog "statementlens/internal/log"
	"statementlens/internal/services/analysis"
	"statementlens/internal/services/statement"
	"statementlens/internal/services/storage"
	"statementlens/internal/upload"
	"statementlens/internal/version"
)

// maxRequestSize leaves room for multipart headers around a maximal file
const maxRequestSize = upload.MaxFileSize + 1<<20

// allowedExtensions are matched case-insensitively
var allowedExtensions = map[string]bool{".csv": true, ".xlsx": true}

var (
	parser   *statement.Parser
	analyzer *analysis.Service
	store    *storage.Storage
)

// Initialize sets up the api package with required dependencies
func Initialize(p *statement.Parser, a *analysis.Service, s *storage.Storage) {
	parser = p
	analyzer = a
	store = s
}

// RegisterRoutes registers the analysis route
func RegisterRoutes(r chi.Router) {
	r.Post("/upload", handleUpload)
}

// RegisterHealthRoutes registers the health check
func RegisterHealthRoutes(r chi.Router) {
	r.Get("/api/health", handleHealth)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	apphttp.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func handleUpload(w http.ResponseWriter, r *http.Request) {
	log := applog.FromContext(r.Context()).WithComponent(applog.ComponentAnalysis)

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
	file, header, err := r.FormFile(upload.FormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apphttp.JSONError(w, upload.MsgTooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
			// browsers send an empty, nameless part when nothing was chosen
			if _, ok := r.MultipartForm.Value[upload.FormField]; ok {
				apphttp.JSONError(w, "No selected file", http.StatusBadRequest)
				return
			}
		}
		apphttp.JSONError(w, "No file part", http.StatusBadRequest)
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if !allowedExtensions[strings.ToLower(filepath.Ext(header.Filename))] {
		apphttp.JSONError(w, upload.MsgInvalidType, http.StatusBadRequest)
		return
	}
	if header.Size > upload.MaxFileSize {
		apphttp.JSONError(w, upload.MsgTooLarge, http.StatusRequestEntityTooLarge)
		return
	}

	log = log.With(applog.FieldFile, header.Filename)

	data, err := io.ReadAll(file)
	if err != nil {
		unexpected(w, log, err)
		return
	}

	path, err := store.Spool(header.Filename, data)
	if err != nil {
		unexpected(w, log, err)
		return
	}
	defer func() {
		if err := store.Remove(path); err != nil {
			log.Warn("failed to remove spooled upload", applog.FieldError, err)
		}
	}()

	spooled, err := store.ReadFile(path)
	if err != nil {
		unexpected(w, log, err)
		return
	}

	ts, err := parser.Parse(header.Filename, spooled)
	if err != nil {
		var invalid *statement.ValidationError
		switch {
		case errors.Is(err, statement.ErrNoTransactions):
			log.Info("statement has no transactions")
			apphttp.WriteJSON(w, http.StatusOK, map[string]string{"error": err.Error()})
		case errors.As(err, &invalid):
			log.Warn("statement rejected", applog.FieldError, err)
			apphttp.JSONError(w, invalid.Message, http.StatusBadRequest)
		default:
			unexpected(w, log, err)
		}
		return
	}

	apphttp.WriteJSON(w, http.StatusOK, analyzer.Analyze(ts))
}

func unexpected(w http.ResponseWriter, log *applog.Logger, err error) {
	log.Error("upload failed", applog.FieldError, err)
	apphttp.JSONError(w, "An unexpected error occurred: "+err.Error(), http.StatusInternalServerError)
}
