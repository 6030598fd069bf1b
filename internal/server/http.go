// Package server exposes the extraction pipeline over HTTP, with a gRPC health endpoint.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/doctext/internal/artifact"
	"github.com/joseph-ayodele/doctext/internal/common"
	"github.com/joseph-ayodele/doctext/internal/pipeline"
)

// Extractor runs one extraction job. *pipeline.Orchestrator implements it.
type Extractor interface {
	Run(ctx context.Context, path string, opts pipeline.JobOptions) (pipeline.Result, error)
}

// UploadHandler accepts a single multipart file and answers with its plain text.
type UploadHandler struct {
	extractor Extractor
	uploads   *artifact.Manager
	defaults  pipeline.JobOptions
	maxBytes  int64
	logger    *slog.Logger
}

func NewUploadHandler(ex Extractor, uploads *artifact.Manager, defaults pipeline.JobOptions, maxBytes int64, logger *slog.Logger) *UploadHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = 50 << 20
	}
	return &UploadHandler{extractor: ex, uploads: uploads, defaults: defaults, maxBytes: maxBytes, logger: logger}
}

// NewRouter wires /upload and /health.
func NewRouter(h *UploadHandler, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if requestTimeout > 0 {
		r.Use(chimiddleware.Timeout(requestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy","service":"doctext"}`))
	})
	r.Post("/upload", h.Upload)
	return r
}

// Upload handles POST /upload. Form fields lang and whitelist override the defaults for this job.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := common.WithRequestID(r.Context(), chimiddleware.GetReqID(r.Context()))
	logger := common.LoggerFrom(ctx, h.logger)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeText(w, http.StatusRequestEntityTooLarge, "File too large.")
			return
		}
		logger.Warn("upload without file", "error", err)
		writeText(w, http.StatusBadRequest, "No file uploaded.")
		return
	}
	defer func() { _ = file.Close() }()

	scope, err := h.uploads.NewScope("")
	if err != nil {
		logger.Error("cannot create upload scope", "error", err)
		writeText(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer func() { _ = scope.Release() }()

	// the extension drives classification, the rest of the client name is discarded
	ext := strings.ToLower(filepath.Ext(filepath.Base(hdr.Filename)))
	dst, err := scope.Track(scope.Path("upload"+ext), artifact.OwnerUpload)
	if err == nil {
		err = saveUpload(file, dst.Path)
	}
	if err != nil {
		logger.Error("cannot store upload", "filename", hdr.Filename, "error", err)
		writeText(w, http.StatusInternalServerError, "internal error")
		return
	}

	opts := h.defaults
	if lang := strings.TrimSpace(r.FormValue("lang")); lang != "" {
		opts.Language = lang
	}
	if wl := r.FormValue("whitelist"); wl != "" {
		opts.Whitelist = wl
	}

	logger.Info("upload received", "filename", hdr.Filename, "size", hdr.Size, "lang", opts.Language)
	res, err := h.extractor.Run(ctx, dst.Path, opts)
	if err != nil {
		if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
			// the Timeout middleware answers 504
			logger.Warn("upload timed out", "filename", hdr.Filename, "error", err)
			return
		}
		writeText(w, http.StatusInternalServerError, common.SafeMessage(err))
		return
	}
	w.Header().Set("X-Job-ID", res.JobID)
	w.Header().Set("X-Page-Count", strconv.Itoa(len(res.PerPage)))
	w.Header().Set("X-Warning-Count", strconv.Itoa(len(res.Warnings)))
	writeText(w, http.StatusOK, res.FullText)
}

func saveUpload(src io.Reader, path string) error {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
