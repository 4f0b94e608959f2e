package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/docslice/internal/document"
	"github.com/MeKo-Tech/docslice/internal/version"
)

// healthHandler returns service identity and uptime.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := document.HealthResponse{
		Version:   version.Version,
		BuildID:   version.BuildID,
		CommitSHA: version.GitCommit,
		UpSince:   s.started.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode health response", "error", err)
	}
}

// processHandler accepts a multipart PDF upload and returns the sliced
// document.
func (s *Server) processHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)

	if err := r.ParseMultipartForm(s.maxUploadMB * 1024 * 1024); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "body too large") {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		s.writeErrorResponse(w, "No document provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	if header.Size > s.maxUploadMB*1024*1024 {
		s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read document data", http.StatusInternalServerError)
		return
	}
	uploadSizeBytes.Observe(float64(len(data)))

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}
	req := &document.Request{
		DocumentName: header.Filename,
		ContentType:  contentType,
		Data:         data,
	}
	if err := s.applyFormOptions(req, r.FormValue); err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if s.timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.pipeline.Process(ctx, req)
	duration := time.Since(start)
	if err != nil {
		processRequestsTotal.WithLabelValues(string(req.Mode), "error").Inc()
		s.writeProcessingError(w, err)
		return
	}
	processRequestsTotal.WithLabelValues(string(req.Mode), "success").Inc()
	processDuration.WithLabelValues(string(req.Mode)).Observe(duration.Seconds())
	pagesProcessed.Observe(float64(len(resp.Pages)))
	var total int
	for _, p := range resp.Pages {
		total += len(p.Slices)
	}
	slicesExtracted.Observe(float64(total))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode process response", "error", err)
	}
}

// applyFormOptions fills the request from form or query style key lookups.
// Server-level defaults cover anything the caller does not set.
func (s *Server) applyFormOptions(req *document.Request, value func(string) string) error {
	req.Mode = s.defaults.Mode
	req.ImageFormat = s.defaults.Format
	req.ImageQuality = s.defaults.Quality
	req.ImageScale = s.defaults.Scale

	if v := value("mode"); v != "" {
		req.Mode = document.Mode(v)
	}
	if v := value("first_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("first_page must be an integer")
		}
		req.FirstPage = n
	}
	if v := value("last_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("last_page must be an integer")
		}
		req.LastPage = n
	}
	if v := value("page_screenshots"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New("page_screenshots must be a boolean")
		}
		req.PageScreenshots = b
	}
	if v := value("slice_screenshots"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New("slice_screenshots must be a boolean")
		}
		req.SliceScreenshots = b
	}
	if v := value("image_format"); v != "" {
		req.ImageFormat = document.ImageFormat(v)
	}
	if v := value("image_quality"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("image_quality must be an integer")
		}
		req.ImageQuality = n
	}
	if v := value("image_scale"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.New("image_scale must be a number")
		}
		req.ImageScale = f
	}
	return nil
}

// writeProcessingError maps pipeline errors onto HTTP statuses. Validation
// failures are the caller's fault, everything else is ours.
func (s *Server) writeProcessingError(w http.ResponseWriter, err error) {
	var invalid *document.InvalidRequestError
	if errors.As(err, &invalid) {
		s.writeErrorResponse(w, invalid.Reason, http.StatusBadRequest)
		return
	}
	var processing *document.ProcessingError
	if errors.As(err, &processing) {
		slog.Error("Document processing failed", "stage", processing.Stage, "error", processing.Err)
		// Inspection failures mean the upload is not a readable PDF.
		if processing.Stage == "inspection" {
			s.writeErrorResponse(w, "Document could not be read", http.StatusUnprocessableEntity)
			return
		}
		s.writeErrorResponse(w, "Document processing failed: "+processing.Stage, http.StatusInternalServerError)
		return
	}
	slog.Error("Document processing failed", "error", err)
	s.writeErrorResponse(w, "Document processing failed", http.StatusInternalServerError)
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		slog.Error("Failed to write error response", "error", err)
	}
}
