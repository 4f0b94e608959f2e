package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/docslice/internal/assemble"
	"github.com/MeKo-Tech/docslice/internal/document"
	"github.com/MeKo-Tech/docslice/internal/engine/vectortext"
	"github.com/MeKo-Tech/docslice/internal/render"
)

// processor defines the methods needed by the server from a pipeline.
type processor interface {
	Process(ctx context.Context, req *document.Request) (*document.Response, error)
	ProcessWithProgress(ctx context.Context, req *document.Request, progress assemble.ProgressFunc) (*document.Response, error)
}

// Defaults are applied to request fields the caller leaves unset.
type Defaults struct {
	Mode    document.Mode
	Format  document.ImageFormat
	Quality int
	Scale   float64
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline    processor
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	defaults    Defaults
	rateLimiter *RateLimiter
	started     time.Time
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	Pipeline    assemble.Config
	Defaults    Defaults

	// Rate limiting, all zero means disabled.
	RateLimitPerMinute int
	RateLimitPerHour   int
	MaxRequestsPerDay  int
	MaxDataPerDayMB    int64
}

// ErrorResponse is the JSON body of every error status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a new document processing server instance.
func NewServer(config Config) (*Server, error) {
	pipeline := assemble.New(vectortext.New(), render.NewPageRenderer, config.Pipeline)

	s := &Server{
		pipeline:    pipeline,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
		defaults:    config.Defaults,
		started:     time.Now().UTC(),
	}
	if config.RateLimitPerMinute > 0 || config.RateLimitPerHour > 0 ||
		config.MaxRequestsPerDay > 0 || config.MaxDataPerDayMB > 0 {
		s.rateLimiter = NewRateLimiter(
			config.RateLimitPerMinute,
			config.RateLimitPerHour,
			config.MaxRequestsPerDay,
			config.MaxDataPerDayMB*1024*1024,
		)
	}
	return s, nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/process", s.corsMiddleware(s.rateLimitMiddleware(s.processHandler)))
	mux.HandleFunc("/ws/process", s.processWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}
