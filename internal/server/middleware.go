package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// corsMiddleware adds CORS headers to responses and records request metrics.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		// Cache preflight results for a day to reduce OPTIONS traffic
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		start := time.Now()
		next(rw, r)
		duration := time.Since(start)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, http.StatusText(rw.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration.Seconds())
	}
}

// rateLimitMiddleware enforces rate limiting and quotas.
func (s *Server) rateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.rateLimiter == nil {
			next(w, r)
			return
		}

		userID := getClientIP(r)

		var dataSize int64
		if r.ContentLength > 0 {
			dataSize = r.ContentLength
		}

		if err := s.rateLimiter.CheckRateLimit(userID, dataSize); err != nil {
			s.handleRateLimitError(w, err)
			return
		}

		next(w, r)
	}
}

// handleRateLimitError handles rate limit and quota errors.
func (s *Server) handleRateLimitError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	var rate *RateLimitError
	var quota *QuotaExceededError
	switch {
	case errors.As(err, &rate):
		rateLimitHits.WithLabelValues(rate.Type).Inc()
		w.Header().Set("X-RateLimit-Type", rate.Type)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rate.Limit))
		w.Header().Set("Retry-After", fmt.Sprintf("%.0f", rate.RetryAfter.Seconds()))
		w.WriteHeader(http.StatusTooManyRequests)
		writeLimitBody(w, map[string]interface{}{
			"error":       "rate_limit_exceeded",
			"type":        rate.Type,
			"limit":       rate.Limit,
			"retry_after": rate.RetryAfter.Seconds(),
			"message":     rate.Error(),
		})
	case errors.As(err, &quota):
		rateLimitHits.WithLabelValues(quota.Type).Inc()
		w.Header().Set("X-Quota-Type", quota.Type)
		w.Header().Set("X-Quota-Limit", strconv.FormatInt(quota.Limit, 10))
		w.Header().Set("X-Quota-Used", strconv.FormatInt(quota.Used, 10))
		w.Header().Set("X-Quota-Resets", quota.Resets.Format(http.TimeFormat))
		w.WriteHeader(http.StatusTooManyRequests)
		writeLimitBody(w, map[string]interface{}{
			"error":   "quota_exceeded",
			"type":    quota.Type,
			"limit":   quota.Limit,
			"used":    quota.Used,
			"resets":  quota.Resets.Format(time.RFC3339),
			"message": quota.Error(),
		})
	default:
		w.WriteHeader(http.StatusInternalServerError)
		writeLimitBody(w, map[string]interface{}{
			"error":   "internal_error",
			"message": "Rate limiting check failed",
		})
	}
}

func writeLimitBody(w http.ResponseWriter, body map[string]interface{}) {
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode rate limit response", "error", err)
	}
}

// getClientIP extracts the client IP address from the request.
func getClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
