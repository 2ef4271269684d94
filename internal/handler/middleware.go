package handler

import (
	"crypto/hmac"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hauslink/voice-crm-bridge/pkg/logger"
	"go.uber.org/zap"
)

// SignatureHeader carries the shared webhook secret from the calling
// platform.
const SignatureHeader = "X-Vapi-Signature"

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RequestIDHeader echoes the generated request id back to the caller so
// responses can be correlated with log lines.
const RequestIDHeader = "X-Request-ID"

// GlobalLoggingMiddleware logs all HTTP requests with a generated request id.
func GlobalLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set(RequestIDHeader, requestID)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		logger.Base().Info("http request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.RequestURI),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", wrapped.statusCode),
			zap.Duration("latency", time.Since(start)),
		)
	})
}

// CORSMiddleware adds CORS headers to all requests
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+SignatureHeader)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SignatureMiddleware verifies the shared webhook secret. With no secret
// configured, verification is skipped with a warning. In strict mode a
// mismatch is rejected with 401; otherwise it is logged and the request
// proceeds.
func SignatureMiddleware(secret string, strict bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				logger.Base().Warn("webhook secret not configured, skipping signature verification",
					zap.String("path", r.URL.Path))
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get(SignatureHeader)
			if hmac.Equal([]byte(provided), []byte(secret)) {
				next.ServeHTTP(w, r)
				return
			}

			if strict {
				logger.Base().Warn("webhook signature mismatch, rejecting",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error": "invalid signature"}`))
				return
			}

			logger.Base().Warn("webhook signature mismatch, continuing (strict mode disabled)",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr))
			next.ServeHTTP(w, r)
		})
	}
}
