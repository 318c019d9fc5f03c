package httpapi

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
)

// ResponseRecorder receives one observation per HTTP response.
type ResponseRecorder interface {
	RecordHTTPResponse(statusCode int, d time.Duration)
}

// statusRecorder wraps http.ResponseWriter to remember the status code and
// the authenticated user, both for the access log.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
	userID     string
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// NewLoggingMiddleware writes one structured log line per request with
// method, path, status, duration_ms and user_id when authenticated.
// rec may be nil.
func NewLoggingMiddleware(logger logging.Logger, rec ResponseRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			if rec != nil {
				rec.RecordHTTPResponse(sr.statusCode, duration)
			}

			args := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", sr.statusCode,
				"duration_ms", float64(duration.Nanoseconds()) / float64(time.Millisecond),
			}
			if sr.userID != "" {
				args = append(args, "user_id", sr.userID)
			}

			switch {
			case sr.statusCode >= 500:
				logger.Error(r.Context(), "http_request", args...)
			case sr.statusCode >= 400:
				logger.Warn(r.Context(), "http_request", args...)
			default:
				logger.Info(r.Context(), "http_request", args...)
			}
		})
	}
}

// NewRecoveryMiddleware turns a handler panic into a 500.
func NewRecoveryMiddleware(logger logging.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error(r.Context(), "panic recovered",
						"panic", rec,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					writeError(w, http.StatusInternalServerError, "internal", "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticate admits requests whose bearer token resolves to an existing
// user and attaches that user with auth.WithPrincipal. Every token failure
// gets the same 401 body; the specific kind is logged.
func Authenticate(extract auth.HTTPExtractor, resolver auth.PrincipalResolver, logger logging.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// an empty token is reported by the resolver as missing
			token, err := extract(r)
			if err != nil {
				token = ""
			}

			user, err := resolver.ValidatePrincipal(ctx, token)
			if err != nil {
				if common.IsTokenError(err) {
					logger.Info(ctx, "request not authenticated", "kind", common.Kind(err), "path", r.URL.Path)
					writeUnauthenticated(w)
					return
				}
				writeServiceError(ctx, w, logger, err)
				return
			}

			if sr, ok := w.(*statusRecorder); ok {
				sr.userID = user.ID
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(ctx, user)))
		})
	}
}
