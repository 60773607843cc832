package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/movemarket-backend/pkg/logger"
)

// quietPaths are polled by the platform; they log at debug level.
var quietPaths = map[string]struct{}{
	"/health/live":  {},
	"/health/ready": {},
	"/metrics":      {},
}

// Logging writes one completion line per request. Server errors log at error
// level and client errors at warn, tagged with the chi route pattern so
// /api/notifications/{notificationId}/read groups in log search.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()

			next.ServeHTTP(rec, r.WithContext(ctx))

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			fields := map[string]any{
				"status":      rec.status,
				"bytes":       rec.bytes,
				"duration_ms": time.Since(start).Milliseconds(),
			}
			if route := logRoutePattern(r); route != "" {
				fields["route"] = route
			}
			ctx = logg.WithFields(ctx, fields)

			switch {
			case rec.status >= http.StatusInternalServerError:
				logg.Error(ctx, "request.complete", nil)
			case rec.status >= http.StatusBadRequest:
				logg.Warn(ctx, "request.complete")
			case isQuiet(r.URL.Path):
				logg.Debug(ctx, "request.complete")
			default:
				logg.Info(ctx, "request.complete")
			}
		})
	}
}

func logRoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}

func isQuiet(path string) bool {
	_, ok := quietPaths[strings.TrimRight(path, "/")]
	return ok
}
