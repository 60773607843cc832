package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/angelmondragon/movemarket-backend/api/responses"
	pkgerrors "github.com/angelmondragon/movemarket-backend/pkg/errors"
	"github.com/angelmondragon/movemarket-backend/pkg/logger"
)

// Recoverer turns a handler panic into a bilingual 500. http.ErrAbortHandler
// is re-raised so net/http can drop the connection, and nothing is written
// once a websocket upgrade hijacked the connection.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}
				err := fmt.Errorf("panic: %v", v)
				ctx := logg.WithFields(r.Context(), map[string]any{"panic": v, "hijacked": rec.hijacked})
				logg.Error(ctx, "panic.recovered", err)
				if rec.hijacked || rec.status != 0 {
					return
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(rec, r)
		})
	}
}
