package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/movemarket-backend/api/responses"
	"github.com/angelmondragon/movemarket-backend/api/validators"
	pkgAuth "github.com/angelmondragon/movemarket-backend/pkg/auth"
	"github.com/angelmondragon/movemarket-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/movemarket-backend/pkg/errors"
	"github.com/angelmondragon/movemarket-backend/pkg/logger"
)

// socketTokenParam carries the JWT for websocket upgrades; browsers cannot set
// headers on them.
const socketTokenParam = "token"

// Auth validates a bearer token and seeds the request context with the caller.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, logg, func(r *http.Request) (string, error) {
		return validators.BearerToken(r.Header.Get("Authorization"))
	})
}

// SocketAuth is Auth for websocket upgrades. It falls back to the token query
// parameter when no Authorization header is sent.
func SocketAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, logg, func(r *http.Request) (string, error) {
		if header := r.Header.Get("Authorization"); header != "" {
			return validators.BearerToken(header)
		}
		token := strings.TrimSpace(r.URL.Query().Get(socketTokenParam))
		if token == "" {
			return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing token")
		}
		return token, nil
	})
}

func authenticate(cfg config.JWTConfig, logg *logger.Logger, tokenFrom func(*http.Request) (string, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := tokenFrom(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.NewBilingual(pkgerrors.CodeUnauthorized, "missing credentials", "inloggningsuppgifter saknas"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token").WithSwedish("ogiltig token"))
				return
			}

			principal := Principal{
				Email:       claims.Email,
				Role:        claims.Role,
				RecipientID: claims.RecipientID(),
			}
			ctx := WithPrincipal(r.Context(), principal)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"actor_role": string(principal.Role),
					"actor_id":   principal.RecipientID,
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
