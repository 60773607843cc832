package controllers

import (
	"context"
	"net/http"

	"github.com/fasthttp/websocket"

	"github.com/angelmondragon/movemarket-backend/api/middleware"
	"github.com/angelmondragon/movemarket-backend/internal/rooms"
	"github.com/angelmondragon/movemarket-backend/pkg/logger"
	"github.com/angelmondragon/movemarket-backend/pkg/realtime"
)

// RoomAuthorizer decides which rooms a socket may join.
type RoomAuthorizer interface {
	CanJoin(ctx context.Context, caller rooms.Caller, room string) (bool, error)
}

// RealtimeSocket upgrades the request and registers the client with the hub.
// It must run after SocketAuth.
func RealtimeSocket(hub *realtime.Hub, upgrader *websocket.Upgrader, access RoomAuthorizer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil || access == nil {
			http.Error(w, "realtime unavailable", http.StatusServiceUnavailable)
			return
		}
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			http.Error(w, "missing credentials", http.StatusUnauthorized)
			return
		}
		// the upgrader already wrote the failure response
		if err := hub.ServeWS(upgrader, w, r, roomGuard(access, principal, logg)); err != nil && logg != nil {
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "realtime.upgrade_failed")
		}
	}
}

func roomGuard(access RoomAuthorizer, principal middleware.Principal, logg *logger.Logger) realtime.RoomGuard {
	caller := rooms.Caller{Role: principal.Role, Email: principal.Email, Subject: principal.RecipientID}
	return func(ctx context.Context, room string) bool {
		ok, err := access.CanJoin(ctx, caller, room)
		if err != nil {
			logg.Error(logg.WithField(ctx, "room", room), "realtime.join_check_failed", err)
			return false
		}
		if !ok {
			logg.Warn(logg.WithField(ctx, "room", room), "realtime.join_denied")
		}
		return ok
	}
}
