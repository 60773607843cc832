package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/movemarket-backend/api/middleware"
	"github.com/angelmondragon/movemarket-backend/internal/notifications"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	"github.com/angelmondragon/movemarket-backend/pkg/logger"
)

type testNotificationsService struct {
	markReadFn    func(ctx context.Context, recipient notifications.Recipient, notificationID uuid.UUID) error
	markAllReadFn func(ctx context.Context, recipient notifications.Recipient) (int64, error)
	listFn        func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error)
}

func (s *testNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &notifications.ListResult{}, nil
}

func (s *testNotificationsService) MarkRead(ctx context.Context, recipient notifications.Recipient, notificationID uuid.UUID) error {
	if s.markReadFn != nil {
		return s.markReadFn(ctx, recipient, notificationID)
	}
	return nil
}

func (s *testNotificationsService) MarkAllRead(ctx context.Context, recipient notifications.Recipient) (int64, error) {
	if s.markAllReadFn != nil {
		return s.markAllReadFn(ctx, recipient)
	}
	return 0, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withSupplier(req *http.Request, supplierID string) *http.Request {
	return req.WithContext(middleware.WithPrincipal(req.Context(), middleware.Principal{
		Email:       "flytt@example.com",
		Role:        enums.RoleSupplier,
		RecipientID: supplierID,
	}))
}

func TestMarkNotificationReadSuccess(t *testing.T) {
	notificationID := uuid.New()
	called := false
	svc := &testNotificationsService{
		markReadFn: func(ctx context.Context, recipient notifications.Recipient, nid uuid.UUID) error {
			called = true
			if recipient.Type != enums.RoleSupplier || recipient.ID != "12" {
				t.Fatalf("unexpected recipient %+v", recipient)
			}
			if nid != notificationID {
				t.Fatalf("unexpected notification %s", nid)
			}
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/notifications/"+notificationID.String()+"/read", nil)
	req = withSupplier(req, "12")
	req = addRouteParam(req, "notificationId", notificationID.String())

	resp := httptest.NewRecorder()
	MarkNotificationRead(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !called {
		t.Fatal("expected service called")
	}
	var envelope struct {
		Data map[string]bool `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !envelope.Data["read"] {
		t.Fatal("response missing read flag")
	}
}

func TestMarkNotificationReadWithoutPrincipal(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/notifications/"+uuid.NewString()+"/read", nil)
	req = addRouteParam(req, "notificationId", uuid.NewString())
	resp := httptest.NewRecorder()
	MarkNotificationRead(&testNotificationsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestMarkNotificationReadInvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/notifications/invalid/read", nil)
	req = withSupplier(req, "12")
	req = addRouteParam(req, "notificationId", "invalid")
	resp := httptest.NewRecorder()
	MarkNotificationRead(&testNotificationsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestMarkAllNotificationsReadSuccess(t *testing.T) {
	svc := &testNotificationsService{
		markAllReadFn: func(ctx context.Context, recipient notifications.Recipient) (int64, error) {
			if recipient.ID != "12" {
				t.Fatalf("unexpected recipient %+v", recipient)
			}
			return 5, nil
		},
	}

	req := withSupplier(httptest.NewRequest(http.MethodPost, "/api/notifications/read-all", nil), "12")
	resp := httptest.NewRecorder()
	MarkAllNotificationsRead(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data map[string]float64 `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data["updated"] != 5 {
		t.Fatalf("expected updated=5 got %v", envelope.Data["updated"])
	}
}

func TestListNotificationsPassesQuery(t *testing.T) {
	var got notifications.ListParams
	svc := &testNotificationsService{
		listFn: func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
			got = params
			return &notifications.ListResult{Cursor: "next"}, nil
		},
	}

	req := withSupplier(httptest.NewRequest(http.MethodGet, "/api/notifications?limit=5&cursor=abc&unreadOnly=true", nil), "12")
	resp := httptest.NewRecorder()
	ListNotifications(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if got.Limit != 5 || got.Cursor != "abc" || !got.UnreadOnly || got.Recipient.ID != "12" {
		t.Fatalf("unexpected params %+v", got)
	}

	bad := withSupplier(httptest.NewRequest(http.MethodGet, "/api/notifications?limit=500", nil), "12")
	resp = httptest.NewRecorder()
	ListNotifications(svc, testLogger())(resp, bad)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}
