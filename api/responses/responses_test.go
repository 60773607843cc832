package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/angelmondragon/movemarket-backend/pkg/errors"
	"github.com/angelmondragon/movemarket-backend/pkg/types"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"hello": "world"})

	if got := w.Code; got != http.StatusOK {
		t.Fatalf("expected status 200 but got %d", got)
	}

	var body types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode success envelope: %v", err)
	}
	if body.Data.(map[string]any)["hello"] != "world" {
		t.Fatalf("unexpected payload %v", body.Data)
	}
}

func TestWriteErrorBilingual(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.NewBilingual(pkgerrors.CodeForbidden, "email mismatch", "e-postadressen matchar inte")
	WriteError(context.Background(), nil, w, err)

	if got := w.Code; got != http.StatusForbidden {
		t.Fatalf("expected status 403 but got %d", got)
	}
	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if body.Error != "email mismatch" || body.ErrorSv != "e-postadressen matchar inte" {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.Code != string(pkgerrors.CodeForbidden) {
		t.Fatalf("unexpected code %q", body.Code)
	}
}

func TestWriteErrorValidationDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "bad input").
		WithDetails(map[string]string{"field": "bid_id"})
	WriteError(context.Background(), nil, w, err)

	if got := w.Code; got != http.StatusBadRequest {
		t.Fatalf("expected status 400 but got %d", got)
	}
	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if body.ErrorSv != pkgerrors.MetadataFor(pkgerrors.CodeValidation).PublicMessageSv {
		t.Fatalf("expected generic swedish copy, got %q", body.ErrorSv)
	}
	details, ok := body.Details.(map[string]any)
	if !ok || details["field"] != "bid_id" {
		t.Fatalf("unexpected details %v", body.Details)
	}
}

func TestWriteErrorHidesInternalMessages(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("pq: connection refused"))

	if got := w.Code; got != http.StatusInternalServerError {
		t.Fatalf("expected status 500 but got %d", got)
	}
	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if body.Error != "internal server error" {
		t.Fatalf("internal detail leaked: %q", body.Error)
	}
}

func TestWriteText(t *testing.T) {
	w := httptest.NewRecorder()
	WriteText(w, http.StatusBadRequest, "Webhook Error: invalid signature")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if w.Body.String() != "Webhook Error: invalid signature" {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
}
