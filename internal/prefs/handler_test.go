package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/dto"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/shared"
)

func newTestHandler(t *testing.T) (*Handler, *Store) {
	t.Helper()
	store := setupTestStore(t)
	return NewHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func profileContext(method, id, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, "/v1/profiles/"+id, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c, rec
}

func httpErrorCode(t *testing.T, err error) (int, string) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected echo.HTTPError, got %v", err)
	}
	apiErr, ok := he.Message.(*shared.APIError)
	if !ok {
		t.Fatalf("expected *shared.APIError, got %T", he.Message)
	}
	return he.Code, apiErr.Code
}

func TestHandler_GetNotFound(t *testing.T) {
	h, _ := newTestHandler(t)
	c, _ := profileContext(http.MethodGet, "nobody", "")

	status, code := httpErrorCode(t, h.Get(c))
	if status != http.StatusNotFound || code != "profile_not_found" {
		t.Errorf("unexpected error %d %s", status, code)
	}
}

func TestHandler_UpdateHidesToken(t *testing.T) {
	h, store := newTestHandler(t)

	body := `{"display_name":" Bob ","theme":"dark","tracker_domain":"acme.atlassian.net","tracker_email":"bob@acme.com","tracker_token":"s3cret","recent_room":"ab12cd34"}`
	c, rec := profileContext(http.MethodPut, "bob", body)
	if err := h.Update(c); err != nil {
		t.Fatalf("update: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "s3cret") {
		t.Error("response must not contain the tracker token")
	}

	var resp dto.ProfileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.DisplayName != "Bob" || resp.Theme != ThemeDark || !resp.HasTrackerToken {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(resp.RecentRooms) != 1 || resp.RecentRooms[0] != "AB12CD34" {
		t.Errorf("expected normalized recent room, got %v", resp.RecentRooms)
	}

	stored, err := store.Get(context.Background(), "bob")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.TrackerToken != "s3cret" {
		t.Errorf("expected stored token, got %q", stored.TrackerToken)
	}

	c, rec = profileContext(http.MethodGet, "bob", "")
	if err := h.Get(c); err != nil {
		t.Fatalf("get: %v", err)
	}
	if strings.Contains(rec.Body.String(), "s3cret") {
		t.Error("get must not return the tracker token")
	}
}

func TestHandler_UpdatePartial(t *testing.T) {
	h, store := newTestHandler(t)
	ctx := context.Background()

	p, _ := store.GetOrCreate(ctx, "carol")
	p.SetDisplayName("Carol")
	p.TrackerToken = "keep-me"
	if err := store.Save(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}

	c, _ := profileContext(http.MethodPut, "carol", `{"theme":"dark"}`)
	if err := h.Update(c); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := store.Get(ctx, "carol")
	if got.DisplayName != "Carol" || got.TrackerToken != "keep-me" || got.Theme != ThemeDark {
		t.Errorf("unexpected stored profile %+v", got)
	}
}

func TestHandler_UpdateValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"bad theme", `{"theme":"neon"}`, "invalid_request"},
		{"bad room", `{"recent_room":"no-dashes"}`, "invalid_request"},
		{"bad json", `{"theme":`, "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t)
			c, _ := profileContext(http.MethodPut, "dave", tt.body)

			status, code := httpErrorCode(t, h.Update(c))
			if status != http.StatusBadRequest || code != tt.code {
				t.Errorf("unexpected error %d %s", status, code)
			}
		})
	}
}

func TestHandler_Delete(t *testing.T) {
	h, store := newTestHandler(t)
	if _, err := store.GetOrCreate(context.Background(), "erin"); err != nil {
		t.Fatalf("create: %v", err)
	}

	c, rec := profileContext(http.MethodDelete, "erin", "")
	if err := h.Delete(c); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	c, _ = profileContext(http.MethodDelete, "erin", "")
	status, _ := httpErrorCode(t, h.Delete(c))
	if status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", status)
	}
}
