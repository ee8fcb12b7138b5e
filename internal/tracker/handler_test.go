package tracker

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

	"github.com/karelhala/poker-planning-hackathon-2025/internal/protocol"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/shared"
)

type fakeSearcher struct {
	creds   Credentials
	jql     string
	tickets []protocol.Ticket
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, creds Credentials, jql string) ([]protocol.Ticket, error) {
	f.creds = creds
	f.jql = jql
	if f.err != nil {
		return nil, f.err
	}
	if !creds.Valid() {
		return nil, ErrMissingCredentials
	}
	return f.tickets, nil
}

func newTestHandler(s searcher) *Handler {
	return &Handler{client: s, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func searchRequest(body string, headers map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/tracker/search", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

var validHeaders = map[string]string{
	"x-jira-domain": "acme.atlassian.net",
	"x-jira-email":  "dev@example.com",
	"x-jira-token":  "secret",
}

func TestHandler_Search_Success(t *testing.T) {
	fake := &fakeSearcher{tickets: []protocol.Ticket{{ID: "1", Key: "POKER-1", Summary: "s"}}}
	h := newTestHandler(fake)

	c, rec := searchRequest(`{"jql":"project = POKER"}`, validHeaders)
	if err := h.Search(c); err != nil {
		t.Fatalf("search: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Issues) != 1 || resp.Issues[0].Key != "POKER-1" {
		t.Errorf("unexpected issues %+v", resp.Issues)
	}
	if fake.jql != "project = POKER" {
		t.Errorf("expected jql to be forwarded, got %q", fake.jql)
	}
	if fake.creds.Domain != "acme.atlassian.net" || fake.creds.Token != "secret" {
		t.Errorf("unexpected credentials %+v", fake.creds)
	}
}

func TestHandler_Search_EmptyBody(t *testing.T) {
	fake := &fakeSearcher{}
	h := newTestHandler(fake)

	c, rec := searchRequest("", validHeaders)
	if err := h.Search(c); err != nil {
		t.Fatalf("search: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"issues":[]`) && !strings.Contains(rec.Body.String(), `"issues":null`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_Search_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		headers  map[string]string
		err      error
		wantCode string
	}{
		{
			name:     "missing headers",
			body:     `{}`,
			headers:  map[string]string{"x-jira-domain": "acme.atlassian.net"},
			wantCode: "missing_credentials",
		},
		{
			name:     "invalid body",
			body:     `{"jql":`,
			headers:  validHeaders,
			wantCode: "invalid_request",
		},
		{
			name:     "domain refused",
			body:     `{}`,
			headers:  validHeaders,
			err:      ErrDomainNotAllowed,
			wantCode: "invalid_domain",
		},
		{
			name:     "upstream failure",
			body:     `{}`,
			headers:  validHeaders,
			err:      errors.New("jira returned status 401"),
			wantCode: "search_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&fakeSearcher{err: tt.err})
			c, _ := searchRequest(tt.body, tt.headers)

			err := h.Search(c)
			var he *echo.HTTPError
			if !errors.As(err, &he) {
				t.Fatalf("expected echo.HTTPError, got %v", err)
			}
			if he.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", he.Code)
			}
			apiErr, ok := he.Message.(*shared.APIError)
			if !ok {
				t.Fatalf("expected *shared.APIError, got %T", he.Message)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, apiErr.Code)
			}
		})
	}
}
