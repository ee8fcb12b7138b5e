package shared

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAPIError_WithDetails(t *testing.T) {
	httpErr := NewAPIError("invalid_request", "validation failed").
		WithDetails([]string{"theme"}).
		ToHTTP(http.StatusBadRequest)

	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, httpErr.Code)
	}
	apiErr, ok := httpErr.Message.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", httpErr.Message)
	}
	details, ok := apiErr.Details.([]string)
	if !ok || len(details) != 1 || details[0] != "theme" {
		t.Errorf("unexpected details %v", apiErr.Details)
	}
}

func TestHTTPErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		err    *echo.HTTPError
		status int
		code   string
	}{
		{"bad request", BadRequest("missing_credentials", "tracker credentials required"), http.StatusBadRequest, "missing_credentials"},
		{"not found", NotFound("profile_not_found", "profile not found"), http.StatusNotFound, "profile_not_found"},
		{"rate limited", TooManyRequests("rate_limited", "slow down"), http.StatusTooManyRequests, "rate_limited"},
		{"internal", InternalError("save_failed", "could not save"), http.StatusInternalServerError, "save_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, tt.err.Code)
			}
			apiErr, ok := tt.err.Message.(*APIError)
			if !ok {
				t.Fatalf("expected *APIError, got %T", tt.err.Message)
			}
			if apiErr.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, apiErr.Code)
			}
			if apiErr.Details != nil {
				t.Errorf("expected no details, got %v", apiErr.Details)
			}
		})
	}
}
