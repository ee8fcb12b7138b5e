package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

func TestRateLimiterStore_GetLimiter(t *testing.T) {
	store := &rateLimiterStore{
		limiters: make(map[string]*rate.Limiter),
		config: RateLimiterConfig{
			RequestsPerSecond: 10,
			Burst:             20,
		},
	}

	limiter1 := store.getLimiter("key1")
	if limiter1 == nil {
		t.Error("expected limiter to be created")
	}

	limiter2 := store.getLimiter("key1")
	if limiter1 != limiter2 {
		t.Error("expected same limiter to be returned")
	}

	limiter3 := store.getLimiter("key2")
	if limiter1 == limiter3 {
		t.Error("expected different limiter for different key")
	}
}

func TestRateLimiter_AllowsRequests(t *testing.T) {
	e := echo.New()

	cfg := RateLimiterConfig{
		RequestsPerSecond: 100,
		Burst:             100,
		CleanupInterval:   time.Hour,
	}
	middleware := RateLimiter(cfg)

	handler := middleware(func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler(c); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRateLimiter_BlocksExcessiveRequests(t *testing.T) {
	e := echo.New()

	cfg := RateLimiterConfig{
		RequestsPerSecond: 1,
		Burst:             1,
		CleanupInterval:   time.Hour,
	}
	middleware := RateLimiter(cfg)

	handler := middleware(func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	})

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler(c)
		if i == 0 {
			if err != nil {
				t.Errorf("first request should succeed, got error: %v", err)
			}
		} else {
			if err == nil {
				continue
			}
			he, ok := err.(*echo.HTTPError)
			if !ok {
				t.Errorf("expected echo.HTTPError, got %T", err)
				continue
			}
			if he.Code != 429 {
				t.Errorf("request %d status = %d, want 429", i+1, he.Code)
			}
		}
	}
}

func TestRateLimiter_KeysByParticipant(t *testing.T) {
	e := echo.New()

	cfg := RateLimiterConfig{
		RequestsPerSecond: 1,
		Burst:             1,
		CleanupInterval:   time.Hour,
	}
	middleware := RateLimiter(cfg)

	handler := middleware(func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	})

	for _, id := range []string{"alice", "bob"} {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(ParticipantHeader, id)
		rec := httptest.NewRecorder()

		if err := handler(e.NewContext(req, rec)); err != nil {
			t.Errorf("first request for %s should succeed: %v", id, err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(ParticipantHeader, "alice")
	err := handler(e.NewContext(req, httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusTooManyRequests {
		t.Errorf("second request for alice: got %v, want 429", err)
	}
}
