package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCheckOrigin_AllowsRegistrableDomainMatch(t *testing.T) {
	handler := CheckOrigin([]string{"https://savitara.in"})(okHandler())

	cases := []struct {
		origin string
		want   int
	}{
		{"https://savitara.in", http.StatusOK},
		{"https://app.savitara.in", http.StatusOK},
		{"https://www.savitara.in:8443", http.StatusOK},
		{"https://evil.example.com", http.StatusForbidden},
		{"", http.StatusOK}, // same-origin and non-browser requests carry no Origin
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/google", nil)
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, "origin %q", tc.origin)
	}
}

func TestCheckOrigin_BlockedOriginNamesKind(t *testing.T) {
	handler := CheckOrigin([]string{"https://savitara.in"})(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/google", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	env := decodeEnvelope(t, rec)
	details := env.Details.(map[string]any)
	assert.Equal(t, "unauthorized_origin", details["kind"])
}

func TestCheckOrigin_EmptyAllowlistDisablesCheck(t *testing.T) {
	handler := CheckOrigin(nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Origin", "https://anything.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_EnforcesBurst(t *testing.T) {
	handler := RateLimit(rate.Limit(1), 2)(okHandler())

	statuses := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "198.51.100.7:4431"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	assert.Equal(t, http.StatusOK, statuses[0])
	assert.Equal(t, http.StatusOK, statuses[1])
	assert.Equal(t, http.StatusTooManyRequests, statuses[2])
}

func TestRateLimit_IsPerClientIP(t *testing.T) {
	handler := RateLimit(rate.Limit(1), 1)(okHandler())

	first := httptest.NewRequest(http.MethodPost, "/", nil)
	first.RemoteAddr = "198.51.100.7:4431"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	other := httptest.NewRequest(http.MethodPost, "/", nil)
	other.RemoteAddr = "203.0.113.9:8811"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecover_TurnsPanicInto500(t *testing.T) {
	handler := Recover(testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
