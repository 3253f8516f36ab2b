package httpapi

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusCounter struct {
	statuses []int
}

func (s *statusCounter) RecordOperation(string, string, time.Duration) {}
func (s *statusCounter) RecordHTTPStatus(code int)                     { s.statuses = append(s.statuses, code) }

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"ok", http.StatusOK, "INFO"},
		{"client error", http.StatusNotFound, "WARN"},
		{"server error", http.StatusBadGateway, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			counter := &statusCounter{}

			h := NewLoggingMiddleware(logger, counter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/pantry", nil))

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, "http_request", entry["msg"])
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, "GET", entry["method"])
			assert.Equal(t, "/api/pantry", entry["path"])
			assert.Equal(t, float64(tt.status), entry["status"])
			assert.Contains(t, entry, "duration_ms")
			assert.Equal(t, []int{tt.status}, counter.statuses)
		})
	}
}

func TestLoggingMiddleware_ImplicitOK(t *testing.T) {
	var buf bytes.Buffer
	counter := &statusCounter{}
	h := NewLoggingMiddleware(slog.New(slog.NewJSONHandler(&buf, nil)), counter)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("hello"))
		}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []int{http.StatusOK}, counter.statuses)
}

func TestRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	h := NewRecoveryMiddleware(slog.New(slog.NewJSONHandler(&buf, nil)))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/pantry", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
	assert.Contains(t, buf.String(), "panic recovered")
}

func newLimitedHandler(t *testing.T, cfg RateLimiterConfig) (*RateLimiter, http.Handler) {
	t.Helper()
	rl := NewRateLimiter(cfg, slog.New(slog.DiscardHandler))
	t.Cleanup(rl.Stop)
	return rl, rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func requestFrom(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/pantry", nil)
	req.RemoteAddr = addr
	return req
}

func TestRateLimiter_AllowsBurst(t *testing.T) {
	_, h := newLimitedHandler(t, RateLimiterConfig{Rate: 2, Burst: 5, CleanupInterval: time.Minute})

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, requestFrom("10.0.0.1:1234"))
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i)
	}
}

func TestRateLimiter_Returns429(t *testing.T) {
	_, h := newLimitedHandler(t, RateLimiterConfig{Rate: 0.5, Burst: 2, CleanupInterval: time.Minute})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, requestFrom("10.0.0.2:1000"))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, requestFrom("10.0.0.2:1001"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"too many requests"}`, w.Body.String())
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	rl, h := newLimitedHandler(t, RateLimiterConfig{Rate: 0.1, Burst: 1, CleanupInterval: time.Minute})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, requestFrom("10.0.0.3:1"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, requestFrom("10.0.0.4:1"))
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 2, rl.LimiterCount())
}

func TestRateLimiter_CleanupDropsIdleClients(t *testing.T) {
	rl, h := newLimitedHandler(t, RateLimiterConfig{Rate: 1, Burst: 1, CleanupInterval: time.Minute})

	h.ServeHTTP(httptest.NewRecorder(), requestFrom("10.0.0.5:1"))
	require.Equal(t, 1, rl.LimiterCount())

	rl.cleanup(time.Now().Add(30 * time.Second))
	assert.Equal(t, 1, rl.LimiterCount())

	rl.cleanup(time.Now().Add(3 * time.Minute))
	assert.Zero(t, rl.LimiterCount())
}

func TestRateLimiter_StopTwice(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig(), slog.New(slog.DiscardHandler))
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 1, retryAfter(2))
	assert.Equal(t, 10, retryAfter(0.1))
	assert.Equal(t, 60, retryAfter(0))
}

func TestClientIP(t *testing.T) {
	assert.Equal(t, "192.0.2.1", clientIP(requestFrom("192.0.2.1:5555")))
	assert.Equal(t, "unix", clientIP(requestFrom("unix")))
}
