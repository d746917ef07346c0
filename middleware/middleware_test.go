package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionguard/core/guard"
	"github.com/dmitrymomot/sessionguard/core/handler"
	"github.com/dmitrymomot/sessionguard/core/traffic"
	"github.com/dmitrymomot/sessionguard/middleware"
	"github.com/dmitrymomot/sessionguard/pkg/clientip"
)

type ctx = *handler.RequestContext

func ok(body string) handler.HandlerFunc[ctx] {
	return func(ctx) handler.Response {
		return func(w http.ResponseWriter, _ *http.Request) error {
			_, err := w.Write([]byte(body))
			return err
		}
	}
}

func do(h http.Handler, remote string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = remote
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	t.Run("stores identity in context", func(t *testing.T) {
		t.Parallel()
		var got string
		h := handler.Default(func(c ctx) handler.Response {
			ip, found := middleware.GetClientIP(c)
			assert.True(t, found)
			got = ip
			return nil
		}, middleware.ClientIP[ctx]())

		do(h, "192.168.1.100:54321", nil)
		assert.Equal(t, "192.168.1.100", got)
	})

	t.Run("custom header option", func(t *testing.T) {
		t.Parallel()
		var got string
		h := handler.Default(func(c ctx) handler.Response {
			got, _ = middleware.GetClientIP(c)
			return nil
		}, middleware.ClientIP[ctx](clientip.WithCustomHeader("X-Visitor")))

		do(h, "10.0.0.1:1", map[string]string{"X-Visitor": "v-1", "X-Real-IP": "10.9.9.9"})
		assert.Equal(t, "v-1", got)
	})

	t.Run("echo in response header", func(t *testing.T) {
		t.Parallel()
		h := handler.Default(ok("x"), middleware.ClientIPWithConfig[ctx](middleware.ClientIPConfig{ResponseHeader: "X-Client-IP"}))

		rec := do(h, "10.0.0.5:12345", nil)
		assert.Equal(t, "10.0.0.5", rec.Header().Get("X-Client-IP"))
	})

	t.Run("validation failure is forbidden", func(t *testing.T) {
		t.Parallel()
		h := handler.Default(ok("x"), middleware.ClientIPWithConfig[ctx](middleware.ClientIPConfig{
			ValidateFunc: func(_ handler.Context, ip string) error {
				if ip == "10.0.0.66" {
					return errors.New("denied")
				}
				return nil
			},
		}))

		assert.Equal(t, http.StatusForbidden, do(h, "10.0.0.66:1", nil).Code)
		assert.Equal(t, http.StatusOK, do(h, "10.0.0.7:1", nil).Code)
	})

	t.Run("skip", func(t *testing.T) {
		t.Parallel()
		var found bool
		h := handler.Default(func(c ctx) handler.Response {
			_, found = middleware.GetClientIP(c)
			return nil
		}, middleware.ClientIPWithConfig[ctx](middleware.ClientIPConfig{
			Skip: func(handler.Context) bool { return true },
		}))

		do(h, "10.0.0.5:1", nil)
		assert.False(t, found)
	})
}

func TestGuard(t *testing.T) {
	t.Parallel()

	store := traffic.NewMemoryStore()
	cfg := guard.DefaultConfig()
	cfg.Dispatch.MaxConcurrent = 1
	g := guard.New(cfg, store)
	require.True(t, g.Enabled())

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Run(runCtx)() }()
	require.Eventually(t, func() bool { return g.Dispatcher().Stats().IsRunning }, time.Second, time.Millisecond)

	h := handler.Default(ok("hello"), middleware.Guard[ctx](g))

	require.NoError(t, g.Blacklist(context.Background(), "203.0.113.66"))
	blocked := do(h, "203.0.113.66:1", nil)
	assert.Equal(t, http.StatusForbidden, blocked.Code)
	assert.Empty(t, blocked.Body.String())

	admitted := do(h, "203.0.113.7:1", nil)
	assert.Equal(t, http.StatusOK, admitted.Code)
	assert.Equal(t, "hello", admitted.Body.String())

	cancel()
	require.NoError(t, <-done)

	recs, err := store.RecentRecords(context.Background(), "203.0.113.7", time.Time{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(5), recs[0].ResponseSize)
	assert.True(t, recs[0].Session.IsAssigned())
	assert.Equal(t, 1, store.Len(), "blocked request is not recorded")
}

func TestGuard_DisabledPassesThrough(t *testing.T) {
	t.Parallel()

	cfg := guard.DefaultConfig()
	cfg.SessionGap = 0
	g := guard.New(cfg, traffic.NewMemoryStore())

	h := handler.Default(ok("hello"), middleware.Guard[ctx](g))
	rec := do(h, "203.0.113.7:1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	h = handler.Default(ok("hello"), middleware.Guard[ctx](nil))
	assert.Equal(t, http.StatusOK, do(h, "203.0.113.7:1", nil).Code)
}

func TestLogging(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	h := handler.Default(ok("hello"),
		middleware.ClientIP[ctx](),
		middleware.Logging[ctx](log))
	do(h, "203.0.113.7:1", nil)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request completed", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/test", entry["path"])
	assert.Equal(t, float64(200), entry["status_code"])
	assert.Equal(t, float64(5), entry["bytes"])
	assert.Equal(t, "203.0.113.7", entry["client_id"])
}

func TestLogging_ServerError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	h := handler.Default(func(ctx) handler.Response {
		return func(w http.ResponseWriter, _ *http.Request) error {
			w.WriteHeader(http.StatusBadGateway)
			return nil
		}
	}, middleware.Logging[ctx](log))
	do(h, "203.0.113.7:1", nil)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
}
