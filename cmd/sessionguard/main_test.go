package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionguard/core/guard"
	"github.com/dmitrymomot/sessionguard/core/handler"
	"github.com/dmitrymomot/sessionguard/core/logger"
	"github.com/dmitrymomot/sessionguard/middleware"
)

func withFlags(t *testing.T, store, locker, up string) {
	t.Helper()
	prevStore, prevLocker, prevUp := storeKind, lockerKind, upstream
	storeKind, lockerKind, upstream = store, locker, up
	t.Cleanup(func() { storeKind, lockerKind, upstream = prevStore, prevLocker, prevUp })
}

func TestOpenStore(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		withFlags(t, "memory", "local", "")
		b := &backend{}
		defer b.Close()

		require.NoError(t, openStore(context.Background(), b, logger.Nop()))
		assert.NotNil(t, b.store)
		assert.Empty(t, b.checks)
	})

	t.Run("unknown", func(t *testing.T) {
		withFlags(t, "sqlite", "local", "")
		err := openStore(context.Background(), &backend{}, logger.Nop())
		assert.ErrorIs(t, err, errUnknownStore)
	})

	t.Run("unknown locker", func(t *testing.T) {
		withFlags(t, "memory", "etcd", "")
		err := openLocker(context.Background(), &backend{}, guard.DefaultConfig())
		assert.ErrorIs(t, err, errUnknownLocker)
	})
}

func TestOpenGuard_MemoryRejected(t *testing.T) {
	withFlags(t, "memory", "local", "")
	_, _, err := openGuard(context.Background(), logger.Nop())
	assert.ErrorIs(t, err, errPersistentNeeded)
}

func TestAppHandler(t *testing.T) {
	t.Run("echo", func(t *testing.T) {
		withFlags(t, "memory", "local", "")
		app, err := appHandler()
		require.NoError(t, err)

		h := handler.Default(app, middleware.ClientIP[*handler.RequestContext]())
		req := httptest.NewRequest(http.MethodGet, "/hello?x=1", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "GET /hello?x=1")
		assert.Contains(t, rec.Body.String(), "client: 203.0.113.7")
	})

	t.Run("proxy", func(t *testing.T) {
		backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte("upstream " + r.URL.Path))
		}))
		defer backendSrv.Close()

		withFlags(t, "memory", "local", backendSrv.URL)
		app, err := appHandler()
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		handler.Default(app).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tea", nil))

		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Equal(t, "upstream /tea", rec.Body.String())
	})

	t.Run("invalid upstream", func(t *testing.T) {
		withFlags(t, "memory", "local", "not a url")
		_, err := appHandler()
		assert.Error(t, err)
	})
}
