package health_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/sessionguard/core/handler"
	"github.com/dmitrymomot/sessionguard/core/health"
)

type ctx = *handler.RequestContext

func get(h http.Handler) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	return rec
}

func TestLiveness(t *testing.T) {
	t.Parallel()

	rec := get(handler.Default(health.Liveness[ctx]))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ALIVE", rec.Body.String())

	rec = get(handler.Default(health.NoContent[ctx]))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestReadiness(t *testing.T) {
	t.Parallel()

	okCheck := health.Check{Name: "ok", Fn: func(context.Context) error { return nil }}

	rec := get(handler.Default(health.Readiness[ctx](nil, okCheck)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "READY", rec.Body.String())

	var calls int
	failing := health.Check{Name: "store", Fn: func(context.Context) error {
		calls++
		return errors.New("connection refused")
	}}
	rec = get(handler.Default(health.Readiness[ctx](nil, failing, okCheck, failing)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, 2, calls, "every check runs")
}
