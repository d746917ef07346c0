package handler_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/sessionguard/core/handler"
)

type ctxKey struct{}

func TestChain_Order(t *testing.T) {
	t.Parallel()

	var order []string
	mw := func(name string) handler.Middleware[*handler.RequestContext] {
		return func(next handler.HandlerFunc[*handler.RequestContext]) handler.HandlerFunc[*handler.RequestContext] {
			return func(ctx *handler.RequestContext) handler.Response {
				order = append(order, name)
				return next(ctx)
			}
		}
	}

	h := handler.Default(func(ctx *handler.RequestContext) handler.Response {
		order = append(order, "endpoint")
		return func(w http.ResponseWriter, _ *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}
	}, mw("first"), mw("second"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"first", "second", "endpoint"}, order)
}

func TestRequestContext_SetValue(t *testing.T) {
	t.Parallel()

	h := handler.Default(func(ctx *handler.RequestContext) handler.Response {
		ctx.SetValue(ctxKey{}, "stored")
		assert.Equal(t, "stored", ctx.Value(ctxKey{}))
		return func(w http.ResponseWriter, r *http.Request) error {
			_, err := w.Write([]byte(r.Context().Value(ctxKey{}).(string)))
			return err
		}
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "stored", rec.Body.String())
}

func TestRequestContext_Param(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.Handle("GET /clients/{id}", handler.Default(func(ctx *handler.RequestContext) handler.Response {
		return func(w http.ResponseWriter, _ *http.Request) error {
			_, err := w.Write([]byte(ctx.Param("id")))
			return err
		}
	}))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/clients/203.0.113.9", nil))
	assert.Equal(t, "203.0.113.9", rec.Body.String())
}

func TestHTTP_RenderError(t *testing.T) {
	t.Parallel()

	failing := func(*handler.RequestContext) handler.Response {
		return func(http.ResponseWriter, *http.Request) error {
			return errors.New("render failed")
		}
	}

	t.Run("default handling", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		handler.Default(failing).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("custom error handler", func(t *testing.T) {
		t.Parallel()
		var got error
		h := handler.HTTP(handler.NewContext, failing, func(ctx *handler.RequestContext, err error) {
			got = err
			ctx.ResponseWriter().WriteHeader(http.StatusTeapot)
		})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.EqualError(t, got, "render failed")
	})

	t.Run("nil response", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		handler.Default(func(*handler.RequestContext) handler.Response { return nil }).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
