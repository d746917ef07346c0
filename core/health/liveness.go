package health

import (
	"net/http"

	"github.com/dmitrymomot/sessionguard/core/handler"
)

// Liveness indicates if the service process is running.
// Always returns "ALIVE" with 200 OK. No dependency checks.
//
// Example:
//
//	mux.Handle("GET /health/live", handler.Default(health.Liveness[*handler.RequestContext]))
func Liveness[C handler.Context](C) handler.Response {
	return text(http.StatusOK, "ALIVE")
}

// NoContent returns HTTP 204 without body. Ideal for high-frequency checks.
func NoContent[C handler.Context](C) handler.Response {
	return func(w http.ResponseWriter, _ *http.Request) error {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
}

func text(status int, body string) handler.Response {
	return func(w http.ResponseWriter, _ *http.Request) error {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		_, err := w.Write([]byte(body))
		return err
	}
}
