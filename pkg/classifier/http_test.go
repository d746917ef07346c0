package classifier_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionguard/pkg/classifier"
)

func configFor(t *testing.T, srv *httptest.Server) classifier.HTTPConfig {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return classifier.HTTPConfig{Host: host, Port: p, Timeout: time.Second}
}

func TestHTTPConfig_Endpoint(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "http://localhost:5000/api", classifier.HTTPConfig{Host: "localhost", Port: 5000}.Endpoint())
	assert.Equal(t, "http://10.0.0.1:8080/classify", classifier.HTTPConfig{Host: "10.0.0.1", Port: 8080, Path: "/classify"}.Endpoint())
}

func TestNewHTTP_InvalidEndpoint(t *testing.T) {
	t.Parallel()

	_, err := classifier.NewHTTP(classifier.HTTPConfig{Port: 5000})
	assert.ErrorIs(t, err, classifier.ErrInvalidEndpoint)

	_, err = classifier.NewHTTP(classifier.HTTPConfig{Host: "localhost"})
	assert.ErrorIs(t, err, classifier.ErrInvalidEndpoint)
}

func TestHTTP_Notify(t *testing.T) {
	t.Parallel()

	type payload struct {
		SessionID string `json:"sessionID"`
	}
	got := make(chan payload, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var p payload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		got <- p
		_, _ = w.Write([]byte("session classified"))
	}))
	t.Cleanup(srv.Close)

	n, err := classifier.NewHTTP(configFor(t, srv))
	require.NoError(t, err)

	require.NoError(t, n.Notify(context.Background(), classifier.Notification{SessionID: "s1", ClientID: "c"}))
	assert.Equal(t, payload{SessionID: "s1"}, <-got)
}

func TestHTTP_Notify_EmptySession(t *testing.T) {
	t.Parallel()

	n, err := classifier.NewHTTP(classifier.HTTPConfig{Host: "localhost", Port: 1})
	require.NoError(t, err)

	assert.ErrorIs(t, n.Notify(context.Background(), classifier.Notification{}), classifier.ErrEmptySessionID)
}

func TestHTTP_Notify_ClientErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	cfg := configFor(t, srv)
	cfg.Retries = 3
	n, err := classifier.NewHTTP(cfg)
	require.NoError(t, err)

	assert.NoError(t, n.Notify(context.Background(), classifier.Notification{SessionID: "s1"}))
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTP_Notify_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	cfg := configFor(t, srv)
	cfg.Retries = 2
	cfg.RetryInterval = time.Millisecond
	n, err := classifier.NewHTTP(cfg)
	require.NoError(t, err)

	assert.NoError(t, n.Notify(context.Background(), classifier.Notification{SessionID: "s1"}))
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTP_Notify_GivesUp(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	cfg := configFor(t, srv)
	cfg.Retries = 1
	cfg.RetryInterval = time.Millisecond
	n, err := classifier.NewHTTP(cfg)
	require.NoError(t, err)

	err = n.Notify(context.Background(), classifier.Notification{SessionID: "s1"})
	assert.ErrorIs(t, err, classifier.ErrNotificationFailed)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTP_Notify_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	cfg := configFor(t, srv)
	cfg.Timeout = 50 * time.Millisecond
	n, err := classifier.NewHTTP(cfg)
	require.NoError(t, err)

	start := time.Now()
	err = n.Notify(context.Background(), classifier.Notification{SessionID: "s1"})
	assert.ErrorIs(t, err, classifier.ErrNotificationFailed)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHTTP_Notify_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	cfg := configFor(t, srv)
	srv.Close()

	n, err := classifier.NewHTTP(cfg)
	require.NoError(t, err)

	assert.ErrorIs(t, n.Notify(context.Background(), classifier.Notification{SessionID: "s1"}), classifier.ErrNotificationFailed)
}
