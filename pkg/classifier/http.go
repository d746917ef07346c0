package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrymomot/sessionguard/core/logger"
)

const (
	DefaultPath    = "/api"
	DefaultTimeout = 5 * time.Second

	// Response body bytes kept for the log line.
	bodyPrefixLimit = 512
)

// HTTPConfig describes the classifier HTTP endpoint.
type HTTPConfig struct {
	Host          string        `env:"CLASSIFIER_HOST" envDefault:"localhost"`
	Port          int           `env:"CLASSIFIER_PORT" envDefault:"4000"`
	Path          string        `env:"CLASSIFIER_PATH" envDefault:"/api"`
	Timeout       time.Duration `env:"CLASSIFIER_TIMEOUT" envDefault:"5s"`
	Retries       int           `env:"CLASSIFIER_RETRIES" envDefault:"0"`
	RetryInterval time.Duration `env:"CLASSIFIER_RETRY_INTERVAL" envDefault:"1s"`
}

// Endpoint returns the URL notifications are posted to.
func (c HTTPConfig) Endpoint() string {
	p := c.Path
	if p == "" {
		p = DefaultPath
	}
	return "http://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port)) + p
}

// HTTP posts {"sessionID": "..."} to the classifier endpoint.
// The response is only logged.
type HTTP struct {
	endpoint      string
	client        *http.Client
	retries       int
	retryInterval time.Duration
	logger        *slog.Logger
}

// HTTPOption configures an HTTP notifier.
type HTTPOption func(*HTTP)

// WithHTTPClient replaces the HTTP client. Its timeout is kept as is.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) {
		if c != nil {
			h.client = c
		}
	}
}

// WithLogger sets the logger used for responses and failures.
func WithLogger(log *slog.Logger) HTTPOption {
	return func(h *HTTP) {
		if log != nil {
			h.logger = log
		}
	}
}

// NewHTTP creates an HTTP notifier for cfg.
func NewHTTP(cfg HTTPConfig, opts ...HTTPOption) (*HTTP, error) {
	if cfg.Host == "" || cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: host %q port %d", ErrInvalidEndpoint, cfg.Host, cfg.Port)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	h := &HTTP{
		endpoint:      cfg.Endpoint(),
		client:        &http.Client{Timeout: timeout},
		retries:       max(cfg.Retries, 0),
		retryInterval: cfg.RetryInterval,
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Notify posts n, retrying transport failures and 5xx responses up to the
// configured number of times.
func (h *HTTP) Notify(ctx context.Context, n Notification) error {
	if n.SessionID == "" {
		return ErrEmptySessionID
	}

	body, err := json.Marshal(struct {
		SessionID string `json:"sessionID"`
	}{n.SessionID})
	if err != nil {
		return errors.Join(ErrNotificationFailed, err)
	}

	var lastErr error
	for attempt := 0; attempt <= h.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.Join(ErrNotificationFailed, ctx.Err(), lastErr)
			case <-time.After(h.retryInterval):
			}
		}

		retry, err := h.post(ctx, n, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			break
		}

		h.logger.WarnContext(ctx, "classifier notification attempt failed",
			logger.Component("classifier"),
			logger.SessionID(n.SessionID),
			logger.RetryCount(attempt),
			logger.Error(err))
	}

	return errors.Join(ErrNotificationFailed, lastErr)
}

// post sends one request and reports whether a failure is worth retrying.
func (h *HTTP) post(ctx context.Context, n Notification, body []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	prefix, _ := io.ReadAll(io.LimitReader(resp.Body, bodyPrefixLimit))
	_, _ = io.Copy(io.Discard, resp.Body)

	h.logger.InfoContext(ctx, "classifier responded",
		logger.Component("classifier"),
		logger.SessionID(n.SessionID),
		logger.StatusCode(resp.StatusCode),
		logger.Elapsed(start),
		slog.String("body", string(bytes.TrimSpace(prefix))))

	if resp.StatusCode >= http.StatusInternalServerError {
		return true, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return false, nil
}
