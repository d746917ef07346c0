package clientip

import (
	"net"
	"net/http"
	"strings"
)

// Headers lists the well-known proxy and CDN headers in the order they are consulted.
var Headers = []string{
	"X-Client-IP",
	"X-Forwarded-For",
	"CF-Connecting-IP",
	"Fastly-Client-IP",
	"True-Client-IP",
	"X-Real-IP",
	"X-Cluster-Client-IP",
	"X-Forwarded",
	"Forwarded-For",
}

// Option configures identity extraction.
type Option func(*options)

type options struct {
	customHeader string
	sourceIP     func(*http.Request) string
}

// WithCustomHeader makes the named header take precedence over every other source.
func WithCustomHeader(name string) Option {
	return func(o *options) {
		o.customHeader = strings.TrimSpace(name)
	}
}

// WithSourceIP registers a platform-specific accessor consulted last,
// e.g. the source IP carried in a serverless request context.
func WithSourceIP(fn func(*http.Request) string) Option {
	return func(o *options) {
		o.sourceIP = fn
	}
}

// GetIP returns the client identity of r: the custom header, then the
// well-known proxy headers, then the transport peer address, then the
// platform source IP. The first non-empty value wins and is returned as is.
// Returns "" when nothing is available.
func GetIP(r *http.Request, opts ...Option) string {
	return New(opts...)(r)
}

// New returns an extractor bound to the given options.
func New(opts ...Option) func(*http.Request) string {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	return func(r *http.Request) string {
		if r == nil {
			return ""
		}

		if o.customHeader != "" {
			if v := r.Header.Get(o.customHeader); v != "" {
				return v
			}
		}

		for _, h := range Headers {
			if v := r.Header.Get(h); v != "" {
				return v
			}
		}

		if addr := peerAddr(r.RemoteAddr); addr != "" {
			return addr
		}

		if o.sourceIP != nil {
			return o.sourceIP(r)
		}

		return ""
	}
}

// peerAddr strips the port from a transport address when one is present.
func peerAddr(remote string) string {
	if remote == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(remote); err == nil {
		return host
	}
	return remote
}
