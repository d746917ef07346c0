package recorder

import (
	"mime"
	"net/http"
	"path"
	"strings"
	"time"
)

// RequestMeta is a snapshot of the request fields kept in a traffic record.
// It is taken on the request goroutine so the detached continuation never
// touches the live *http.Request.
type RequestMeta struct {
	ClientID    string
	Method      string
	URL         string
	FullURL     string
	RequestSize int64
	UserAgent   string
	RequestLine string
	// Headers is a copy; the live request's map is never retained.
	Headers http.Header
}

// ResponseMeta is a snapshot of the finalized response.
type ResponseMeta struct {
	StatusCode  int
	Size        int64
	ContentType string
	CompletedAt time.Time
}

// NewRequestMeta captures the metadata of r for clientID.
func NewRequestMeta(r *http.Request, clientID string) RequestMeta {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	return RequestMeta{
		ClientID:    clientID,
		Method:      r.Method,
		URL:         r.URL.RequestURI(),
		FullURL:     scheme + "://" + r.Host + r.URL.RequestURI(),
		RequestSize: requestSize(r),
		UserAgent:   r.UserAgent(),
		RequestLine: r.Method + " " + r.URL.RequestURI(),
		Headers:     r.Header.Clone(),
	}
}

// requestSize approximates the bytes read for r: request line, headers and body.
func requestSize(r *http.Request) int64 {
	n := int64(len(r.Method) + len(r.URL.RequestURI()) + len(r.Proto) + 4)
	for k, vs := range r.Header {
		for _, v := range vs {
			n += int64(len(k) + len(v) + 4)
		}
	}
	if r.ContentLength > 0 {
		n += r.ContentLength
	}
	return n
}

// contentType returns the response content type, falling back to the MIME type
// registered for the extension of the request path.
func contentType(resp ResponseMeta, rawURL string) string {
	if resp.ContentType != "" {
		if mt, _, err := mime.ParseMediaType(resp.ContentType); err == nil {
			return mt
		}
		return resp.ContentType
	}

	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if ext := path.Ext(p); ext != "" {
		if mt, _, err := mime.ParseMediaType(mime.TypeByExtension(ext)); err == nil {
			return mt
		}
	}
	return ""
}
