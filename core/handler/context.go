package handler

import (
	"context"
	"net/http"
	"time"
)

// Context defines the contract for request contexts.
// RequestContext is the default implementation.
type Context interface {
	context.Context
	Request() *http.Request
	ResponseWriter() http.ResponseWriter
	Param(key string) string
	SetValue(key, val any)
}

// RequestContext delegates every context.Context method to the request's context.
type RequestContext struct {
	w http.ResponseWriter
	r *http.Request
}

// NewContext creates the default context for a request.
func NewContext(w http.ResponseWriter, r *http.Request) *RequestContext {
	return &RequestContext{w: w, r: r}
}

func (c *RequestContext) Deadline() (deadline time.Time, ok bool) {
	return c.r.Context().Deadline()
}

func (c *RequestContext) Done() <-chan struct{} {
	return c.r.Context().Done()
}

func (c *RequestContext) Err() error {
	return c.r.Context().Err()
}

func (c *RequestContext) Value(key any) any {
	return c.r.Context().Value(key)
}

// Request returns the request, including values stored with SetValue.
func (c *RequestContext) Request() *http.Request {
	return c.r
}

func (c *RequestContext) ResponseWriter() http.ResponseWriter {
	return c.w
}

// Param returns the net/http path wildcard value for key.
func (c *RequestContext) Param(key string) string {
	return c.r.PathValue(key)
}

// SetValue stores val in the request context under key.
func (c *RequestContext) SetValue(key, val any) {
	c.r = c.r.WithContext(context.WithValue(c.r.Context(), key, val))
}
