package tracing

import (
	"context"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// The tracing package provides request tracing via a RequestTrace struct
// shared via contexts. Other parts of the application can safely retrieve
// an anonymous trace from a context even if none was set before.

// Define a private type to avoid collisions in the context values...
type privateKey string

// ...and declare a const of that type.
const requestTraceKey privateKey = "requestTrace"

// Will contain several data about the request lifecycle.
type RequestTrace struct {
	ID         string
	Start      time.Time
	HttpStatus int
	Message    interface{}
	Err        error
}

// Enrich the HTTP request with a newly initialized trace.
func NewTraceToRequest(r *http.Request) *http.Request {
	trace := RequestTrace{
		ID:    genRequestID(25),
		Start: time.Now().UTC(),
	}
	return TraceToRequestCtx(r, &trace)
}

// Put a trace into an HTTP request.
func TraceToRequestCtx(r *http.Request, tr *RequestTrace) *http.Request {
	childCtx := context.WithValue(r.Context(), requestTraceKey, tr)
	return r.WithContext(childCtx)
}

// Get the trace of an HTTP request. If the request context doesn't have
// any trace return a default trace with no ID.
func TraceFromRequestCtx(r *http.Request) *RequestTrace {
	return TraceFromCtx(r.Context())
}

// Retrieve a trace from a context object. If the context doesn't have any
// trace return a default trace with no ID.
func TraceFromCtx(ctx context.Context) *RequestTrace {
	if trace, ok := ctx.Value(requestTraceKey).(*RequestTrace); ok {
		return trace
	}
	return &RequestTrace{
		ID: "<no request id>",
	}
}

// Generate a random string of the requested length.
func genRequestID(length int) string {
	chars := []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	var b strings.Builder
	for i := 0; i < length; i++ {
		b.WriteRune(chars[r.Intn(len(chars))])
	}
	return b.String()
}
