package main

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/b0b7h3d0g/PhotoVoter/pkg/tracing"
)

type env map[string]interface{}

func (app *application) sendJSON(w http.ResponseWriter, r *http.Request, status int, data env, headers http.Header) {

	trace := tracing.TraceFromRequestCtx(r)
	trace.HttpStatus = status
	trace.Err = nil

	err := writeJSON(w, status, data, headers)
	if err != nil {
		app.logger.Errorw("sending json", "id", trace.ID, "err", err)
		trace.HttpStatus = http.StatusInternalServerError
		trace.Err = err
	}
}

// The sendJSONError() method is a generic helper for sending JSON-formatted
// error messages to the client with a given status code. Note that we're
// using an interface{} type for the message, rather than just a string type,
// as this gives more flexibility over the values that we can include in the
// response.
func (app *application) sendJSONError(w http.ResponseWriter, r *http.Request, resp errResponse) {

	trace := tracing.TraceFromRequestCtx(r)
	trace.HttpStatus = resp.status
	trace.Message = resp.message
	trace.Err = resp.err

	err := writeJSON(w, resp.status, env{
		"status_code": resp.status,
		"error":       resp.message,
	}, nil)
	if err != nil {
		app.logger.Errorw("sending json", "id", trace.ID, "err", err)
		trace.HttpStatus = http.StatusInternalServerError
		trace.Err = err
	}
}

type errResponse struct {
	message interface{}
	status  int
	err     error
}

// Define a writeJSON() helper for sending responses. This takes the
// destination http.ResponseWriter, the HTTP status code to send, the data to
// encode to JSON, and a header map containing any additional HTTP headers we
// want to include in the response.
func writeJSON(w http.ResponseWriter, status int, data env, headers http.Header) error {
	// Encode the data to JSON, returning the error if there was one.
	// Avoid Indent in case of performance issues.
	js, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	// Append a newline to make it easier to view in terminal applications.
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func (app *application) streamBytes(w http.ResponseWriter, r *http.Request, reader io.Reader, headers http.Header) {

	trace := tracing.TraceFromRequestCtx(r)
	trace.HttpStatus = http.StatusOK
	trace.Err = nil

	logger := app.logger.With("id", trace.ID)

	if rc, ok := reader.(io.ReadCloser); ok {
		defer func() {
			// If a network issue happens we need to signal to the application
			// internals that the streaming must be exited. If the reader has
			// been completely drained this operation is a no-op.
			err := rc.Close()
			if err != nil {
				logger.Errorw("error closing file reader", "err", err)
			}
		}()
	}

	for key, value := range headers {
		w.Header()[key] = value
	}

	_, err := io.Copy(w, reader)
	if err != nil {
		var netErr *net.OpError
		switch {
		case errors.As(err, &netErr):
			// This is a network/client issue. We cannot do anything here so
			// simply log the error.
			logger.Errorw("network/client issue streaming file", "err", err)
		default:
			// The error originated internally. The status code on the
			// response is already set and cannot be modified, but we can
			// report this internally.
			logger.Errorw("internal error streaming file", "err", err)
		}

		trace.HttpStatus = http.StatusInternalServerError
		trace.Err = err
	}
}

// Serve a file from the content root, delegating range and conditional
// request handling to the standard library.
func (app *application) serveFile(w http.ResponseWriter, r *http.Request, path string) {
	trace := tracing.TraceFromRequestCtx(r)
	trace.HttpStatus = http.StatusOK
	trace.Err = nil

	http.ServeFile(w, r, path)
}
