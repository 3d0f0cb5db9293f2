package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
)

const (
	maxBytesBody = 1048576
)

// The readJSON helper is used to decode the request body into the target
// destination. Additional checks will provide more security, while checks
// implemented on errors could return additional information.
func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {

	// Limit the size of the request body to 1MB.
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytesBody))

	// Read all the request body in memory as raw bytes. If an error occurs
	// check the cause of the error. Additionally, the body cannot be empty.
	jsonBytes, err := io.ReadAll(r.Body)
	if err != nil {
		switch {
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesBody)
		default:
			return err
		}
	}

	if len(jsonBytes) == 0 {
		return errors.New("body must not be empty")
	}

	// Try to unmarshal the bytes into the destination. If there is an error
	// during un-marshaling, try to return an informative error, otherwise
	// the destination will store the decoded JSON values.
	err = json.Unmarshal(jsonBytes, dst)
	if err == nil {
		return nil
	}

	var invalidUnmarshalError *json.InvalidUnmarshalError
	var unmarshalTypeError *json.UnmarshalTypeError
	var syntaxError *json.SyntaxError

	switch {
	case errors.As(err, &syntaxError):
		return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)

	// In some circumstances Decode() may also return an io.ErrUnexpectedEOF
	// error for syntax errors in the JSON. So we check for this using
	// errors.Is() and return a generic error message.
	case errors.Is(err, io.ErrUnexpectedEOF):
		return errors.New("body contains badly-formed JSON")

	case errors.As(err, &unmarshalTypeError):
		if unmarshalTypeError.Field != "" {
			return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
		}
		return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)

	// A json.InvalidUnmarshalError error will be returned if we pass a nil
	// pointer to json.Unmarshal(). We catch this and panic, rather than
	// returning an error, because it is a developer error that must not happen.
	case errors.As(err, &invalidUnmarshalError):
		panic(err)

	default:
		return err
	}
}

// Extract a named value from the URL params provided by the used router.
func readUrlParam(r *http.Request, param string) (string, error) {
	value := mux.Vars(r)[param]
	if value == "" {
		return "", fmt.Errorf("invalid %s parameter", param)
	}
	return value, nil
}

// Extract the value for a given key from the query string. If no key exists
// this will default to the provided value.
func readString(qs url.Values, key string, defaultValue string) string {
	s := qs.Get(key)
	if s == "" {
		return defaultValue
	}
	return s
}

// Extract the value for a given key from the query string. If no key exists,
// or the value is not a numeric value, the function will default to the
// provided value.
func readInt(qs url.Values, key string, defaultValue int) int {
	s := qs.Get(key)
	if s == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}

// Extract a boolean value from the query string. Any value other than
// "true" and "1" counts as false.
func readBool(qs url.Values, key string, defaultValue bool) bool {
	s := qs.Get(key)
	if s == "" {
		return defaultValue
	}
	return s == "true" || s == "1"
}
