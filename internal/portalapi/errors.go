package portalapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthorized means the access token was rejected and could not be refreshed.
// The session has been cleared when this is returned.
var ErrUnauthorized = errors.New("session expired, sign in again")

// APIError carries the server's message for a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
	Path       string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Path    string `json:"path"`
}

// newAPIError prefers the body's message, then its error field, then the raw
// body, then the status text.
func newAPIError(code int, path string, body []byte) *APIError {
	e := &APIError{StatusCode: code, Path: path}
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		if eb.Path != "" {
			e.Path = eb.Path
		}
		switch {
		case strings.TrimSpace(eb.Message) != "":
			e.Message = eb.Message
		case strings.TrimSpace(eb.Error) != "":
			e.Message = eb.Error
		}
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(string(body))
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("http %d %s", code, http.StatusText(code))
	}
	return e
}
