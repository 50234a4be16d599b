package github

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	gh "github.com/google/go-github/v67/github"
)

// APIError is a non-2xx response. Its text is the server message followed
// by the status code, which is what the panel shows verbatim.
type APIError struct {
	StatusCode       int
	Message          string
	DocumentationURL string
}

func (e *APIError) Error() string {
	return e.Message + " (" + strconv.Itoa(e.StatusCode) + ")"
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// apiError maps go-github's response errors onto APIError. Transport
// failures pass through unchanged.
func apiError(err error) error {
	var (
		resp    *gh.ErrorResponse
		limited *gh.RateLimitError
		abuse   *gh.AbuseRateLimitError
	)
	switch {
	case errors.As(err, &resp) && resp.Response != nil:
		return newAPIError(resp.Response.StatusCode, resp.Message, resp.DocumentationURL)
	case errors.As(err, &limited) && limited.Response != nil:
		return newAPIError(limited.Response.StatusCode, limited.Message, "")
	case errors.As(err, &abuse) && abuse.Response != nil:
		return newAPIError(abuse.Response.StatusCode, abuse.Message, "")
	}
	return err
}

func newAPIError(status int, msg, docs string) *APIError {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = "GitHub API error"
	}
	return &APIError{StatusCode: status, Message: msg, DocumentationURL: docs}
}
