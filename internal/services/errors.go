package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/framelabel/internal/shared"
)

// FetchError reports a failed request: transport failure, non-2xx status, or an undecodable body.
//
// It matches [shared.ErrFetch] with [errors.Is].
type FetchError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	default:
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == shared.ErrFetch }

// NotFound reports whether the server answered 404.
func (e *FetchError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.StatusCode
	}
	return 0
}
