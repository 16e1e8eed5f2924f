package wmts

import (
	"errors"
	"fmt"
)

var ErrUnknownLayer = errors.New("wmts: unknown layer")

// NetworkError is a transport failure: the server never answered.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("wmts: request %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// FetchError is a non-2xx answer.
type FetchError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *FetchError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("wmts: capabilities HTTP %d for %s: %s", e.StatusCode, e.URL, e.Body)
	}
	return fmt.Sprintf("wmts: capabilities HTTP %d for %s", e.StatusCode, e.URL)
}

// ParseError means the document is not well-formed XML.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("wmts: parse capabilities: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
