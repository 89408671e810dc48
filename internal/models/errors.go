package models

import (
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies a NetworkError
type ErrorKind string

const (
	KindInvalidURL    ErrorKind = "invalid_url"
	KindNoData        ErrorKind = "no_data"
	KindDecodingError ErrorKind = "decoding_error"
	KindServerError   ErrorKind = "server_error"
	KindNetworkError  ErrorKind = "network_error"
	KindTimeout       ErrorKind = "timeout"
	KindCacheError    ErrorKind = "cache_error"
)

// NetworkError is the error type returned by the fetch pipeline
type NetworkError struct {
	Kind       ErrorKind
	StatusCode int   // set for KindServerError
	Err        error // cause for decoding, network and cache errors
}

func NewInvalidURLError() *NetworkError {
	return &NetworkError{Kind: KindInvalidURL}
}

func NewServerError(statusCode int) *NetworkError {
	return &NetworkError{Kind: KindServerError, StatusCode: statusCode}
}

func NewNetworkError(err error) *NetworkError {
	return &NetworkError{Kind: KindNetworkError, Err: err}
}

func (e *NetworkError) Error() string {
	switch e.Kind {
	case KindInvalidURL:
		return "invalid URL"
	case KindNoData:
		return "no data received"
	case KindDecodingError:
		return fmt.Sprintf("decoding error: %v", e.Err)
	case KindServerError:
		return fmt.Sprintf("server error with code: %d", e.StatusCode)
	case KindNetworkError:
		return fmt.Sprintf("network error: %v", e.Err)
	case KindTimeout:
		return "request timeout"
	case KindCacheError:
		return fmt.Sprintf("cache error: %v", e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether the error is a timeout, either by kind or
// because the wrapped transport error timed out
func (e *NetworkError) IsTimeout() bool {
	if e.Kind == KindTimeout {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// KindOf returns the kind of the first NetworkError in err's chain, or "" if none
func KindOf(err error) ErrorKind {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Kind
	}
	return ""
}
