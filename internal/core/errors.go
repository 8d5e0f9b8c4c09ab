package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeChannelNotFound = "channel_not_found"
	ErrCodeBadRequest      = "bad_request"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeRateLimited     = "rate_limited"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrNetworkNotFound = errors.New("network not found")
	ErrAccountNotFound = errors.New("account not found")
	ErrBadRequest      = errors.New("bad request")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
