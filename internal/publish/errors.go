package publish

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed or skipped publish attempt.
type ErrorKind string

// Error kinds carried on PublishAttemptResult.
const (
	ErrorPlatformDisabled   ErrorKind = "platform_disabled"
	ErrorRateLimited        ErrorKind = "rate_limited"
	ErrorRemoteFailure      ErrorKind = "remote_failure"
	ErrorPersistenceFailure ErrorKind = "persistence_failure"
	ErrorUnsupportedMethod  ErrorKind = "unsupported_method"
	ErrorUnknownPlatform    ErrorKind = "unknown_platform"
)

// ErrUnknownPlatform matches any UnknownPlatformError.
var ErrUnknownPlatform = errors.New("unknown platform")

// UnknownPlatformError is returned by registry lookups and mutators.
type UnknownPlatformError struct {
	Name string
}

func (e *UnknownPlatformError) Error() string {
	return fmt.Sprintf("unknown platform %q", e.Name)
}

func (e *UnknownPlatformError) Is(target error) bool {
	return target == ErrUnknownPlatform
}

// RemoteError is a transport failure or non-success response from a remote
// publish endpoint. Message holds the upstream text unchanged.
type RemoteError struct {
	Platform   string
	StatusCode int // 0 for transport errors
	Message    string
	Cause      error
}

func (e *RemoteError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: remote returned %d: %s", e.Platform, e.StatusCode, e.Message)
	case e.Cause != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Platform, e.Message, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Platform, e.Cause)
	default:
		return fmt.Sprintf("%s: %s", e.Platform, e.Message)
	}
}

func (e *RemoteError) Unwrap() error {
	return e.Cause
}
