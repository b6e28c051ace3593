package shared

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrAuthCancelled    = fmt.Errorf("authorization cancelled by user")
	ErrAuthInProgress   = fmt.Errorf("authentication already in progress")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// One sentinel per [Kind] so callers can use errors.Is against an [AppError].
var (
	ErrNetwork              = fmt.Errorf("network error")
	ErrDecode               = fmt.Errorf("failed to decode response")
	ErrBadRequest           = fmt.Errorf("bad request")
	ErrUnauthorized         = fmt.Errorf("unauthorized")
	ErrForbidden            = fmt.Errorf("forbidden")
	ErrNotFound             = fmt.Errorf("not found")
	ErrRateLimited          = fmt.Errorf("rate limit exceeded")
	ErrServiceUnavailable   = fmt.Errorf("service unavailable")
	ErrServerError          = fmt.Errorf("server error")
	ErrInvalidURL           = fmt.Errorf("invalid URL")
	ErrInvalidResponse      = fmt.Errorf("invalid response")
	ErrKeychainAccessDenied = fmt.Errorf("keychain access denied")
	ErrKeychainNotFound     = fmt.Errorf("keychain item not found")
	ErrKeychainUnexpected   = fmt.Errorf("unexpected keychain error")
	ErrInvalidSecretData    = fmt.Errorf("invalid secret data")
)

// Kind is the closed set of failure categories produced by the transport, OAuth, and keychain layers.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindDecode
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindRateLimited
	KindServiceUnavailable
	KindServerError
	KindInvalidURL
	KindInvalidResponse
	KindKeychainAccessDenied
	KindKeychainNotFound
	KindKeychainUnexpected
	KindInvalidSecretData
)

var kindSentinels = map[Kind]error{
	KindNetwork:              ErrNetwork,
	KindDecode:               ErrDecode,
	KindBadRequest:           ErrBadRequest,
	KindUnauthorized:         ErrUnauthorized,
	KindForbidden:            ErrForbidden,
	KindNotFound:             ErrNotFound,
	KindRateLimited:          ErrRateLimited,
	KindServiceUnavailable:   ErrServiceUnavailable,
	KindServerError:          ErrServerError,
	KindInvalidURL:           ErrInvalidURL,
	KindInvalidResponse:      ErrInvalidResponse,
	KindKeychainAccessDenied: ErrKeychainAccessDenied,
	KindKeychainNotFound:     ErrKeychainNotFound,
	KindKeychainUnexpected:   ErrKeychainUnexpected,
	KindInvalidSecretData:    ErrInvalidSecretData,
}

func (k Kind) String() string {
	if err, ok := kindSentinels[k]; ok {
		return err.Error()
	}
	return "unknown error"
}

// AppError is the typed error shared by every layer of the core.
//
// StatusCode is set for HTTP-derived kinds, RetryAfter only for [KindRateLimited] when the server sent the header.
type AppError struct {
	Kind       Kind
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *AppError) Error() string {
	switch e.Kind {
	case KindBadRequest:
		if e.Message != "" {
			return fmt.Sprintf("bad request: %s", e.Message)
		}
		return "bad request: invalid parameters"
	case KindUnauthorized:
		if e.Err != nil {
			return fmt.Sprintf("unauthorized: %v", e.Err)
		}
		return "authentication required or token expired"
	case KindRateLimited:
		if e.RetryAfter > 0 {
			return fmt.Sprintf("rate limit exceeded, retry after %d seconds", int(e.RetryAfter.Seconds()))
		}
		return "rate limit exceeded, try again later"
	case KindServerError:
		return fmt.Sprintf("server error (status code: %d)", e.StatusCode)
	case KindInvalidResponse:
		if e.StatusCode != 0 {
			return fmt.Sprintf("invalid response from server (status code: %d)", e.StatusCode)
		}
	case KindKeychainUnexpected:
		if e.Err != nil {
			return fmt.Sprintf("unexpected keychain error: %v", e.Err)
		}
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Kind.String()
}

func (e *AppError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for this error's [Kind].
func (e *AppError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// IsRetryable is true for rate limiting, unavailable/failing servers, and network failures.
func (e *AppError) IsRetryable() bool {
	switch e.Kind {
	case KindRateLimited, KindServiceUnavailable, KindServerError, KindNetwork:
		return true
	default:
		return false
	}
}

// NewError builds an [AppError] of the given kind wrapping err.
func NewError(kind Kind, err error) *AppError {
	return &AppError{Kind: kind, Err: err}
}

// Unauthorized returns an unauthorized-class error wrapping cause, which may be nil.
func Unauthorized(cause error) *AppError {
	return &AppError{Kind: KindUnauthorized, StatusCode: 401, Err: cause}
}

// KindOf returns the [Kind] of the first [AppError] in err's chain.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries an [AppError] of kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// IsRetryable reports whether err is an [AppError] worth retrying.
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.IsRetryable()
	}
	return false
}
