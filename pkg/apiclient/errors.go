package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/oko-market/oko-client/internal/serviceerr"
)

const (
	messageServerError     = "Something went wrong. Please try again later."
	messageSessionExpired  = "Your session has expired. Please log in again."
	messageUnexpectedError = "An unexpected error occurred."
)

// ErrSessionTerminated marks an unrecoverable authentication failure. The
// session has been cleared and the navigator sent to a login route.
var ErrSessionTerminated = serviceerr.ErrSessionTerminated

// ErrTransport marks a failure to get any HTTP response at all.
var ErrTransport = errors.New("transport failure")

// APIError is a non-2xx response of the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

func newAPIError(status int, env *Envelope) *APIError {
	msg := ""
	if env != nil {
		msg = string(env.Message)
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	return &APIError{StatusCode: status, Message: msg}
}

func terminated(cause error) error {
	return fmt.Errorf("%w: %w", ErrSessionTerminated, cause)
}

type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindCredential
	KindSessionTerminated
	KindValidation
	KindServer
	KindTransport
	KindUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindCredential:
		return "credential"
	case KindSessionTerminated:
		return "session_terminated"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Classify maps an error returned by the client onto the error taxonomy.
// A bare 401 can only reach a caller from an exempt call, so it is a
// credential error.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, ErrSessionTerminated) {
		return KindSessionTerminated
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized:
			return KindCredential
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return KindServer
		case apiErr.StatusCode >= http.StatusBadRequest:
			return KindValidation
		}
	}

	if errors.Is(err, ErrTransport) || errors.Is(err, context.DeadlineExceeded) {
		return KindTransport
	}

	return KindUnknown
}

// UserMessage is the text to show for err.
func UserMessage(err error) string {
	switch Classify(err) {
	case KindNone:
		return ""
	case KindSessionTerminated:
		return messageSessionExpired
	case KindServer, KindTransport:
		return messageServerError
	case KindCredential, KindValidation:
		var apiErr *APIError
		errors.As(err, &apiErr)
		return apiErr.Message
	default:
		return messageUnexpectedError
	}
}
