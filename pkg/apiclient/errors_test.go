package apiclient_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oko-market/oko-client/pkg/apiclient"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apiclient.ErrorKind
		msg  string
	}{
		{name: "Nil", err: nil, want: apiclient.KindNone, msg: ""},
		{
			name: "Credential",
			err:  &apiclient.APIError{StatusCode: http.StatusUnauthorized, Message: "Invalid credentials"},
			want: apiclient.KindCredential,
			msg:  "Invalid credentials",
		},
		{
			name: "Session terminated",
			err:  fmt.Errorf("%w: %w", apiclient.ErrSessionTerminated, &apiclient.APIError{StatusCode: http.StatusUnauthorized}),
			want: apiclient.KindSessionTerminated,
			msg:  "Your session has expired. Please log in again.",
		},
		{
			name: "Validation",
			err:  &apiclient.APIError{StatusCode: http.StatusUnprocessableEntity, Message: "price must be positive"},
			want: apiclient.KindValidation,
			msg:  "price must be positive",
		},
		{
			name: "Server",
			err:  &apiclient.APIError{StatusCode: http.StatusInternalServerError, Message: "stack trace"},
			want: apiclient.KindServer,
			msg:  "Something went wrong. Please try again later.",
		},
		{
			name: "Transport",
			err:  fmt.Errorf("%w: dial tcp: refused", apiclient.ErrTransport),
			want: apiclient.KindTransport,
			msg:  "Something went wrong. Please try again later.",
		},
		{
			name: "Deadline",
			err:  fmt.Errorf("waiting: %w", context.DeadlineExceeded),
			want: apiclient.KindTransport,
			msg:  "Something went wrong. Please try again later.",
		},
		{
			name: "Unknown",
			err:  errors.New("boom"),
			want: apiclient.KindUnknown,
			msg:  "An unexpected error occurred.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apiclient.Classify(tt.err))
			assert.Equal(t, tt.msg, apiclient.UserMessage(tt.err))
		})
	}
}

func TestErrorKind_String(t *testing.T) {
	assert.Equal(t, "session_terminated", apiclient.KindSessionTerminated.String())
	assert.Equal(t, "unknown", apiclient.ErrorKind(99).String())
}
