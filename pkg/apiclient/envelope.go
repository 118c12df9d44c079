package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oko-market/oko-client/internal/serviceerr"
)

// Envelope is the uniform response shape of every backend endpoint.
type Envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    Message         `json:"message"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// Message is the server supplied message. The backend sends either a single
// string or a list of validation messages; a list is joined with ", ".
type Message string

func (m *Message) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = ""
		return nil
	}

	if data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("decoding message list: %w", err)
		}
		*m = Message(strings.Join(list, ", "))
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding message: %w", err)
	}
	*m = Message(s)

	return nil
}

func (e *Envelope) HasData() bool {
	if e == nil {
		return false
	}
	data := bytes.TrimSpace(e.Data)
	return len(data) > 0 && !bytes.Equal(data, []byte("null"))
}

// Err reports a non-2xx status carried inside the envelope itself.
func (e *Envelope) Err() error {
	if e == nil {
		return nil
	}
	if e.StatusCode != 0 && !isSuccess(e.StatusCode) {
		return &APIError{StatusCode: e.StatusCode, Message: string(e.Message)}
	}

	return nil
}

// DecodeData decodes the data of a successful envelope into T. An envelope
// without data yields ErrNoData.
func DecodeData[T any](env *Envelope) (T, error) {
	var v T
	if err := env.Err(); err != nil {
		return v, err
	}
	if !env.HasData() {
		return v, ErrNoData
	}

	if err := json.Unmarshal(env.Data, &v); err != nil {
		return v, fmt.Errorf("decoding envelope data: %w", err)
	}

	return v, nil
}

var ErrNoData = serviceerr.ErrNoData

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
