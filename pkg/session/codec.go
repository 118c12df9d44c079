package session

import (
	"encoding/json"
	"fmt"
)

const persistVersion = 0

type persistedTokens struct {
	AccessToken  *string `json:"accessToken"`
	RefreshToken *string `json:"refreshToken"`
}

type persistedState struct {
	Tokens persistedTokens `json:"tokens"`
	User   *User           `json:"user"`
}

type persisted struct {
	State   persistedState `json:"state"`
	Version int            `json:"version"`
}

// Encode serialises the session into the blob stored under the session key:
// {"state":{"tokens":{"accessToken":..,"refreshToken":..},"user":..},"version":0}
func Encode(s Session) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validating session: %w", err)
	}

	p := persisted{Version: persistVersion}
	p.State.User = s.User
	if s.Tokens.AccessToken != "" {
		p.State.Tokens.AccessToken = &s.Tokens.AccessToken
		p.State.Tokens.RefreshToken = &s.Tokens.RefreshToken
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshaling json: %w", err)
	}

	return data, nil
}

// Decode parses a stored blob. Null tokens decode to empty strings.
func Decode(data []byte) (Session, error) {
	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return Session{}, fmt.Errorf("unmarshaling json: %w", err)
	}

	s := Session{User: p.State.User}
	if p.State.Tokens.AccessToken != nil {
		s.Tokens.AccessToken = *p.State.Tokens.AccessToken
	}
	if p.State.Tokens.RefreshToken != nil {
		s.Tokens.RefreshToken = *p.State.Tokens.RefreshToken
	}

	if err := s.Validate(); err != nil {
		return Session{}, fmt.Errorf("validating stored session: %w", err)
	}

	return s, nil
}
