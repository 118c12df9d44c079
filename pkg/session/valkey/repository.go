package sessionvalkey

import (
	"context"
	"fmt"
	"strings"

	"github.com/valkey-io/valkey-go"

	"github.com/oko-market/oko-client/internal/serviceerr"
	"github.com/oko-market/oko-client/pkg/session"
)

const objectTypeSession = "session"

type Repository struct {
	valkey valkey.Client
	key    string
}

var _ = session.Repository(&Repository{})

// NewRepository stores the session at <prefix>:session:<key>.
func NewRepository(valkeyClient valkey.Client, prefix, key string) *Repository {
	prefix = strings.TrimSuffix(prefix, ":")
	return &Repository{
		valkey: valkeyClient,
		key:    fmt.Sprintf("%s:%s:%s", prefix, objectTypeSession, key),
	}
}

func (r *Repository) Load(ctx context.Context) (session.Session, error) {
	data, err := r.valkey.Do(ctx, r.valkey.B().Get().Key(r.key).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return session.Session{}, serviceerr.ErrNotFound
		}

		return session.Session{}, fmt.Errorf("executing get command: %w", err)
	}

	s, err := session.Decode(data)
	if err != nil {
		return session.Session{}, fmt.Errorf("decoding session: %w", err)
	}

	return s, nil
}

func (r *Repository) Save(ctx context.Context, s session.Session) error {
	data, err := session.Encode(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	if err := r.valkey.Do(ctx, r.valkey.B().Set().Key(r.key).Value(valkey.BinaryString(data)).Build()).Error(); err != nil {
		return fmt.Errorf("executing set command: %w", err)
	}

	return nil
}

func (r *Repository) Clear(ctx context.Context) error {
	if err := r.valkey.Do(ctx, r.valkey.B().Del().Key(r.key).Build()).Error(); err != nil {
		return fmt.Errorf("executing del command: %w", err)
	}

	return nil
}

// Key is the valkey key holding the session.
func (r *Repository) Key() string {
	return r.key
}
