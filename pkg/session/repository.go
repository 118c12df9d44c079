package session

import "context"

// Repository persists the single session of this client under one key.
// Load returns serviceerr.ErrNotFound when no session is stored. Clear removes
// the key entirely and is a no-op when it is already absent.
type Repository interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}
