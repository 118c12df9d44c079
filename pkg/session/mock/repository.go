package sessionmock

import (
	"context"
	"sync"

	"github.com/oko-market/oko-client/internal/serviceerr"
	"github.com/oko-market/oko-client/pkg/session"
)

type RepositoryOption func(*Repository)

// Repository is an in-memory session.Repository safe for concurrent use.
type Repository struct {
	mu      sync.Mutex
	session *session.Session

	loads, saves, clears int

	loadErr, saveErr, clearErr error
}

func WithSession(s session.Session) RepositoryOption {
	return func(r *Repository) { r.session = &s }
}
func WithLoadError(err error) RepositoryOption {
	return func(r *Repository) { r.loadErr = err }
}
func WithSaveError(err error) RepositoryOption {
	return func(r *Repository) { r.saveErr = err }
}
func WithClearError(err error) RepositoryOption {
	return func(r *Repository) { r.clearErr = err }
}

var _ = session.Repository(&Repository{})

func NewInMemRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Repository) Load(_ context.Context) (session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.loads++
	if r.loadErr != nil {
		return session.Session{}, r.loadErr
	}
	if r.session == nil {
		return session.Session{}, serviceerr.ErrNotFound
	}

	return *r.session, nil
}

func (r *Repository) Save(_ context.Context, s session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	if err := s.Validate(); err != nil {
		return err
	}
	r.session = &s

	return nil
}

func (r *Repository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clears++
	if r.clearErr != nil {
		return r.clearErr
	}
	r.session = nil

	return nil
}

// Stored returns the stored session and whether the key is present at all.
func (r *Repository) Stored() (session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return session.Session{}, false
	}

	return *r.session, true
}

func (r *Repository) Loads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loads
}

func (r *Repository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func (r *Repository) Clears() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clears
}
