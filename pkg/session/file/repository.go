// Package sessionfile persists the session as a file in a directory, the way
// a browser keeps it in local storage: one key, one JSON blob.
package sessionfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/oko-market/oko-client/internal/serviceerr"
	"github.com/oko-market/oko-client/pkg/session"
)

const fileMode = 0o600

type Repository struct {
	fs   afero.Fs
	path string
}

var _ = session.Repository(&Repository{})

// NewRepository stores the session for key under dir on the given filesystem.
func NewRepository(fsys afero.Fs, dir, key string) (*Repository, error) {
	if err := fsys.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}

	return &Repository{
		fs:   fsys,
		path: filepath.Join(dir, key+".json"),
	}, nil
}

func (r *Repository) Load(_ context.Context) (session.Session, error) {
	data, err := afero.ReadFile(r.fs, r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return session.Session{}, serviceerr.ErrNotFound
		}

		return session.Session{}, fmt.Errorf("reading session file: %w", err)
	}

	s, err := session.Decode(data)
	if err != nil {
		return session.Session{}, fmt.Errorf("decoding session: %w", err)
	}

	return s, nil
}

func (r *Repository) Save(_ context.Context, s session.Session) error {
	data, err := session.Encode(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := afero.WriteFile(r.fs, tmp, data, fileMode); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := r.fs.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replacing session file: %w", err)
	}

	return nil
}

func (r *Repository) Clear(_ context.Context) error {
	err := r.fs.Remove(r.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}

	return nil
}

// Path is the file holding the session.
func (r *Repository) Path() string {
	return r.path
}
