// Package sessionbolt provides a BBolt-backed session repository.
package sessionbolt

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/oko-market/oko-client/internal/serviceerr"
	"github.com/oko-market/oko-client/pkg/session"
)

type Repository struct {
	db     *bbolt.DB
	bucket []byte
	key    []byte
}

var _ = session.Repository(&Repository{})

func NewRepository(db *bbolt.DB, bucket, key string) *Repository {
	return &Repository{
		db:     db,
		bucket: []byte(bucket),
		key:    []byte(key),
	}
}

// NewRepositoryFromFile opens a BBolt database at the given path.
func NewRepositoryFromFile(path, bucket, key string, options *bbolt.Options) (*Repository, error) {
	db, err := bbolt.Open(path, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}

	return NewRepository(db, bucket, key), nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Load(_ context.Context) (session.Session, error) {
	var data []byte
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(r.bucket)
		if b == nil {
			return serviceerr.ErrNotFound
		}
		v := b.Get(r.key)
		if v == nil {
			return serviceerr.ErrNotFound
		}
		// v is only valid inside the transaction.
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return session.Session{}, err
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

	return r.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(r.bucket)
		if err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}

		return b.Put(r.key, data)
	})
}

func (r *Repository) Clear(_ context.Context) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(r.bucket)
		if b == nil {
			return nil
		}

		return b.Delete(r.key)
	})
}
