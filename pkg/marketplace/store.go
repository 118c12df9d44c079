// Package marketplace holds the client side state of the marketplace
// resources. Every store talks to the backend through the authenticated
// client and only ever splices in what the server returned.
package marketplace

import (
	"context"
	"net/http"
	"slices"
	"sync"

	slogctx "github.com/veqryn/slog-context"

	"github.com/oko-market/oko-client/pkg/apiclient"
)

// API is the part of the HTTP client the stores need.
type API interface {
	Do(ctx context.Context, method, path string, body any, opts ...apiclient.RequestOption) (*apiclient.Envelope, error)
}

// Identifiable is implemented by every resource a Store holds.
type Identifiable interface {
	Identity() string
}

// Store is the list state of one backend resource.
type Store[T Identifiable] struct {
	api      API
	resource string

	mu       sync.RWMutex
	items    []T
	inflight int
	err      error

	subMu   sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

func NewStore[T Identifiable](api API, resource string) *Store[T] {
	return &Store[T]{
		api:      api,
		resource: resource,
		subs:     make(map[int]chan struct{}),
	}
}

// Items returns a snapshot of the list.
func (s *Store[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.items)
}

// Find returns the item with the given id.
func (s *Store[T]) Find(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.index(id); i >= 0 {
		return s.items[i], true
	}

	var zero T
	return zero, false
}

func (s *Store[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.inflight > 0
}

// Err returns the error of the last failed operation. It is reset when the
// next operation starts.
func (s *Store[T]) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.err
}

// Subscribe returns a channel that receives a value whenever the state
// changes, and a function that cancels the subscription.
func (s *Store[T]) Subscribe() (<-chan struct{}, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

// Fetch replaces the list with the server's.
func (s *Store[T]) Fetch(ctx context.Context, opts ...apiclient.RequestOption) ([]T, error) {
	items, err := call[[]T](ctx, s, http.MethodGet, nil, opts...)
	s.finish(ctx, err, func([]T) []T { return items })
	if err != nil {
		return nil, err
	}

	return slices.Clone(items), nil
}

// Get loads one item and splices it into the list.
func (s *Store[T]) Get(ctx context.Context, id string) (T, error) {
	item, err := call[T](ctx, s, http.MethodGet, nil, apiclient.WithQuery("id", id))
	s.finish(ctx, err, func(items []T) []T { return upsert(items, item, false) })

	return item, err
}

// Create posts in and prepends the created item.
func (s *Store[T]) Create(ctx context.Context, in any) (T, error) {
	item, err := call[T](ctx, s, http.MethodPost, in)
	s.finish(ctx, err, func(items []T) []T { return upsert(items, item, true) })

	return item, err
}

// Update replaces the item with the server's updated version.
func (s *Store[T]) Update(ctx context.Context, id string, in any) (T, error) {
	item, err := call[T](ctx, s, http.MethodPut, in, apiclient.WithQuery("id", id))
	s.finish(ctx, err, func(items []T) []T { return upsert(items, item, false) })

	return item, err
}

// Act applies a state transition such as accept or resolve.
func (s *Store[T]) Act(ctx context.Context, id, verb string, in any) (T, error) {
	item, err := call[T](ctx, s, http.MethodPatch, in, apiclient.WithAction(verb), apiclient.WithQuery("id", id))
	s.finish(ctx, err, func(items []T) []T { return upsert(items, item, false) })

	return item, err
}

// Remove deletes the item and drops it from the list.
func (s *Store[T]) Remove(ctx context.Context, id string) error {
	s.begin()
	_, err := s.api.Do(ctx, http.MethodDelete, s.resource, nil, apiclient.WithQuery("id", id))
	s.finish(ctx, err, func(items []T) []T {
		return slices.DeleteFunc(items, func(it T) bool { return it.Identity() == id })
	})

	return err
}

// call issues one request against the store's resource and decodes its data.
func call[R any, T Identifiable](ctx context.Context, s *Store[T], method string, body any, opts ...apiclient.RequestOption) (R, error) {
	s.begin()

	var zero R
	env, err := s.api.Do(ctx, method, s.resource, body, opts...)
	if err != nil {
		return zero, err
	}

	return apiclient.DecodeData[R](env)
}

func (s *Store[T]) begin() {
	s.mu.Lock()
	s.inflight++
	s.err = nil
	s.mu.Unlock()

	s.notify()
}

// finish ends an operation started by begin. mutate runs only on success.
func (s *Store[T]) finish(ctx context.Context, err error, mutate func([]T) []T) {
	s.mu.Lock()
	s.inflight--
	if err != nil {
		s.err = err
	} else {
		s.items = mutate(s.items)
	}
	s.mu.Unlock()

	if err != nil {
		slogctx.Warn(ctx, "Store operation failed", "resource", s.resource, "kind", apiclient.Classify(err).String(), "error", err)
	}
	s.notify()
}

func (s *Store[T]) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// index must be called with mu held.
func (s *Store[T]) index(id string) int {
	return slices.IndexFunc(s.items, func(it T) bool { return it.Identity() == id })
}

func upsert[T Identifiable](items []T, item T, prepend bool) []T {
	if i := slices.IndexFunc(items, func(it T) bool { return it.Identity() == item.Identity() }); i >= 0 {
		items[i] = item
		return items
	}
	if prepend {
		return slices.Insert(items, 0, item)
	}

	return append(items, item)
}
