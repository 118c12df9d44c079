package apiclient

import "sync"

// authState owns the process wide auth flags. At most one refresh is in
// flight, and the logout path runs at most once per established session.
type authState struct {
	mu         sync.Mutex
	refreshing bool
	loggedOut  bool
}

func (s *authState) tryBeginRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refreshing {
		return false
	}
	s.refreshing = true

	return true
}

func (s *authState) endRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshing = false
}

func (s *authState) isRefreshing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.refreshing
}

// tryBeginLogout reports whether the caller owns the logout. The state stays
// logged out until rearm is called for a new session.
func (s *authState) tryBeginLogout() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loggedOut {
		return false
	}
	s.loggedOut = true

	return true
}

func (s *authState) rearm() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loggedOut = false
}
