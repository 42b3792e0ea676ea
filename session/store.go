package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
)

// ErrInvalidAuth is returned by [Store.SetAuth] when the user or token is
// missing. The store never holds one without the other.
var ErrInvalidAuth = errors.New("session requires both a user and a token")

const (
	// ViewLogin is the default login view.
	ViewLogin = "/auth/login"
	// ViewDashboard is the default post-login view.
	ViewDashboard = "/dashboard"
	// ViewRegister is the default registration view.
	ViewRegister = "/auth/register"
)

// Navigator switches the visible view. A CLI host may record the target; a UI
// host routes to it.
type Navigator interface {
	CurrentView() string
	Navigate(view string)
}

// Listener receives a copy of the new state after every change.
type Listener func(State)

// Option configures a [Store].
type Option func(*Store)

// WithNavigator sets the navigator used by [Store.Logout] and
// [Store.Invalidate].
func WithNavigator(n Navigator) Option {
	return func(s *Store) {
		s.nav = n
	}
}

// WithLoginView overrides [ViewLogin].
func WithLoginView(view string) Option {
	return func(s *Store) {
		if view != "" {
			s.loginView = view
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// Store is the single owner of the session state. Mutations are serialized and
// written to [Persistence] before they become visible; a failed write leaves
// the in-memory state untouched.
//
// Listeners run synchronously after each change, in mutation order. They may
// read the store but must not mutate it from the same goroutine.
type Store struct {
	writeMu sync.Mutex

	mu    sync.RWMutex
	state State

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int

	persist   *Persistence
	nav       Navigator
	loginView string
	log       *slog.Logger
}

// NewStore creates an empty store over p. Call [Store.Rehydrate] before first
// use to load a persisted session.
func NewStore(p *Persistence, opts ...Option) *Store {
	if p == nil {
		p = NewPersistence(nil, "", "")
	}
	s := &Store{
		listeners: make(map[int]Listener),
		persist:   p,
		loginView: ViewLogin,
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Persistence returns the persistence layer the store writes to.
func (s *Store) Persistence() *Persistence {
	return s.persist
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// IsAuthenticated reports whether a user and token are held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsAuthenticated
}

// IsLoading reports the transient loading flag.
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsLoading
}

// User returns a copy of the current user, or nil.
func (s *Store) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.User.Clone()
}

// Token returns the in-memory bearer token.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// Subscribe registers fn for change notifications and returns a function that
// removes it.
func (s *Store) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

// Rehydrate replaces the in-memory state with the persisted snapshot. Stored
// data that breaks the user/token pairing is reset to the empty session.
func (s *Store) Rehydrate(ctx context.Context) (LoadReport, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snap, report, err := s.persist.Load(ctx)
	if err != nil {
		return report, err
	}
	if report.Discarded {
		s.log.Warn("discarded inconsistent session snapshot", "key", s.persist.SnapshotKey())
	}
	if report.LegacyTokenRemoved {
		s.log.Info("removed legacy token key")
	}

	s.commit(func(st *State) {
		st.User = snap.User.Clone()
		st.Token = snap.Token
		st.IsAuthenticated = snap.IsAuthenticated
		st.IsLoading = false
	})
	return report, nil
}

// SetAuth stores user and token as one transition and clears the loading flag.
func (s *Store) SetAuth(ctx context.Context, user User, token string) error {
	if user.ID == "" || token == "" {
		return ErrInvalidAuth
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	u := user.Clone()
	if err := s.persist.Save(ctx, Snapshot{User: u, Token: token, IsAuthenticated: true}); err != nil {
		return err
	}
	s.commit(func(st *State) {
		st.User = u
		st.Token = token
		st.IsAuthenticated = true
		st.IsLoading = false
	})
	return nil
}

// Logout clears the session and navigates to the login view.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.clear(ctx); err != nil {
		return err
	}
	if s.nav != nil {
		s.nav.Navigate(s.loginView)
	}
	return nil
}

// Invalidate clears the session after the server rejected the credential and
// navigates to the login view unless it is already shown. It reports whether
// a session was actually held.
func (s *Store) Invalidate(ctx context.Context) (bool, error) {
	had := s.IsAuthenticated()
	if err := s.clear(ctx); err != nil {
		return had, err
	}
	if s.nav != nil && s.nav.CurrentView() != s.loginView {
		s.nav.Navigate(s.loginView)
	}
	return had, nil
}

func (s *Store) clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.persist.Clear(ctx); err != nil {
		s.log.Error("persist cleared session", "error", err)
		return err
	}
	s.commit(func(st *State) {
		st.User = nil
		st.Token = ""
		st.IsAuthenticated = false
	})
	return nil
}

// SetLoading sets the transient loading flag. It is never persisted.
func (s *Store) SetLoading(loading bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.commit(func(st *State) {
		st.IsLoading = loading
	})
}

// BeginLoading sets the loading flag and returns a release function that
// clears it. Release is idempotent.
func (s *Store) BeginLoading() (release func()) {
	s.SetLoading(true)
	var once sync.Once
	return func() {
		once.Do(func() { s.SetLoading(false) })
	}
}

// UpdateUser merges patch into the current user and persists the result. It
// reports false without touching storage when no user is held.
func (s *Store) UpdateUser(ctx context.Context, patch UserPatch) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	current := s.state
	s.mu.RUnlock()

	if current.User == nil {
		return false, nil
	}
	if patch.Empty() {
		return true, nil
	}

	merged := current.User.Clone()
	patch.applyTo(merged)
	if err := s.persist.Save(ctx, Snapshot{User: merged, Token: current.Token, IsAuthenticated: current.IsAuthenticated}); err != nil {
		return false, err
	}
	s.commit(func(st *State) {
		st.User = merged
	})
	return true, nil
}

// commit applies fn under the state lock and notifies listeners when the
// state changed. Callers hold writeMu.
func (s *Store) commit(fn func(*State)) {
	s.mu.Lock()
	before := s.state.clone()
	fn(&s.state)
	after := s.state.clone()
	s.mu.Unlock()

	if statesEqual(before, after) {
		return
	}

	s.listenersMu.Lock()
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.listenersMu.Unlock()

	for _, l := range ls {
		l(after.clone())
	}
}

func statesEqual(a, b State) bool {
	if a.Token != b.Token || a.IsAuthenticated != b.IsAuthenticated || a.IsLoading != b.IsLoading {
		return false
	}
	return usersEqual(a.User, b.User)
}

func usersEqual(a, b *User) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.ID != b.ID || a.Email != b.Email || a.FirstName != b.FirstName || a.LastName != b.LastName || a.Role != b.Role {
		return false
	}
	if a.Grade == nil || b.Grade == nil {
		return a.Grade == nil && b.Grade == nil
	}
	return *a.Grade == *b.Grade
}
