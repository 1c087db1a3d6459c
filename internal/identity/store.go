package identity

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"citizenship/internal/fields"
	"citizenship/internal/nation"
	"citizenship/internal/platform/metrics"
	"citizenship/pkg/domain"
	dErrors "citizenship/pkg/domain-errors"
)

// Store is the in-memory user <-> nation mapping backed by the field store.
//
// Mutations apply to memory at once and are persisted either by the
// background writer (Run) or, while a RunInTx scope is open, in one batch
// when that scope exits. Mutations never wait on storage: the writer picks up
// a set of dirty users, so a stalled backend only delays persistence. Persisted values are always read from memory at
// write time, so a late write never resurrects stale state.
type Store struct {
	fields  fields.Store
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	pairs   *BiMap[domain.UserID, nation.Key]
	loaded  bool
	touched map[domain.UserID]struct{}
	dirty   map[domain.UserID]struct{}

	txSem     chan struct{}
	persistMu sync.Mutex
	wake      chan struct{}
	flushes   chan chan struct{}
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

func New(store fields.Store, opts ...Option) *Store {
	s := &Store{
		fields:  store,
		logger:  slog.Default(),
		pairs:   NewBiMap[domain.UserID, nation.Key](),
		dirty:   make(map[domain.UserID]struct{}),
		txSem:   make(chan struct{}, 1),
		wake:    make(chan struct{}, 1),
		flushes: make(chan chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads every persisted claim. It may run once. When two users hold the
// same nation in storage the first (by user id) wins; the rest are logged and
// left out of memory.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return ErrAlreadyInitialized
	}

	raw, err := s.fields.All(ctx, fields.KindUser, fields.NameNation)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeExternal, "load identities")
	}

	users := make([]string, 0, len(raw))
	for u := range raw {
		users = append(users, u)
	}
	sort.Strings(users)

	for _, u := range users {
		key, err := nation.Normalize(raw[u])
		if err != nil {
			s.logger.WarnContext(ctx, "skipping unreadable stored nation", "user_id", u, "value", raw[u])
			continue
		}
		if owner, taken := s.pairs.Key(key); taken {
			s.logger.WarnContext(ctx, "duplicate nation in storage",
				"nation", key, "kept_user_id", owner, "dropped_user_id", u)
			continue
		}
		s.pairs.Put(domain.UserID(u), key)
	}
	s.loaded = true
	s.logger.InfoContext(ctx, "identities loaded", "count", s.pairs.Len())
	return nil
}

// Get returns the nation claimed by user.
func (s *Store) Get(user domain.UserID) (nation.Key, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pairs.Get(user)
}

// Owner returns the user holding key.
func (s *Store) Owner(key nation.Key) (domain.UserID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pairs.Key(key)
}

// Len is the number of claims.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pairs.Len()
}

// Pairs returns a copy of the whole mapping.
func (s *Store) Pairs() map[domain.UserID]nation.Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.UserID]nation.Key, s.pairs.Len())
	s.pairs.Range(func(u domain.UserID, k nation.Key) bool {
		out[u] = k
		return true
	})
	return out
}

// Set binds user to key, evicting the nation's previous owner and the user's
// previous nation.
func (s *Store) Set(user domain.UserID, key nation.Key) {
	s.Bind(user, key, true)
}

// SetDefault binds user to key only when user holds nothing yet. It reports
// whether the binding was made.
func (s *Store) SetDefault(user domain.UserID, key nation.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, has := s.pairs.Get(user); has {
		return false
	}
	evicted, ok := s.pairs.Put(user, key)
	s.record(user)
	if ok {
		s.record(evicted)
	}
	return true
}

// Binding describes the mapping around a Bind call. Owner is whoever held
// the nation before the call; Previous is the user's nation before the call.
type Binding struct {
	Owner    domain.UserID
	Previous nation.Key
}

// Bind links user to key in one step. Unless evict is set it refuses when a
// different user owns key, leaving the mapping untouched and reporting that
// owner in the returned Binding.
func (s *Store) Bind(user domain.UserID, key nation.Key, evict bool) (Binding, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b Binding
	b.Previous, _ = s.pairs.Get(user)
	if owner, held := s.pairs.Key(key); held && owner != user {
		b.Owner = owner
		if !evict {
			return b, false
		}
	}
	evicted, ok := s.pairs.Put(user, key)
	s.record(user)
	if ok {
		s.record(evicted)
	}
	return b, true
}

// Remove drops user's claim.
func (s *Store) Remove(user domain.UserID) (nation.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.pairs.Delete(user)
	if !ok {
		return "", ErrNotFound
	}
	s.record(user)
	return key, nil
}

// RemoveNation drops whichever user holds key.
func (s *Store) RemoveNation(key nation.Key) (domain.UserID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.pairs.DeleteValue(key)
	if !ok {
		return "", ErrNotFound
	}
	s.record(user)
	return user, nil
}

// record must run with mu held. It never blocks.
func (s *Store) record(user domain.UserID) {
	if s.touched != nil {
		s.touched[user] = struct{}{}
		return
	}
	s.dirty[user] = struct{}{}
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// RunInTx opens a batch scope. Only one scope is open at a time; callers
// wait for it or for ctx. Every mutation made while the scope is open,
// from any goroutine, is deferred and committed in one pass when fn returns.
// The commit and release happen even when fn fails. fn must not call RunInTx.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	select {
	case s.txSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.txSem }()

	s.mu.Lock()
	s.touched = make(map[domain.UserID]struct{})
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		touched := s.touched
		s.touched = nil
		s.mu.Unlock()

		if cerr := s.commit(context.WithoutCancel(ctx), touched); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	return fn(ctx)
}

func (s *Store) commit(ctx context.Context, touched map[domain.UserID]struct{}) error {
	if len(touched) == 0 {
		return nil
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	users := sortedUsers(touched)
	write := func(ctx context.Context) error {
		var errs []error
		for _, u := range users {
			if err := s.persist(ctx, u); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	var err error
	if tx, ok := s.fields.(fields.Transactor); ok {
		err = tx.RunInTx(ctx, write)
	} else {
		err = write(ctx)
	}
	if err != nil {
		s.metrics.IncWritebackFailure()
		return dErrors.Wrap(err, dErrors.CodeExternal, "commit identity batch")
	}
	return nil
}

// persist writes user's current in-memory state. Caller holds persistMu.
func (s *Store) persist(ctx context.Context, user domain.UserID) error {
	key, ok := s.Get(user)
	ref := fields.User(user.String(), fields.NameNation)
	if !ok {
		return s.fields.Clear(ctx, ref)
	}
	return s.fields.Set(ctx, ref, key.String())
}

func sortedUsers(set map[domain.UserID]struct{}) []domain.UserID {
	users := make([]domain.UserID, 0, len(set))
	for u := range set {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}
