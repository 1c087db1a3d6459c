package fields

import (
	"context"
	"sync"

	"citizenship/pkg/platform/sentinel"
)

type memKey struct {
	kind Kind
	name string
}

// InMemoryStore keeps fields in process memory. Used for local runs and
// tests; contents are lost on restart.
type InMemoryStore struct {
	mu     sync.RWMutex
	fields map[memKey]map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{fields: make(map[memKey]map[string]string)}
}

func (s *InMemoryStore) All(_ context.Context, kind Kind, name string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.fields[memKey{kind, name}]
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out, nil
}

func (s *InMemoryStore) Get(_ context.Context, ref Ref) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.fields[memKey{ref.Kind, ref.Name}][ref.Entity]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return v, nil
}

func (s *InMemoryStore) Set(_ context.Context, ref Ref, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memKey{ref.Kind, ref.Name}
	if s.fields[k] == nil {
		s.fields[k] = make(map[string]string)
	}
	s.fields[k][ref.Entity] = value
	return nil
}

func (s *InMemoryStore) Clear(_ context.Context, ref Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fields[memKey{ref.Kind, ref.Name}], ref.Entity)
	return nil
}

func (s *InMemoryStore) ClearEntity(_ context.Context, kind Kind, entity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, m := range s.fields {
		if k.kind == kind {
			delete(m, entity)
		}
	}
	return nil
}

// RunInTx runs fn directly; memory writes are already atomic per call.
func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
