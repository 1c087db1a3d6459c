package identity

// BiMap is a bijective map. Forward and reverse indices are updated together
// on every mutation, so a value is never held by two keys. Not safe for
// concurrent use; Store guards it.
type BiMap[K comparable, V comparable] struct {
	fwd map[K]V
	rev map[V]K
}

func NewBiMap[K comparable, V comparable]() *BiMap[K, V] {
	return &BiMap[K, V]{fwd: make(map[K]V), rev: make(map[V]K)}
}

// Get returns the value held by k.
func (m *BiMap[K, V]) Get(k K) (V, bool) {
	v, ok := m.fwd[k]
	return v, ok
}

// Key returns the key holding v.
func (m *BiMap[K, V]) Key(v V) (K, bool) {
	k, ok := m.rev[v]
	return k, ok
}

// Put binds k to v. Any previous value of k is released, and if another key
// held v that key loses its entry and is returned as evicted.
func (m *BiMap[K, V]) Put(k K, v V) (evicted K, ok bool) {
	if old, had := m.fwd[k]; had {
		if old == v {
			return evicted, false
		}
		delete(m.rev, old)
	}
	if other, held := m.rev[v]; held {
		delete(m.fwd, other)
		evicted, ok = other, true
	}
	m.fwd[k] = v
	m.rev[v] = k
	return evicted, ok
}

// Delete removes k and returns the value it held.
func (m *BiMap[K, V]) Delete(k K) (V, bool) {
	v, ok := m.fwd[k]
	if ok {
		delete(m.fwd, k)
		delete(m.rev, v)
	}
	return v, ok
}

// DeleteValue removes whichever key holds v.
func (m *BiMap[K, V]) DeleteValue(v V) (K, bool) {
	k, ok := m.rev[v]
	if ok {
		delete(m.rev, v)
		delete(m.fwd, k)
	}
	return k, ok
}

func (m *BiMap[K, V]) Len() int { return len(m.fwd) }

// Range calls fn for each pair until fn returns false. Order is unspecified.
func (m *BiMap[K, V]) Range(fn func(K, V) bool) {
	for k, v := range m.fwd {
		if !fn(k, v) {
			return
		}
	}
}
