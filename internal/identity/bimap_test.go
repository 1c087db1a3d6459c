package identity

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBiMapPut(t *testing.T) {
	t.Run("evicts previous holder of the value", func(t *testing.T) {
		m := NewBiMap[string, string]()
		m.Put("alice", "testlandia")

		evicted, ok := m.Put("bob", "testlandia")
		require.True(t, ok)
		assert.Equal(t, "alice", evicted)

		_, has := m.Get("alice")
		assert.False(t, has)
		owner, _ := m.Key("testlandia")
		assert.Equal(t, "bob", owner)
	})

	t.Run("releases key's previous value", func(t *testing.T) {
		m := NewBiMap[string, string]()
		m.Put("alice", "a")
		m.Put("alice", "b")

		_, held := m.Key("a")
		assert.False(t, held)
		assert.Equal(t, 1, m.Len())
	})

	t.Run("re-putting the same pair is a no-op", func(t *testing.T) {
		m := NewBiMap[string, string]()
		m.Put("alice", "a")
		_, ok := m.Put("alice", "a")
		assert.False(t, ok)
		assert.Equal(t, 1, m.Len())
	})
}

func TestBiMapDelete(t *testing.T) {
	m := NewBiMap[string, string]()
	m.Put("alice", "a")
	m.Put("bob", "b")

	v, ok := m.Delete("alice")
	require.True(t, ok)
	assert.Equal(t, "a", v)

	k, ok := m.DeleteValue("b")
	require.True(t, ok)
	assert.Equal(t, "bob", k)

	assert.Equal(t, 0, m.Len())
	_, ok = m.Delete("nobody")
	assert.False(t, ok)
}

// TestBiMapStaysBijective drives random operations and checks both indices
// agree after each step.
func TestBiMapStaysBijective(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	keys := []string{"u1", "u2", "u3", "u4"}
	vals := []string{"n1", "n2", "n3"}
	m := NewBiMap[string, string]()

	for i := 0; i < 2000; i++ {
		k := keys[rng.Intn(len(keys))]
		v := vals[rng.Intn(len(vals))]
		switch rng.Intn(3) {
		case 0, 1:
			m.Put(k, v)
		default:
			m.Delete(k)
		}

		require.Equal(t, len(m.fwd), len(m.rev), "step %d", i)
		for fk, fv := range m.fwd {
			rk, ok := m.rev[fv]
			require.True(t, ok, "step %d", i)
			require.Equal(t, fk, rk, "step %d", i)
		}
	}
}
