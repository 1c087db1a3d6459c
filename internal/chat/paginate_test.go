package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	t.Run("short text is one page", func(t *testing.T) {
		assert.Equal(t, []string{"hello"}, Paginate("hello", 10))
	})

	t.Run("breaks on newlines", func(t *testing.T) {
		got := Paginate("aaaa\nbbbb\ncccc", 10)
		assert.Equal(t, []string{"aaaa\nbbbb", "cccc"}, got)
	})

	t.Run("hard cut keeps runes whole", func(t *testing.T) {
		text := strings.Repeat("é", 6)
		got := Paginate(text, 5)
		for _, p := range got {
			assert.LessOrEqual(t, len(p), 5)
		}
		assert.Equal(t, text, strings.Join(got, ""))
	})

	t.Run("default limit", func(t *testing.T) {
		got := Paginate(strings.Repeat("x", MessageLimit+1), 0)
		assert.Len(t, got, 2)
	})
}
