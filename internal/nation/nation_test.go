package nation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "citizenship/pkg/domain-errors"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Key
	}{
		{"lowercases", "Testlandia", "testlandia"},
		{"spaces become underscores", "The North Pacific", "the_north_pacific"},
		{"strips punctuation", "Testlandia!?", "testlandia"},
		{"keeps hyphen and underscore", "x-ray_one", "x-ray_one"},
		{"drops non-ascii letters", "Ünited Kingdom", "nited_kingdom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("empty after stripping is invalid", func(t *testing.T) {
		_, err := Normalize("!!!")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestNormalizeDisplayRoundTrip(t *testing.T) {
	for _, input := range []string{"Testlandia", "the north pacific", "x-ray_1st", "A  B", "mAcHiNe"} {
		first, err := Normalize(input)
		require.NoError(t, err)
		again, err := Normalize(Display(first))
		require.NoError(t, err)
		assert.Equal(t, first, again, "input %q", input)
	}
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "The North Pacific", Display("the_north_pacific"))
	assert.Equal(t, "X-Ray", Display("x-ray"))
	assert.Equal(t, "Testlandia", Display("testlandia"))
}

func TestParseReference(t *testing.T) {
	accepted := map[string]Reference{
		"Testlandia":         {Key: "testlandia"},
		`"Testlandia"`:       {Key: "testlandia"},
		"nation=testlandia":  {Tag: "nation", Key: "testlandia"},
		"NATION=Test Landia": {Tag: "nation", Key: "test_landia"},
		"https://www.nationstates.net/nation=testlandia": {Tag: "nation", Key: "testlandia"},
		"http://nationstates.net/nation=testlandia":      {Tag: "nation", Key: "testlandia"},
		"www.nationstates.net/nation=the_north_pacific":  {Tag: "nation", Key: "the_north_pacific"},
		"  Testlandia  ": {Key: "testlandia"},
	}
	for input, want := range accepted {
		t.Run("accepts "+input, func(t *testing.T) {
			got, err := ParseReference(input)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	rejected := []string{
		"",
		"region=the_north_pacific",
		"https://www.nationstates.net/region=the_north_pacific",
		"https://example.com/nation=testlandia",
		"!!!",
	}
	for _, input := range rejected {
		t.Run("rejects "+input, func(t *testing.T) {
			_, err := ParseReference(input)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestParseTitledPair(t *testing.T) {
	t.Run("single field is an untagged title", func(t *testing.T) {
		pair, err := ParseTitledPair("Cabinet")
		require.NoError(t, err)
		assert.True(t, pair.Nation.IsZero())
		assert.Equal(t, "Cabinet", pair.Title)
	})

	t.Run("title first, nation last", func(t *testing.T) {
		pair, err := ParseTitledPair("Speaker", "ignored", "Test Landia")
		require.NoError(t, err)
		assert.Equal(t, Key("test_landia"), pair.Nation)
		assert.Equal(t, "Speaker", pair.Title)
	})

	t.Run("empty row errors", func(t *testing.T) {
		_, err := ParseTitledPair()
		require.Error(t, err)
	})

	t.Run("unreadable nation errors", func(t *testing.T) {
		_, err := ParseTitledPair("Speaker", "???")
		require.Error(t, err)
	})
}

func TestScanAndMatchLink(t *testing.T) {
	assert.Equal(t, []Key{"a", "b_c", "d"}, Scan("a:B C::d"))
	assert.Equal(t, []Key{"x", "y"}, Scan("x,y,"))

	k, ok := MatchLink("hi! my nation is https://www.nationstates.net/nation=Testlandia thanks")
	require.True(t, ok)
	assert.Equal(t, Key("testlandia"), k)

	_, ok = MatchLink("no links here")
	assert.False(t, ok)
}
