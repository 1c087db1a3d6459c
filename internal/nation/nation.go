// Package nation canonicalises NationStates nation identifiers.
//
// Every lookup key in the system (identity store, title cache, feed output) is
// a Key produced by Normalize, so two spellings of the same nation always
// collide.
package nation

import (
	"regexp"
	"strings"
	"unicode"

	dErrors "citizenship/pkg/domain-errors"
)

// Key is a canonical nation identifier: lowercase, underscore-joined, limited
// to [a-z0-9_-]. The zero Key means "no nation".
type Key string

func (k Key) String() string { return string(k) }

// IsZero reports whether k is the empty key.
func (k Key) IsZero() bool { return k == "" }

// ErrInvalidIdentifier is returned when input normalises to nothing.
var ErrInvalidIdentifier = dErrors.New(dErrors.CodeInvalidInput, "not a valid nation name")

// Normalize lowercases input, turns spaces into underscores and drops
// every other character outside [a-z0-9_-].
func Normalize(input string) (Key, error) {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range strings.ToLower(input) {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case r == '_' || r == '-':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", ErrInvalidIdentifier
	}
	return Key(b.String()), nil
}

// MustNormalize is Normalize for compile-time constants and tests.
func MustNormalize(input string) Key {
	k, err := Normalize(input)
	if err != nil {
		panic(err)
	}
	return k
}

// Display renders k for humans: "the_north_pacific" becomes "The North Pacific".
func Display(k Key) string {
	s := strings.ReplaceAll(string(k), "_", " ")
	out := make([]rune, 0, len(s))
	prevLetter := false
	for _, r := range s {
		if prevLetter {
			out = append(out, unicode.ToLower(r))
		} else {
			out = append(out, unicode.ToUpper(r))
		}
		prevLetter = unicode.IsLetter(r)
	}
	return string(out)
}

// URL returns the nation's page on nationstates.net.
func URL(k Key) string {
	return "https://www.nationstates.net/nation=" + string(k)
}

var (
	referencePattern = regexp.MustCompile(
		`(?i)^\s*"?(?:(?:https?://)?(?:www\.)?nationstates\.net/)?(?:(\w+)=)?([-\w\s]+)"?\s*$`)
	linkPattern = regexp.MustCompile(
		`(?i)(?:https?://)?(?:www\.)?nationstates\.net/nation=([-\w]+)`)
)

// Reference is a parsed nation reference. Tag is the lower-cased tag the
// user wrote ("nation"), or empty for a bare name.
type Reference struct {
	Tag string
	Key Key
}

// ParseReference extracts a nation from user input. Accepted forms:
//
//	Testlandia
//	"Testlandia"
//	nation=testlandia
//	https://www.nationstates.net/nation=testlandia
//
// Any tag other than "nation" (region=, page=) is rejected.
func ParseReference(text string) (Reference, error) {
	m := referencePattern.FindStringSubmatch(text)
	if m == nil {
		return Reference{}, ErrInvalidIdentifier
	}
	tag := strings.ToLower(m[1])
	if tag != "" && tag != "nation" {
		return Reference{}, dErrors.New(dErrors.CodeInvalidInput, "only nation links are accepted")
	}
	key, err := Normalize(m[2])
	if err != nil {
		return Reference{}, err
	}
	return Reference{Tag: tag, Key: key}, nil
}

// MatchLink finds the first nation link anywhere in free text.
func MatchLink(text string) (Key, bool) {
	m := linkPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	k, err := Normalize(m[1])
	if err != nil {
		return "", false
	}
	return k, true
}

// TitledPair is a spreadsheet row reduced to an optional nation and a title.
type TitledPair struct {
	Nation Key
	Title  string
}

// ParseTitledPair reads a roster row. One field is a bare title with no
// nation; with two or more, the first field is the title and the last is the
// nation. Blank rows are an error.
func ParseTitledPair(fields ...string) (TitledPair, error) {
	switch len(fields) {
	case 0:
		return TitledPair{}, dErrors.New(dErrors.CodeInvalidInput, "empty row")
	case 1:
		return TitledPair{Title: fields[0]}, nil
	}
	k, err := Normalize(fields[len(fields)-1])
	if err != nil {
		return TitledPair{}, err
	}
	return TitledPair{Nation: k, Title: fields[0]}, nil
}

// Scan splits an API list (":" or "," separated) into keys, skipping blanks.
func Scan(list string) []Key {
	parts := strings.FieldsFunc(list, func(r rune) bool { return r == ':' || r == ',' })
	out := make([]Key, 0, len(parts))
	for _, p := range parts {
		if k, err := Normalize(strings.TrimSpace(p)); err == nil {
			out = append(out, k)
		}
	}
	return out
}
