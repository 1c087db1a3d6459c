// Package titles holds the nation -> titles cache produced by each refresh
// cycle.
//
// Feeds write into a Scratch while a cycle runs. Freeze turns the scratch into
// an immutable Snapshot, and Cache swaps snapshots atomically so readers see
// either the previous cycle or the new one, never a mix.
package titles

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"citizenship/internal/nation"
)

// Reserved title names.
const (
	ExNation   = "ex-nation"
	Residents  = "residents"
	Visitors   = "visitors"
	WAResident = "wa residents"
)

// Set is a set of lowercase titles.
type Set map[string]struct{}

func NewSet(titles ...string) Set {
	s := make(Set, len(titles))
	for _, t := range titles {
		s[t] = struct{}{}
	}
	return s
}

func (s Set) Has(title string) bool {
	_, ok := s[title]
	return ok
}

// Sorted returns the titles in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (s Set) clone() Set {
	out := make(Set, len(s))
	for t := range s {
		out[t] = struct{}{}
	}
	return out
}

// Scratch accumulates one cycle's feed output. Safe for concurrent use.
type Scratch struct {
	mu      sync.Mutex
	entries map[nation.Key]map[string]struct{}
	all     map[string]struct{}
}

// NewScratch returns a scratch whose ALL set is seeded with ex-nation.
func NewScratch() *Scratch {
	return &Scratch{
		entries: make(map[nation.Key]map[string]struct{}),
		all:     map[string]struct{}{ExNation: {}},
	}
}

// Grant gives key the titles. A zero key is accepted and dropped at Freeze.
func (s *Scratch) Grant(key nation.Key, titles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[key]
	if e == nil {
		e = make(map[string]struct{})
		s.entries[key] = e
	}
	for _, t := range titles {
		e[t] = struct{}{}
	}
}

// GrantIfAbsent gives key the titles only when key has no entry yet.
func (s *Scratch) GrantIfAbsent(key nation.Key, titles ...string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; ok {
		return false
	}
	e := make(map[string]struct{}, len(titles))
	for _, t := range titles {
		e[t] = struct{}{}
	}
	s.entries[key] = e
	return true
}

// Declare adds titles to the ALL set.
func (s *Scratch) Declare(titles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range titles {
		s.all[t] = struct{}{}
	}
}

// Has reports whether key currently holds title (case-sensitive, pre-freeze).
func (s *Scratch) Has(key nation.Key, title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key][title]
	return ok
}

// Freeze lowercases every title, drops the zero-key entry and returns the
// immutable snapshot.
func (s *Scratch) Freeze() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := &Snapshot{
		entries: make(map[nation.Key]Set, len(s.entries)),
		all:     make(Set, len(s.all)),
	}
	for k, titles := range s.entries {
		if k.IsZero() {
			continue
		}
		set := make(Set, len(titles))
		for t := range titles {
			set[strings.ToLower(t)] = struct{}{}
		}
		snap.entries[k] = set
	}
	for t := range s.all {
		snap.all[strings.ToLower(t)] = struct{}{}
	}
	return snap
}

// Snapshot is an immutable cycle result. Do not mutate the returned sets.
type Snapshot struct {
	entries map[nation.Key]Set
	all     Set
}

// Seed is the snapshot in force before the first cycle commits.
func Seed() *Snapshot {
	return &Snapshot{entries: map[nation.Key]Set{}, all: NewSet(ExNation)}
}

// Titles returns key's titles.
func (s *Snapshot) Titles(key nation.Key) (Set, bool) {
	t, ok := s.entries[key]
	return t, ok
}

// Desired is Titles with the ex-nation default for unknown nations.
func (s *Snapshot) Desired(key nation.Key) Set {
	if t, ok := s.entries[key]; ok {
		return t
	}
	return NewSet(ExNation)
}

// All is the union of every title granted this cycle, plus ex-nation.
func (s *Snapshot) All() Set { return s.all }

// Len is the number of nations with titles.
func (s *Snapshot) Len() int { return len(s.entries) }

// withEntry returns a copy of s with key's titles replaced. The entries map is
// copied shallowly; untouched sets are shared.
func (s *Snapshot) withEntry(key nation.Key, titles Set) *Snapshot {
	entries := make(map[nation.Key]Set, len(s.entries)+1)
	for k, v := range s.entries {
		entries[k] = v
	}
	entries[key] = titles
	return &Snapshot{entries: entries, all: s.all}
}

// Cache publishes the current snapshot.
type Cache struct {
	snap atomic.Pointer[Snapshot]
}

// NewCache starts from the seed snapshot.
func NewCache() *Cache {
	c := &Cache{}
	c.snap.Store(Seed())
	return c
}

// Load returns the current snapshot.
func (c *Cache) Load() *Snapshot { return c.snap.Load() }

// Swap installs next wholesale.
func (c *Cache) Swap(next *Snapshot) { c.snap.Store(next) }

// Residency is the live-cache update a verified claim applies before the
// next cycle catches up.
type Residency struct {
	Resident bool
	WAMember bool
}

// ApplyResidency updates key's residents/visitors and WA flags in place of
// waiting for the next cycle. Other titles on the nation are kept.
func (c *Cache) ApplyResidency(key nation.Key, r Residency) {
	for {
		cur := c.snap.Load()
		var titles Set
		if t, ok := cur.entries[key]; ok {
			titles = t.clone()
		} else {
			titles = make(Set)
		}
		if r.Resident {
			titles[Residents] = struct{}{}
			delete(titles, Visitors)
		} else {
			titles[Visitors] = struct{}{}
			delete(titles, Residents)
		}
		if r.Resident && r.WAMember {
			titles[WAResident] = struct{}{}
		} else {
			delete(titles, WAResident)
		}
		if c.snap.CompareAndSwap(cur, cur.withEntry(key, titles)) {
			return
		}
	}
}
