// Package feeds aggregates the external title sources into one cycle
// snapshot.
//
// Primary feeds run concurrently first. Supplementary feeds run after them
// because they read what the primaries wrote (visitors only fill gaps, WA
// residency needs the residents set).
package feeds

import (
	"context"
	"errors"
	"fmt"

	"citizenship/internal/titles"
)

// Feed contributes titles to a cycle's scratch. Contribute may be called
// again after a retryable failure, so grants must be idempotent.
type Feed interface {
	Name() string
	Contribute(ctx context.Context, scratch *titles.Scratch, credential string) error
}

var ErrDuplicateFeed = errors.New("feed already registered")

// Registry holds the ordered primary and supplementary feed lists.
type Registry struct {
	names         map[string]struct{}
	primary       []Feed
	supplementary []Feed
}

func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// RegisterPrimary adds feeds to the first stage.
func (r *Registry) RegisterPrimary(feeds ...Feed) error {
	for _, f := range feeds {
		if err := r.claim(f); err != nil {
			return err
		}
		r.primary = append(r.primary, f)
	}
	return nil
}

// RegisterSupplementary adds feeds to the second stage.
func (r *Registry) RegisterSupplementary(feeds ...Feed) error {
	for _, f := range feeds {
		if err := r.claim(f); err != nil {
			return err
		}
		r.supplementary = append(r.supplementary, f)
	}
	return nil
}

func (r *Registry) claim(f Feed) error {
	if f == nil {
		return fmt.Errorf("feed is required")
	}
	if _, ok := r.names[f.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFeed, f.Name())
	}
	r.names[f.Name()] = struct{}{}
	return nil
}

func (r *Registry) Primary() []Feed { return append([]Feed(nil), r.primary...) }

func (r *Registry) Supplementary() []Feed { return append([]Feed(nil), r.supplementary...) }
