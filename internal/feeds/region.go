package feeds

import (
	"context"
	"fmt"

	"citizenship/internal/nation"
	"citizenship/internal/titles"
)

// authorities maps regional authority letters to officer titles.
var authorities = map[rune]string{
	'X': "Executive Officer",
	'S': "Successor",
	'W': "World Assembly Officer",
	'A': "Appearance Officer",
	'B': "Border Control Officer",
	'C': "Communications Officer",
	'E': "Embassies Officer",
	'P': "Polls Officer",
}

// AuthorityTitles expands an authority string such as "XWA" into titles.
func AuthorityTitles(letters string) ([]string, error) {
	out := make([]string, 0, len(letters))
	for _, l := range letters {
		t, ok := authorities[l]
		if !ok {
			return nil, fmt.Errorf("unknown authority %q", l)
		}
		out = append(out, t)
	}
	return out, nil
}

var regionShards = []string{"nations", "officers", "delegate", "delegateauth", "founder", "founderauth"}

type authorityGrant struct {
	who       nation.Key
	authority string
}

// RegionFeed grants residency and officer titles for the home region.
type RegionFeed struct {
	api    NationAPI
	region nation.Key
}

func NewRegionFeed(api NationAPI, region nation.Key) *RegionFeed {
	return &RegionFeed{api: api, region: region}
}

func (f *RegionFeed) Name() string { return "region" }

func (f *RegionFeed) Contribute(ctx context.Context, scratch *titles.Scratch, _ string) error {
	r, err := f.api.Region(ctx, f.region, regionShards...)
	if err != nil {
		return err
	}

	scratch.Declare(titles.Residents, titles.WAResident)
	for _, t := range authorities {
		scratch.Declare(t)
	}
	for _, n := range r.Nations {
		scratch.Grant(n, titles.Residents)
	}

	grants := []authorityGrant{
		{r.Delegate, r.DelegateAuthority},
		{r.Founder, r.FounderAuthority},
	}
	for _, o := range r.Officers {
		grants = append(grants, authorityGrant{o.Nation, o.Authority})
	}
	for _, g := range grants {
		if g.who.IsZero() {
			continue
		}
		ts, err := AuthorityTitles(g.authority)
		if err != nil {
			return NewFeedError(ErrorBadData, f.Name(), "officer "+g.who.String(), err)
		}
		scratch.Grant(g.who, ts...)
	}
	return nil
}

// WAFeed marks residents who are World Assembly members. It runs after
// RegionFeed so residency is already known.
type WAFeed struct {
	api    NationAPI
	region nation.Key
}

func NewWAFeed(api NationAPI, region nation.Key) *WAFeed {
	return &WAFeed{api: api, region: region}
}

func (f *WAFeed) Name() string { return "wa" }

func (f *WAFeed) Contribute(ctx context.Context, scratch *titles.Scratch, _ string) error {
	r, err := f.api.Region(ctx, f.region, "wanations")
	if err != nil {
		return err
	}
	scratch.Declare(titles.WAResident)
	for _, n := range r.WANations {
		if scratch.Has(n, titles.Residents) {
			scratch.Grant(n, titles.WAResident)
		}
	}
	return nil
}

// WorldFeed marks every other nation in the world as a visitor.
type WorldFeed struct {
	api NationAPI
}

func NewWorldFeed(api NationAPI) *WorldFeed {
	return &WorldFeed{api: api}
}

func (f *WorldFeed) Name() string { return "world" }

func (f *WorldFeed) Contribute(ctx context.Context, scratch *titles.Scratch, _ string) error {
	all, err := f.api.WorldNations(ctx)
	if err != nil {
		return err
	}
	scratch.Declare(titles.Visitors)
	for _, n := range all {
		scratch.GrantIfAbsent(n, titles.Visitors)
	}
	return nil
}
