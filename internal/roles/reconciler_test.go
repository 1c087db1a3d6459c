package roles

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"citizenship/internal/chat"
	"citizenship/internal/chat/memory"
	"citizenship/internal/nation"
	"citizenship/internal/titles"
	"citizenship/pkg/domain"
	dErrors "citizenship/pkg/domain-errors"
	"citizenship/pkg/platform/sentinel"
	"citizenship/pkg/testutil"
)

type mapIdentities map[domain.UserID]nation.Key

func (m mapIdentities) Get(u domain.UserID) (nation.Key, bool) {
	k, ok := m[u]
	return k, ok
}

type enabledList []domain.GuildID

func (e enabledList) Enabled() []domain.GuildID { return e }

type ReconcilerSuite struct {
	suite.Suite
	ctx        context.Context
	platform   *memory.Platform
	identities mapIdentities
	cache      *titles.Cache
}

func TestReconcilerSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerSuite))
}

func (s *ReconcilerSuite) SetupTest() {
	s.ctx = context.Background()
	s.platform = memory.NewPlatform()
	s.platform.AddGuild("1", "north", guildRoles...)
	s.platform.AddGuild("2", "south", guildRoles...)
	s.identities = mapIdentities{}
	s.cache = titles.NewCache()

	scratch := titles.NewScratch()
	scratch.Declare(titles.Residents, titles.Visitors, titles.WAResident)
	scratch.Grant("testlandia", titles.Residents, titles.WAResident)
	scratch.Grant("otherland", titles.Visitors)
	s.cache.Swap(scratch.Freeze())
}

func (s *ReconcilerSuite) reconciler(opts ...Option) *Reconciler {
	opts = append([]Option{WithLogger(testutil.DiscardLogger())}, opts...)
	r, err := New(s.platform, s.identities, s.cache, enabledList{"1", "2"}, opts...)
	s.Require().NoError(err)
	return r
}

// =============================================================================
// Member
// =============================================================================

func (s *ReconcilerSuite) TestMember() {
	s.Run("claimed member gets nation titles", func() {
		s.identities["100"] = "testlandia"
		s.platform.AddMember("1", chat.User{ID: "100"}, "11", "13")

		m, err := s.platform.Member(s.ctx, "1", "100")
		s.Require().NoError(err)
		plan, err := s.reconciler().Member(s.ctx, *m)
		s.Require().NoError(err)
		s.False(plan.Empty())
		s.Equal([]string{"Moderator", "Residents", "WA Residents"}, s.platform.MemberRoleNames("1", "100"))
	})

	s.Run("nation without cache entry becomes ex-nation", func() {
		s.identities["101"] = "gone"
		s.platform.AddMember("1", chat.User{ID: "101"}, "10")

		m, _ := s.platform.Member(s.ctx, "1", "101")
		_, err := s.reconciler().Member(s.ctx, *m)
		s.Require().NoError(err)
		s.Equal([]string{"Ex-Nation"}, s.platform.MemberRoleNames("1", "101"))
	})

	s.Run("bots and unclaimed members are skipped", func() {
		s.platform.AddMember("1", chat.User{ID: "102", Bot: true}, "10")
		s.platform.AddMember("1", chat.User{ID: "103"}, "10")
		s.identities["102"] = "testlandia"

		r := s.reconciler()
		for _, id := range []domain.UserID{"102", "103"} {
			m, _ := s.platform.Member(s.ctx, "1", id)
			plan, err := r.Member(s.ctx, *m)
			s.Require().NoError(err)
			s.True(plan.Empty())
		}
	})
}

func (s *ReconcilerSuite) TestDryRun() {
	s.identities["100"] = "testlandia"
	s.platform.AddMember("1", chat.User{ID: "100"}, "11")

	m, _ := s.platform.Member(s.ctx, "1", "100")
	plan, err := s.reconciler(WithDryRun(true)).Member(s.ctx, *m)
	s.Require().NoError(err)
	s.False(plan.Empty())
	s.Zero(s.platform.RoleEdits())
	s.Equal([]string{"Visitors"}, s.platform.MemberRoleNames("1", "100"))
}

func (s *ReconcilerSuite) TestForbiddenIsCoded() {
	s.identities["100"] = "testlandia"
	s.platform.AddMember("1", chat.User{ID: "100"})
	s.platform.FailGuild("1", sentinel.ErrForbidden)

	err := s.reconciler().User(s.ctx, "100")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

// =============================================================================
// All
// =============================================================================

func (s *ReconcilerSuite) TestAllPaginatesEveryEnabledGuild() {
	for _, id := range []domain.UserID{"100", "101", "102", "103", "104"} {
		s.identities[id] = "testlandia"
		s.platform.AddMember("1", chat.User{ID: id})
	}
	s.identities["200"] = "otherland"
	s.platform.AddMember("2", chat.User{ID: "200"}, "13")
	s.platform.AddMember("2", chat.User{ID: "201"}, "10")

	stats, err := s.reconciler(WithPageSize(2), WithYieldEvery(1)).All(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, stats.Guilds)
	s.Equal(7, stats.Members)
	s.Equal(6, stats.Edited)
	s.Equal([]string{"Residents", "WA Residents"}, s.platform.MemberRoleNames("1", "104"))
	s.Equal([]string{"Moderator", "Visitors"}, s.platform.MemberRoleNames("2", "200"))
	s.Equal([]string{"Residents"}, s.platform.MemberRoleNames("2", "201"), "unclaimed members keep their roles")

	stats, err = s.reconciler().All(s.ctx)
	s.Require().NoError(err)
	s.Zero(stats.Edited, "second pass changes nothing")
}

func (s *ReconcilerSuite) TestAllContinuesPastBrokenGuild() {
	s.identities["200"] = "otherland"
	s.platform.AddMember("2", chat.User{ID: "200"})
	s.platform.FailGuild("1", errors.New("gateway hiccup"))

	stats, err := s.reconciler().All(s.ctx)
	s.Require().Error(err)
	s.Equal(1, stats.Guilds)
	s.Equal([]string{"Visitors"}, s.platform.MemberRoleNames("2", "200"))
}

func (s *ReconcilerSuite) TestAllStopsOnCancel() {
	s.identities["100"] = "testlandia"
	s.platform.AddMember("1", chat.User{ID: "100"})
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.reconciler(WithRateLimit(1, 1)).All(ctx)
	s.ErrorIs(err, context.Canceled)
}

// =============================================================================
// Strip
// =============================================================================

func (s *ReconcilerSuite) TestStripContinuesWhenOneGuildFails() {
	s.platform.AddMember("1", chat.User{ID: "100"}, "10", "13")
	s.platform.AddMember("2", chat.User{ID: "100"}, "10", "14", "13")
	s.platform.FailGuild("1", sentinel.ErrForbidden)

	err := s.reconciler().Strip(s.ctx, "100", "data deletion")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.Equal([]string{"Moderator"}, s.platform.MemberRoleNames("2", "100"))
}

func (s *ReconcilerSuite) TestStripSkipsGuildsWithoutTheMember() {
	s.platform.AddMember("2", chat.User{ID: "100"}, "11")
	s.Require().NoError(s.reconciler().Strip(s.ctx, "100", "removed"))
	s.Empty(s.platform.MemberRoleNames("2", "100"))
}
