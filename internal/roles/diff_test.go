package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"citizenship/internal/chat"
	"citizenship/internal/titles"
	"citizenship/pkg/domain"
)

var guildRoles = []chat.Role{
	{ID: "10", Name: "Residents"},
	{ID: "11", Name: "Visitors"},
	{ID: "12", Name: "Ex-Nation"},
	{ID: "13", Name: "Moderator"},
	{ID: "14", Name: "WA Residents"},
	{ID: "15", Name: "residents", Managed: true},
}

var all = titles.NewSet("ex-nation", "residents", "visitors", "wa residents", "citizens")

func TestDiff(t *testing.T) {
	t.Run("swaps managed titles and keeps the rest", func(t *testing.T) {
		plan := Diff([]domain.RoleID{"11", "13"}, guildRoles, titles.NewSet("residents", "wa residents"), all)
		assert.Equal(t, []domain.RoleID{"10", "13", "14"}, plan.Desired)
		assert.Equal(t, []domain.RoleID{"10", "14"}, plan.Add)
		assert.Equal(t, []domain.RoleID{"11"}, plan.Remove)
	})

	t.Run("titles without a guild role are dropped", func(t *testing.T) {
		plan := Diff(nil, guildRoles, titles.NewSet("citizens"), all)
		assert.True(t, plan.Empty())
		assert.Empty(t, plan.Desired)
	})

	t.Run("unknown current roles are untouched", func(t *testing.T) {
		plan := Diff([]domain.RoleID{"999"}, guildRoles, titles.NewSet("ex-nation"), all)
		assert.Equal(t, []domain.RoleID{"12", "999"}, plan.Desired)
		assert.Empty(t, plan.Remove)
	})

	t.Run("empty desired strips every title", func(t *testing.T) {
		plan := Diff([]domain.RoleID{"10", "13", "14"}, guildRoles, titles.NewSet(), all)
		assert.Equal(t, []domain.RoleID{"13"}, plan.Desired)
		assert.Equal(t, []domain.RoleID{"10", "14"}, plan.Remove)
	})
}

func TestDiffIsIdempotent(t *testing.T) {
	current := []domain.RoleID{"11", "13"}
	desired := titles.NewSet("residents")

	first := Diff(current, guildRoles, desired, all)
	again := Diff(current, guildRoles, desired, all)
	assert.Equal(t, first, again, "same inputs, same plan")
	assert.Equal(t, []domain.RoleID{"11", "13"}, current, "inputs are not mutated")

	settled := Diff(first.Desired, guildRoles, desired, all)
	assert.True(t, settled.Empty(), "applying a plan reaches a fixed point")
}
