// Package roles reconciles a member's chat roles with the titles their
// nation holds.
package roles

import (
	"sort"
	"strings"

	"citizenship/internal/chat"
	"citizenship/internal/titles"
	"citizenship/pkg/domain"
)

// Plan is the outcome of a diff. Desired is the full role list to set;
// Add and Remove are what changes.
type Plan struct {
	Desired []domain.RoleID
	Add     []domain.RoleID
	Remove  []domain.RoleID
}

// Empty reports whether applying the plan would change nothing.
func (p Plan) Empty() bool { return len(p.Add) == 0 && len(p.Remove) == 0 }

// Diff computes the role plan for one member. Roles whose name is not a
// managed title (not in all) are left untouched; desired titles are matched
// to guild roles case-insensitively and dropped when the guild has no such
// role. Diff has no side effects.
func Diff(current []domain.RoleID, guildRoles []chat.Role, desired, all titles.Set) Plan {
	byID := make(map[domain.RoleID]chat.Role, len(guildRoles))
	for _, r := range guildRoles {
		byID[r.ID] = r
	}

	have := make(map[domain.RoleID]struct{}, len(current))
	want := make(map[domain.RoleID]struct{}, len(current))
	for _, id := range current {
		have[id] = struct{}{}
		r, known := byID[id]
		if !known || !all.Has(strings.ToLower(r.Name)) {
			want[id] = struct{}{}
		}
	}
	for _, id := range resolve(guildRoles, desired) {
		want[id] = struct{}{}
	}

	var p Plan
	for id := range want {
		p.Desired = append(p.Desired, id)
		if _, ok := have[id]; !ok {
			p.Add = append(p.Add, id)
		}
	}
	for id := range have {
		if _, ok := want[id]; !ok {
			p.Remove = append(p.Remove, id)
		}
	}
	sortIDs(p.Desired)
	sortIDs(p.Add)
	sortIDs(p.Remove)
	return p
}

// resolve maps titles to guild roles. The first assignable role with a
// matching name wins.
func resolve(guildRoles []chat.Role, desired titles.Set) []domain.RoleID {
	out := make([]domain.RoleID, 0, len(desired))
	seen := make(map[string]struct{}, len(desired))
	for _, r := range guildRoles {
		name := strings.ToLower(r.Name)
		if r.Managed || !desired.Has(name) {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, r.ID)
	}
	return out
}

func sortIDs(ids []domain.RoleID) {
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})
}
