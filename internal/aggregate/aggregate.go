// Package aggregate merges the per-group and per-server rosters into one
// canonical display-name directory and projects every role membership onto
// positions in it.
package aggregate

import (
	"slices"

	"github.com/pawkat/vrcroster/internal/models"
)

// RoleProjection is one role's membership expressed as canonical indices.
type RoleProjection struct {
	Name        string
	IsAdmin     bool
	IsModerator bool
	Members     []int
}

// Projection is one group's or server's membership expressed as canonical
// indices, with its roles keyed by role ID.
type Projection struct {
	Name    string
	Members []int
	Roles   map[string]RoleProjection
}

// Directory is the reconciled cross-platform user directory. Names is the
// canonical user list: sorted, deduplicated display names whose positions
// serve as the join key for every projection.
type Directory struct {
	Names   []string
	index   map[string]int
	Groups  map[string]Projection
	Servers map[string]Projection
}

// Index returns the canonical position of name, or -1 when absent.
// Callers emitting index lists must filter the -1 out.
func (d *Directory) Index(name string) int {
	if i, ok := d.index[name]; ok {
		return i
	}
	return -1
}

// Build constructs the canonical list from every display name seen in any
// group or server roster and projects all role maps onto it.
func Build(groups []models.Group, servers []models.ChatServer) *Directory {
	seen := make(map[string]struct{})
	for _, g := range groups {
		for _, m := range g.Members {
			seen[m.DisplayName] = struct{}{}
		}
	}
	for _, s := range servers {
		for name := range s.Members {
			seen[name] = struct{}{}
		}
	}

	dir := &Directory{
		Names:   make([]string, 0, len(seen)),
		index:   make(map[string]int, len(seen)),
		Groups:  make(map[string]Projection, len(groups)),
		Servers: make(map[string]Projection, len(servers)),
	}
	for name := range seen {
		dir.Names = append(dir.Names, name)
	}
	slices.Sort(dir.Names)
	for i, name := range dir.Names {
		dir.index[name] = i
	}

	for _, g := range groups {
		memberRoles := make(map[string][]string, len(g.Members))
		for _, m := range g.Members {
			memberRoles[m.DisplayName] = m.RoleIDs
		}
		dir.Groups[g.ID] = dir.project(g.Name, g.Roles, memberRoles)
	}
	for _, s := range servers {
		dir.Servers[s.ID] = dir.project(s.Name, s.Roles, s.Members)
	}
	return dir
}

// project computes the canonical-index membership of one group or server.
// memberRoles maps display name to held role IDs.
func (d *Directory) project(name string, roles []models.Role, memberRoles map[string][]string) Projection {
	p := Projection{
		Name:  name,
		Roles: make(map[string]RoleProjection, len(roles)),
	}

	for member := range memberRoles {
		if i := d.Index(member); i >= 0 {
			p.Members = append(p.Members, i)
		}
	}
	slices.Sort(p.Members)

	for _, role := range roles {
		admin := hasPermission(role, models.PermissionOwner)
		rp := RoleProjection{
			Name:        role.Name,
			IsAdmin:     admin,
			IsModerator: admin || hasPermission(role, models.PermissionModerate),
		}
		for member, held := range memberRoles {
			if !slices.Contains(held, role.ID) {
				continue
			}
			if i := d.Index(member); i >= 0 {
				rp.Members = append(rp.Members, i)
			}
		}
		slices.Sort(rp.Members)
		p.Roles[role.ID] = rp
	}
	return p
}

func hasPermission(role models.Role, marker string) bool {
	return slices.Contains(role.Permissions, marker)
}
