// Package snapshot shapes the aggregated directory into the persisted
// document and writes it to disk.
package snapshot

import (
	"github.com/pawkat/vrcroster/internal/aggregate"
	"github.com/pawkat/vrcroster/internal/models"
)

// Document is the persisted output. Serialization is sparse: empty fields
// are omitted.
type Document struct {
	VRCUserDisplayNames []string               `json:"vrcUserDisplayNames,omitempty"`
	VRCGroupsByID       map[string]*Directory  `json:"vrcGroupsById,omitempty"`
	DiscordServersByID  map[string]*Directory  `json:"discordServersById,omitempty"`
	VRCWorldsByID       map[string]*WorldEntry `json:"vrcWorldsById,omitempty"`
}

// Directory is one group's or server's projection onto the canonical list.
type Directory struct {
	Name     string           `json:"name,omitempty"`
	VRCUsers []int            `json:"vrcUsers,omitempty"`
	Roles    map[string]*Role `json:"roles,omitempty"`
}

// Role is one role's membership, with the derived moderation flags.
type Role struct {
	Name        string `json:"name,omitempty"`
	IsAdmin     bool   `json:"isAdmin,omitempty"`
	IsModerator bool   `json:"isModerator,omitempty"`
	VRCUsers    []int  `json:"vrcUsers,omitempty"`
}

// WorldEntry is passthrough world data; no reconciliation applies.
type WorldEntry struct {
	Name      string `json:"name,omitempty"`
	Visits    int    `json:"visits,omitempty"`
	Favorites int    `json:"favorites,omitempty"`
	Occupants int    `json:"occupants,omitempty"`
}

// Assemble builds the document from the aggregated directory plus the
// fetched worlds. Pure transformation, no I/O.
func Assemble(dir *aggregate.Directory, worlds []models.World) *Document {
	doc := &Document{
		VRCUserDisplayNames: dir.Names,
	}

	if len(dir.Groups) > 0 {
		doc.VRCGroupsByID = make(map[string]*Directory, len(dir.Groups))
		for id, p := range dir.Groups {
			doc.VRCGroupsByID[id] = convertProjection(p)
		}
	}
	if len(dir.Servers) > 0 {
		doc.DiscordServersByID = make(map[string]*Directory, len(dir.Servers))
		for id, p := range dir.Servers {
			doc.DiscordServersByID[id] = convertProjection(p)
		}
	}
	if len(worlds) > 0 {
		doc.VRCWorldsByID = make(map[string]*WorldEntry, len(worlds))
		for _, w := range worlds {
			doc.VRCWorldsByID[w.ID] = &WorldEntry{
				Name:      w.Name,
				Visits:    w.Visits,
				Favorites: w.Favorites,
				Occupants: w.Occupants,
			}
		}
	}
	return doc
}

func convertProjection(p aggregate.Projection) *Directory {
	d := &Directory{
		Name:     p.Name,
		VRCUsers: p.Members,
	}
	if len(p.Roles) > 0 {
		d.Roles = make(map[string]*Role, len(p.Roles))
		for id, rp := range p.Roles {
			d.Roles[id] = &Role{
				Name:        rp.Name,
				IsAdmin:     rp.IsAdmin,
				IsModerator: rp.IsModerator,
				VRCUsers:    rp.Members,
			}
		}
	}
	return d
}
