package models

import "time"

// Permission markers checked when classifying a role. VRChat group roles
// carry them natively; the Discord client maps permission bits onto the
// same two markers so the aggregator can treat both platforms alike.
const (
	PermissionOwner    = "*"
	PermissionModerate = "group-instance-moderate"
)

// User represents a VRChat user.
type User struct {
	ID          string
	DisplayName string
}

// Role represents a role definition in a VRChat group or a Discord guild.
type Role struct {
	ID          string
	Name        string
	Permissions []string
}

// GroupMember represents one membership entry of a VRChat group.
type GroupMember struct {
	UserID      string
	DisplayName string
	RoleIDs     []string
}

// Group represents a VRChat group together with its roles and members.
// IsMember reports whether the authenticated user belongs to it; the
// members listing endpoint excludes the caller, so the caller is appended
// separately when building the roster.
type Group struct {
	ID       string
	Name     string
	Roles    []Role
	Members  []GroupMember
	IsMember bool
	MyRoles  []string
}

// Message represents a single chat message from a Discord channel. Seq is
// the insertion order within the fetched history and breaks ties between
// messages carrying equal timestamps.
type Message struct {
	ID        string
	AuthorID  string
	Text      string
	Timestamp time.Time
	Seq       int
}

// ChatServer represents a Discord guild after identity reconciliation:
// role definitions plus the linked members keyed by VRChat display name.
type ChatServer struct {
	ID      string
	Name    string
	Roles   []Role
	Members map[string][]string
}

// World represents a VRChat world. Counters are passed through to the
// snapshot untouched.
type World struct {
	ID        string
	Name      string
	Visits    int
	Favorites int
	Occupants int
}
