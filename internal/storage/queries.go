package storage

var neo4jQueries = map[string]string{
	// total reconciled users
	"total_users": `
			MATCH (u:User)
			RETURN COUNT(u) AS total_users
		`,
	// total tracked groups and servers
	"total_groups": `
			MATCH (g:Group)
			RETURN g.kind AS kind, COUNT(g) AS total_groups
		`,
	// every user holding an admin role anywhere
	"admins": `
			MATCH (u:User)-[:HOLDS]->(r:Role {admin: true})-[:IN]->(g:Group)
			RETURN DISTINCT u.name AS name, g.name AS group_name
			ORDER BY name
		`,
	// every user holding a moderation role anywhere
	"moderators": `
			MATCH (u:User)-[:HOLDS]->(r:Role {moderator: true})-[:IN]->(g:Group)
			RETURN DISTINCT u.name AS name, g.name AS group_name
			ORDER BY name
		`,
	// top 5 roles by holder count
	"top_roles": `
			MATCH (u:User)-[:HOLDS]->(r:Role)
			RETURN r.name AS role_name, COUNT(u) AS holders
			ORDER BY holders DESC
			LIMIT 5
		`,
	// users present in more than one group or server
	"shared_members": `
			MATCH (u:User)-[:MEMBER_OF]->(g:Group)
			WITH u, COUNT(g) AS memberships
			WHERE memberships > 1
			RETURN u.name AS name, memberships
			ORDER BY memberships DESC
		`,
	// users linked on Discord but absent from every VRChat group
	"discord_only": `
			MATCH (u:User)-[:MEMBER_OF]->(:Group {kind: "discord"})
			WHERE NOT (u)-[:MEMBER_OF]->(:Group {kind: "vrchat"})
			RETURN u.name AS name
			ORDER BY name
		`,
}

// KnownQuery reports whether name refers to a canned report query.
func KnownQuery(name string) bool {
	_, ok := neo4jQueries[name]
	return ok
}
