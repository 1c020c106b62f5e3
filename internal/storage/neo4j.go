package storage

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/pawkat/vrcroster/internal/aggregate"
)

// Neo4jStorage mirrors the reconciled directory into a Neo4j graph. It is
// an optional sink: the JSON snapshot stays the source of truth and is
// written before any graph export runs.
type Neo4jStorage struct {
	Driver neo4j.DriverWithContext
}

func NewNeo4jStorage(uri, username, password string) (*Neo4jStorage, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("connect to driver: %w", err)
	}
	return &Neo4jStorage{Driver: driver}, nil
}

func (s *Neo4jStorage) Close(ctx context.Context) error {
	return s.Driver.Close(ctx)
}

// SaveDirectory merges users, groups, servers and roles plus their
// MEMBER_OF / HOLDS / IN relationships.
func (s *Neo4jStorage) SaveDirectory(ctx context.Context, dir *aggregate.Directory) error {
	session := s.Driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func(session neo4j.SessionWithContext, ctx context.Context) {
		err := session.Close(ctx)
		if err != nil {
			logrus.Warnf("close session: %v", err)
		}
	}(session, ctx)

	for _, name := range dir.Names {
		_, err := session.Run(
			ctx,
			`MERGE (u:User {name: $name})`,
			map[string]interface{}{"name": name},
		)
		if err != nil {
			logrus.Errorf("save user %s: %v", name, err)
			return fmt.Errorf("save user %s: %w", name, err)
		}
	}

	if err := s.saveProjections(ctx, session, dir, dir.Groups, "vrchat"); err != nil {
		return err
	}
	return s.saveProjections(ctx, session, dir, dir.Servers, "discord")
}

func (s *Neo4jStorage) saveProjections(ctx context.Context, session neo4j.SessionWithContext, dir *aggregate.Directory, projections map[string]aggregate.Projection, kind string) error {
	for id, p := range projections {
		_, err := session.Run(
			ctx,
			`
			MERGE (g:Group {id: $id})
			SET g.name = $name, g.kind = $kind
			`,
			map[string]interface{}{"id": id, "name": p.Name, "kind": kind},
		)
		if err != nil {
			logrus.Errorf("save group %s: %v", id, err)
			return fmt.Errorf("save group %s: %w", id, err)
		}

		for _, idx := range p.Members {
			_, err := session.Run(
				ctx,
				`
				MATCH (u:User {name: $name})
				MATCH (g:Group {id: $group_id})
				MERGE (u)-[:MEMBER_OF]->(g)
				`,
				map[string]interface{}{"name": dir.Names[idx], "group_id": id},
			)
			if err != nil {
				logrus.Errorf("save membership %s in %s: %v", dir.Names[idx], id, err)
				return fmt.Errorf("save membership %s in %s: %w", dir.Names[idx], id, err)
			}
		}

		for roleID, role := range p.Roles {
			_, err := session.Run(
				ctx,
				`
				MATCH (g:Group {id: $group_id})
				MERGE (r:Role {id: $id})
				SET r.name = $name, r.admin = $admin, r.moderator = $moderator
				MERGE (r)-[:IN]->(g)
				`,
				map[string]interface{}{
					"id":        roleID,
					"name":      role.Name,
					"admin":     role.IsAdmin,
					"moderator": role.IsModerator,
					"group_id":  id,
				},
			)
			if err != nil {
				logrus.Errorf("save role %s: %v", roleID, err)
				return fmt.Errorf("save role %s: %w", roleID, err)
			}

			for _, idx := range role.Members {
				_, err := session.Run(
					ctx,
					`
					MATCH (u:User {name: $name})
					MATCH (r:Role {id: $role_id})
					MERGE (u)-[:HOLDS]->(r)
					`,
					map[string]interface{}{"name": dir.Names[idx], "role_id": roleID},
				)
				if err != nil {
					logrus.Errorf("save role holder %s of %s: %v", dir.Names[idx], roleID, err)
					return fmt.Errorf("save role holder %s of %s: %w", dir.Names[idx], roleID, err)
				}
			}
		}
	}
	return nil
}

// RunQuery executes one of the canned report queries by name.
func (s *Neo4jStorage) RunQuery(ctx context.Context, queryName string) ([]map[string]interface{}, error) {
	query, exists := neo4jQueries[queryName]
	if !exists {
		return nil, fmt.Errorf("query %s not found", queryName)
	}

	session := s.Driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer func(session neo4j.SessionWithContext, ctx context.Context) {
		err := session.Close(ctx)
		if err != nil {
			logrus.Warnf("close session: %v", err)
		}
	}(session, ctx)

	result, err := session.Run(ctx, query, nil)
	if err != nil {
		return nil, err
	}

	var results []map[string]any
	for result.Next(ctx) {
		record := result.Record()
		recordMap := make(map[string]interface{})
		for _, key := range record.Keys {
			value, _ := record.Get(key)
			recordMap[key] = value
		}
		results = append(results, recordMap)
	}

	if err = result.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

func (s *Neo4jStorage) Ping(ctx context.Context) error {
	session := s.Driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer func() {
		if err := session.Close(ctx); err != nil {
			logrus.Warnf("close session: %v", err)
		}
	}()

	result, err := session.Run(ctx, "RETURN 1", nil)
	if err != nil {
		return fmt.Errorf("ping query failed: %w", err)
	}

	if result.Next(ctx) {
		return nil
	}
	if err = result.Err(); err != nil {
		return fmt.Errorf("ping query error: %w", err)
	}
	return fmt.Errorf("ping query did not return any results")
}
