package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pawkat/vrcroster/internal/aggregate"
	"github.com/pawkat/vrcroster/internal/models"
	"github.com/pawkat/vrcroster/internal/reconcile"
	"github.com/pawkat/vrcroster/internal/snapshot"
)

type VRChatAPI interface {
	Login(ctx context.Context) (models.User, error)
	Group(ctx context.Context, groupID string) (models.Group, error)
	GroupMembers(ctx context.Context, groupID string) ([]models.GroupMember, error)
	User(ctx context.Context, userID string) (models.User, error)
	World(ctx context.Context, worldID string) (models.World, error)
}

type ChatAPI interface {
	Server(ctx context.Context, serverID string) (models.ChatServer, error)
	ServerRoster(ctx context.Context, serverID string) (map[string][]string, error)
	ChannelMessages(ctx context.Context, channelID string) ([]models.Message, error)
}

type SnapshotSink interface {
	Write(ctx context.Context, doc *snapshot.Document) error
}

type GraphStore interface {
	SaveDirectory(ctx context.Context, dir *aggregate.Directory) error
	RunQuery(ctx context.Context, queryName string) ([]map[string]interface{}, error)
}

// RunConfig names the tracked entities. ServerIDs and ChannelIDs are
// parallel arrays: ChannelIDs[i] is the link channel of ServerIDs[i].
type RunConfig struct {
	GroupIDs   []string
	WorldIDs   []string
	ServerIDs  []string
	ChannelIDs []string
}

type App struct {
	vrchat VRChatAPI
	chat   ChatAPI
	sink   SnapshotSink
	graph  GraphStore // nil disables the graph export
}

func NewApp(vrchat VRChatAPI, chat ChatAPI, sink SnapshotSink, graph GraphStore) *App {
	return &App{vrchat: vrchat, chat: chat, sink: sink, graph: graph}
}

// Run executes one full collection pass: VRChat groups, Discord servers,
// reconciliation, aggregation, snapshot write and the optional graph
// export. Any upstream error aborts the run before a snapshot is written.
func (a *App) Run(ctx context.Context, cfg RunConfig) error {
	if len(cfg.ServerIDs) != len(cfg.ChannelIDs) {
		return fmt.Errorf("config: %d servers but %d channels", len(cfg.ServerIDs), len(cfg.ChannelIDs))
	}

	me, err := a.vrchat.Login(ctx)
	if err != nil {
		return fmt.Errorf("vrchat login: %w", err)
	}

	groups, err := a.collectGroups(ctx, cfg.GroupIDs, me)
	if err != nil {
		return err
	}

	servers, err := a.collectServers(ctx, cfg.ServerIDs, cfg.ChannelIDs)
	if err != nil {
		return err
	}

	worlds, err := a.collectWorlds(ctx, cfg.WorldIDs)
	if err != nil {
		return err
	}

	logrus.Info("Aggregating directory")
	dir := aggregate.Build(groups, servers)
	doc := snapshot.Assemble(dir, worlds)

	if err := a.sink.Write(ctx, doc); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	if a.graph != nil {
		logrus.Info("Exporting directory graph")
		if err := a.graph.SaveDirectory(ctx, dir); err != nil {
			return fmt.Errorf("graph export: %w", err)
		}
	}
	return nil
}

// collectGroups fetches every tracked VRChat group. The authenticated user
// must be a member of each one: the members endpoint omits the caller, so
// membership is both the access check and the reason the caller gets
// appended to the roster by hand.
func (a *App) collectGroups(ctx context.Context, groupIDs []string, me models.User) ([]models.Group, error) {
	var groups []models.Group
	for _, groupID := range groupIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		group, err := a.vrchat.Group(ctx, groupID)
		if err != nil {
			return nil, err
		}
		if !group.IsMember {
			return nil, fmt.Errorf("group %s: authenticated user %s is not a member", groupID, me.DisplayName)
		}

		members, err := a.vrchat.GroupMembers(ctx, groupID)
		if err != nil {
			return nil, err
		}
		group.Members = append(members, models.GroupMember{
			UserID:      me.ID,
			DisplayName: me.DisplayName,
			RoleIDs:     group.MyRoles,
		})

		logrus.WithFields(logrus.Fields{
			"group_id": groupID,
			"name":     group.Name,
			"members":  len(group.Members),
		}).Info("Collected group")
		groups = append(groups, group)
	}
	return groups, nil
}

// collectServers fetches each Discord guild, reconciles its link channel's
// history against the guild roster and resolves the surviving VRChat IDs
// to display names.
func (a *App) collectServers(ctx context.Context, serverIDs, channelIDs []string) ([]models.ChatServer, error) {
	var servers []models.ChatServer
	for i, serverID := range serverIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		server, err := a.chat.Server(ctx, serverID)
		if err != nil {
			return nil, err
		}
		roster, err := a.chat.ServerRoster(ctx, serverID)
		if err != nil {
			return nil, err
		}
		messages, err := a.chat.ChannelMessages(ctx, channelIDs[i])
		if err != nil {
			return nil, err
		}

		linked := reconcile.Reconcile(messages, roster)

		server.Members = make(map[string][]string, len(linked))
		for vrcID, roleIDs := range linked {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			user, err := a.vrchat.User(ctx, vrcID)
			if err != nil {
				return nil, err
			}
			server.Members[user.DisplayName] = roleIDs
		}

		logrus.WithFields(logrus.Fields{
			"server_id": serverID,
			"name":      server.Name,
			"linked":    len(server.Members),
		}).Info("Collected server")
		servers = append(servers, server)
	}
	return servers, nil
}

func (a *App) collectWorlds(ctx context.Context, worldIDs []string) ([]models.World, error) {
	var worlds []models.World
	for _, worldID := range worldIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		world, err := a.vrchat.World(ctx, worldID)
		if err != nil {
			return nil, err
		}
		worlds = append(worlds, world)
	}
	return worlds, nil
}

// Report runs one canned graph query and logs its rows.
func (a *App) Report(ctx context.Context, queryName string) error {
	if a.graph == nil {
		return fmt.Errorf("query %s: graph storage is not configured", queryName)
	}
	logrus.Infof("Run query: %s", queryName)
	results, err := a.graph.RunQuery(ctx, queryName)
	if err != nil {
		return fmt.Errorf("run query: %w", err)
	}
	for _, result := range results {
		logrus.Info(result)
	}
	return nil
}
