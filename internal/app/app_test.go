package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawkat/vrcroster/internal/models"
	"github.com/pawkat/vrcroster/internal/snapshot"
)

const linkedID = "usr_8a12f6cc-3b3c-47ff-a27e-5d0a9d2cb634"

type fakeVRChat struct {
	me       models.User
	groups   map[string]models.Group
	members  map[string][]models.GroupMember
	users    map[string]models.User
	worlds   map[string]models.World
	loginErr error
	calls    int
}

func (f *fakeVRChat) Login(ctx context.Context) (models.User, error) {
	f.calls++
	if f.loginErr != nil {
		return models.User{}, f.loginErr
	}
	return f.me, nil
}

func (f *fakeVRChat) Group(ctx context.Context, groupID string) (models.Group, error) {
	f.calls++
	g, ok := f.groups[groupID]
	if !ok {
		return models.Group{}, errors.New("group not found")
	}
	return g, nil
}

func (f *fakeVRChat) GroupMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	f.calls++
	return f.members[groupID], nil
}

func (f *fakeVRChat) User(ctx context.Context, userID string) (models.User, error) {
	f.calls++
	u, ok := f.users[userID]
	if !ok {
		return models.User{}, errors.New("user not found")
	}
	return u, nil
}

func (f *fakeVRChat) World(ctx context.Context, worldID string) (models.World, error) {
	f.calls++
	return f.worlds[worldID], nil
}

type fakeChat struct {
	server   models.ChatServer
	roster   map[string][]string
	messages []models.Message
	msgErr   error
	calls    int
}

func (f *fakeChat) Server(ctx context.Context, serverID string) (models.ChatServer, error) {
	f.calls++
	return f.server, nil
}

func (f *fakeChat) ServerRoster(ctx context.Context, serverID string) (map[string][]string, error) {
	f.calls++
	return f.roster, nil
}

func (f *fakeChat) ChannelMessages(ctx context.Context, channelID string) ([]models.Message, error) {
	f.calls++
	if f.msgErr != nil {
		return nil, f.msgErr
	}
	return f.messages, nil
}

type captureSink struct {
	doc *snapshot.Document
}

func (c *captureSink) Write(ctx context.Context, doc *snapshot.Document) error {
	c.doc = doc
	return nil
}

func fixtures() (*fakeVRChat, *fakeChat) {
	vrc := &fakeVRChat{
		me: models.User{ID: "usr_me", DisplayName: "Operator"},
		groups: map[string]models.Group{
			"grp_1": {
				ID:       "grp_1",
				Name:     "Night Owls",
				IsMember: true,
				MyRoles:  []string{"owner"},
				Roles: []models.Role{
					{ID: "owner", Name: "Owner", Permissions: []string{models.PermissionOwner}},
					{ID: "member", Name: "Member"},
				},
			},
		},
		members: map[string][]models.GroupMember{
			"grp_1": {
				{UserID: "usr_z", DisplayName: "Zed", RoleIDs: []string{"member"}},
			},
		},
		users: map[string]models.User{
			linkedID: {ID: linkedID, DisplayName: "Zed"},
		},
		worlds: map[string]models.World{
			"wrld_1": {ID: "wrld_1", Name: "Rooftop", Visits: 5},
		},
	}
	chat := &fakeChat{
		server: models.ChatServer{
			ID:   "srv_1",
			Name: "The Hangout",
			Roles: []models.Role{
				{ID: "r1", Name: "Linked"},
			},
		},
		roster: map[string][]string{"discord_zed": {"r1"}},
		messages: []models.Message{
			{
				AuthorID:  "discord_zed",
				Text:      "my id: " + linkedID,
				Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			},
		},
	}
	return vrc, chat
}

func TestRunEndToEnd(t *testing.T) {
	vrc, chat := fixtures()
	sink := &captureSink{}
	a := NewApp(vrc, chat, sink, nil)

	err := a.Run(context.Background(), RunConfig{
		GroupIDs:   []string{"grp_1"},
		WorldIDs:   []string{"wrld_1"},
		ServerIDs:  []string{"srv_1"},
		ChannelIDs: []string{"chan_1"},
	})
	require.NoError(t, err)
	require.NotNil(t, sink.doc)

	doc := sink.doc
	// the operator is appended to the group roster by hand
	assert.Equal(t, []string{"Operator", "Zed"}, doc.VRCUserDisplayNames)

	group := doc.VRCGroupsByID["grp_1"]
	assert.Equal(t, "Night Owls", group.Name)
	assert.Equal(t, []int{0, 1}, group.VRCUsers)
	assert.Equal(t, []int{0}, group.Roles["owner"].VRCUsers)
	assert.Equal(t, []int{1}, group.Roles["member"].VRCUsers)

	server := doc.DiscordServersByID["srv_1"]
	assert.Equal(t, []int{1}, server.VRCUsers)
	assert.Equal(t, []int{1}, server.Roles["r1"].VRCUsers)

	assert.Equal(t, "Rooftop", doc.VRCWorldsByID["wrld_1"].Name)
}

func TestRunRejectsMismatchedServerChannelLists(t *testing.T) {
	vrc, chat := fixtures()
	sink := &captureSink{}
	a := NewApp(vrc, chat, sink, nil)

	err := a.Run(context.Background(), RunConfig{
		ServerIDs:  []string{"srv_1", "srv_2"},
		ChannelIDs: []string{"chan_1"},
	})
	require.Error(t, err)
	// detected before any upstream call
	assert.Zero(t, vrc.calls)
	assert.Zero(t, chat.calls)
	assert.Nil(t, sink.doc)
}

func TestRunFailsWhenNotGroupMember(t *testing.T) {
	vrc, chat := fixtures()
	g := vrc.groups["grp_1"]
	g.IsMember = false
	vrc.groups["grp_1"] = g

	sink := &captureSink{}
	a := NewApp(vrc, chat, sink, nil)

	err := a.Run(context.Background(), RunConfig{GroupIDs: []string{"grp_1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a member")
	assert.Nil(t, sink.doc)
}

func TestRunWritesNoSnapshotOnUpstreamError(t *testing.T) {
	vrc, chat := fixtures()
	chat.msgErr = errors.New("listing failed")

	sink := &captureSink{}
	a := NewApp(vrc, chat, sink, nil)

	err := a.Run(context.Background(), RunConfig{
		ServerIDs:  []string{"srv_1"},
		ChannelIDs: []string{"chan_1"},
	})
	require.Error(t, err)
	assert.Nil(t, sink.doc)
}

func TestRunDropsUnresolvableLinkSilently(t *testing.T) {
	vrc, chat := fixtures()
	// the claim author left the server between claiming and this run
	chat.roster = map[string][]string{}

	sink := &captureSink{}
	a := NewApp(vrc, chat, sink, nil)

	err := a.Run(context.Background(), RunConfig{
		ServerIDs:  []string{"srv_1"},
		ChannelIDs: []string{"chan_1"},
	})
	require.NoError(t, err)
	require.NotNil(t, sink.doc)
	assert.Empty(t, sink.doc.DiscordServersByID["srv_1"].VRCUsers)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	vrc, chat := fixtures()
	sink := &captureSink{}
	a := NewApp(vrc, chat, sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.Run(ctx, RunConfig{GroupIDs: []string{"grp_1"}})
	require.Error(t, err)
	assert.Nil(t, sink.doc)
}
