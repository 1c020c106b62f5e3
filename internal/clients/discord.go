package clients

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pawkat/vrcroster/internal/config"
	"github.com/pawkat/vrcroster/internal/models"
)

// DiscordClient wraps the Discord bot REST API. Only plain REST calls are
// used; no gateway connection is opened.
type DiscordClient struct {
	session    *discordgo.Session
	limiter    *rate.Limiter
	attempts   int
	retryDelay time.Duration
}

func NewDiscordClient(token string) (*DiscordClient, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &DiscordClient{
		session:    session,
		limiter:    rate.NewLimiter(rate.Every(config.PacingInterval), 1),
		attempts:   config.MessageFetchAttempts,
		retryDelay: config.MessageFetchDelay,
	}, nil
}

// Server fetches one guild with its role definitions. Discord permission
// bits are mapped onto the marker strings the aggregator classifies by.
func (dc *DiscordClient) Server(ctx context.Context, serverID string) (models.ChatServer, error) {
	if err := dc.limiter.Wait(ctx); err != nil {
		return models.ChatServer{}, err
	}
	guild, err := dc.session.Guild(serverID, discordgo.WithContext(ctx))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"server_id": serverID,
			"error":     err,
		}).Error("Discord guild lookup failed")
		return models.ChatServer{}, fmt.Errorf("get guild %s: %w", serverID, err)
	}

	if err := dc.limiter.Wait(ctx); err != nil {
		return models.ChatServer{}, err
	}
	roles, err := dc.session.GuildRoles(serverID, discordgo.WithContext(ctx))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"server_id": serverID,
			"error":     err,
		}).Error("Discord role listing failed")
		return models.ChatServer{}, fmt.Errorf("list guild roles %s: %w", serverID, err)
	}

	server := models.ChatServer{ID: guild.ID, Name: guild.Name}
	for _, r := range roles {
		server.Roles = append(server.Roles, models.Role{
			ID:          r.ID,
			Name:        r.Name,
			Permissions: markerPermissions(r.Permissions),
		})
	}
	return server, nil
}

// markerPermissions projects Discord permission bits onto the two markers
// the aggregator checks: administrators carry the owner marker, and any
// kick/ban/timeout power carries the moderation marker.
func markerPermissions(bits int64) []string {
	var perms []string
	if bits&discordgo.PermissionAdministrator != 0 {
		perms = append(perms, models.PermissionOwner)
	}
	moderation := int64(discordgo.PermissionKickMembers |
		discordgo.PermissionBanMembers |
		discordgo.PermissionModerateMembers)
	if bits&moderation != 0 {
		perms = append(perms, models.PermissionModerate)
	}
	return perms
}

// ServerRoster lists every guild member, walking the after-paginated
// endpoint, and returns author ID → held role IDs.
func (dc *DiscordClient) ServerRoster(ctx context.Context, serverID string) (map[string][]string, error) {
	roster := make(map[string][]string)
	after := ""
	for {
		if err := dc.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, err := dc.session.GuildMembers(serverID, after, config.MemberPageSize, discordgo.WithContext(ctx))
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"server_id": serverID,
				"after":     after,
				"error":     err,
			}).Error("Discord member listing failed")
			return nil, fmt.Errorf("list guild members %s: %w", serverID, err)
		}
		for _, m := range page {
			if m.User == nil {
				continue
			}
			roster[m.User.ID] = m.Roles
			after = m.User.ID
		}
		if len(page) < config.MemberPageSize {
			break
		}
	}
	logrus.WithFields(logrus.Fields{
		"server_id": serverID,
		"members":   len(roster),
	}).Info("Fetched guild roster")
	return roster, nil
}

// ChannelMessages fetches the full history of one channel, oldest page
// last. Listing is the only retried upstream call: the whole walk is
// restarted up to the attempt ceiling with a fixed delay in between, and
// exhaustion aborts the run.
func (dc *DiscordClient) ChannelMessages(ctx context.Context, channelID string) ([]models.Message, error) {
	var lastErr error
	for attempt := 1; attempt <= dc.attempts; attempt++ {
		messages, err := dc.fetchHistory(ctx, channelID)
		if err == nil {
			logrus.WithFields(logrus.Fields{
				"channel_id": channelID,
				"messages":   len(messages),
			}).Info("Fetched channel history")
			return messages, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		logrus.WithFields(logrus.Fields{
			"channel_id": channelID,
			"attempt":    attempt,
			"error":      err,
		}).Warning("Channel history fetch failed, retrying")
		if attempt < dc.attempts {
			select {
			case <-time.After(dc.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("list channel messages %s: attempts exhausted: %w", channelID, lastErr)
}

func (dc *DiscordClient) fetchHistory(ctx context.Context, channelID string) ([]models.Message, error) {
	var messages []models.Message
	before := ""
	for {
		if err := dc.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, err := dc.session.ChannelMessages(channelID, config.MessagePageSize, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		for _, m := range page {
			if m.Author == nil {
				continue
			}
			messages = append(messages, models.Message{
				ID:        m.ID,
				AuthorID:  m.Author.ID,
				Text:      m.Content,
				Timestamp: m.Timestamp,
			})
			before = m.ID
		}
		if len(page) < config.MessagePageSize {
			break
		}
	}
	// pages arrive newest first; flip to chronological order so a larger
	// Seq always means a later message and can break equal-timestamp ties
	slices.Reverse(messages)
	for i := range messages {
		messages[i].Seq = i
	}
	return messages, nil
}
