// Package reconcile turns a channel's message history into a mapping from
// claimed VRChat user IDs to the Discord roles of the claiming author.
package reconcile

import (
	"github.com/sirupsen/logrus"

	"github.com/pawkat/vrcroster/internal/identity"
	"github.com/pawkat/vrcroster/internal/models"
)

// link is one identity claim recovered from a single message.
type link struct {
	VRChatID string
	AuthorID string
	Message  models.Message
}

// newer reports whether a was written after b. Equal timestamps fall back
// to the fetch insertion order so reconciliation stays deterministic even
// when the platform hands out identical timestamps.
func newer(a, b models.Message) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.Seq > b.Seq
}

// Reconcile maps each claimed VRChat user ID to the roles held by its
// claiming author. The policy is asymmetric on purpose: per author the
// newest claim wins (people re-link after changing accounts), but when two
// authors claim the same VRChat ID the oldest claim wins, so an already
// claimed ID cannot be hijacked by posting it again later.
//
// Authors absent from roster (typically members who left the server) are
// dropped silently.
func Reconcile(messages []models.Message, roster map[string][]string) map[string][]string {
	// Pass 1: newest claim per author.
	byAuthor := make(map[string]link)
	for _, msg := range messages {
		id, ok := identity.ExtractID(msg.Text)
		if !ok {
			continue
		}
		cur, seen := byAuthor[msg.AuthorID]
		if !seen || newer(msg, cur.Message) {
			byAuthor[msg.AuthorID] = link{VRChatID: id, AuthorID: msg.AuthorID, Message: msg}
		}
	}

	// Pass 2: oldest claim per VRChat ID wins on collision.
	byID := make(map[string]link)
	for _, l := range byAuthor {
		cur, seen := byID[l.VRChatID]
		if !seen || newer(cur.Message, l.Message) {
			byID[l.VRChatID] = l
		}
	}

	out := make(map[string][]string, len(byID))
	for id, l := range byID {
		roles, ok := roster[l.AuthorID]
		if !ok {
			logrus.WithFields(logrus.Fields{
				"author_id": l.AuthorID,
				"vrc_id":    id,
			}).Debug("claim author missing from roster, dropping link")
			continue
		}
		out[id] = roles
	}
	return out
}
