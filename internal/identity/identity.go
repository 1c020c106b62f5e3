// Package identity recovers VRChat user IDs embedded in free-form chat
// messages. Members link their accounts by pasting their own user ID
// (usr_<uuid>) anywhere in a message.
package identity

import (
	"strings"

	"github.com/google/uuid"
)

// IDPrefix precedes every VRChat user ID.
const IDPrefix = "usr_"

// uuidLen is the length of the canonical textual UUID form.
const uuidLen = 36

// ExtractID scans text for an embedded VRChat user ID and returns it
// normalized to lowercase. The last occurrence of the prefix wins, so the
// trailing mention in a message overrides earlier ones. A prefix followed
// by a malformed UUID yields absence, not an error.
func ExtractID(text string) (string, bool) {
	at := strings.LastIndex(text, IDPrefix)
	if at < 0 {
		return "", false
	}

	body := text[at+len(IDPrefix):]
	if len(body) < uuidLen {
		return "", false
	}
	body = body[:uuidLen]

	parsed, err := uuid.Parse(body)
	if err != nil {
		return "", false
	}

	return IDPrefix + parsed.String(), true
}
