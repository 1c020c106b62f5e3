package config

import "time"

const DefaultEnvFile = ".env"

// VRChat web API.
const (
	VRChatBaseURL   = "https://api.vrchat.cloud/api/1"
	VRChatUserAgent = "vrcroster/1.0 (group roster snapshot bot)"
)

// SnapshotFilename is the fixed name of the output document inside the
// configured output directory.
const SnapshotFilename = "roster.json"

// Page sizes for the paginated listing endpoints.
const (
	MemberPageSize  = 100
	MessagePageSize = 100
)

// Message history listing is the only retried call. Every other upstream
// call gets one attempt.
const (
	MessageFetchAttempts = 3
	MessageFetchDelay    = 5 * time.Second
)

// PacingInterval is the fixed delay issued between consecutive upstream
// calls to stay under the platforms' rate limits.
const PacingInterval = time.Second
