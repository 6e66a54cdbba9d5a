package ws

// Protocol events.
const (
	Connected    = "connected"
	Join         = "join"
	Joined       = "joined"
	Disconnected = "disconnected"
	SyncCode     = "sync-code"
	CodeChange   = "code-change"
)

// Error events. Always addressed to a single connection.
const (
	ErrorEvent  = "error"
	JoinFailed  = "error.join"
	RateLimited = "error.rate_limited"
)
