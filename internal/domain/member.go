package domain

import (
	"strings"
	"time"
)

// DefaultDisplayName is used when a member joins without a name.
const DefaultDisplayName = "anonymous"

type Member struct {
	ConnectionID string    `json:"connectionId"`
	DisplayName  string    `json:"displayName"`
	RoomID       string    `json:"roomId"`
	JoinedAt     time.Time `json:"joinedAt"`
}

// NewMember never fails: display names are neither unique nor validated.
func NewMember(connectionID, displayName, roomID string) *Member {
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = DefaultDisplayName
	}

	return &Member{
		ConnectionID: connectionID,
		DisplayName:  name,
		RoomID:       roomID,
		JoinedAt:     time.Now(),
	}
}
