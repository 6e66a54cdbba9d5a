package rooms

import "time"

type createRoomResponse struct {
	RoomID string `json:"roomId" example:"2b1f6a52-7f0e-4a4c-9a43-5a4f2b3b1c9e"`
}

type memberResponse struct {
	ConnectionID string    `json:"connectionId"`
	DisplayName  string    `json:"displayName"`
	JoinedAt     time.Time `json:"joinedAt"`
}

type roomResponse struct {
	ID          string           `json:"id"`
	CreatedAt   time.Time        `json:"createdAt"`
	MemberCount int              `json:"memberCount"`
	Members     []memberResponse `json:"members"`
}

type auditLogResponse struct {
	ID        string         `json:"id"`
	EventType string         `json:"eventType"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type roomAuditResponse struct {
	RoomID string             `json:"roomId"`
	Events []auditLogResponse `json:"events"`
}
