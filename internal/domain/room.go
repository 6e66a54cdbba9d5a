package domain

import (
	"errors"
	"strings"
	"time"
)

const maxRoomIDLength = 128

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrMemberNotFound = errors.New("member not found")
	ErrInvalidRoomID  = errors.New("invalid room id")
	ErrInvalidInput   = errors.New("invalid input")
)

// Room is materialised on the first join to an unseen id and is discarded by
// its owner as soon as Members becomes empty.
type Room struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Members   []Member  `json:"members"`
}

func NewRoom(id string) (*Room, error) {
	if err := ValidateRoomID(id); err != nil {
		return nil, err
	}

	return &Room{
		ID:        id,
		CreatedAt: time.Now(),
		Members:   make([]Member, 0, 4),
	}, nil
}

// ValidateRoomID only rejects ids that cannot be addressed at all; the id is
// otherwise opaque.
func ValidateRoomID(id string) error {
	if strings.TrimSpace(id) == "" || len(id) > maxRoomIDLength {
		return ErrInvalidRoomID
	}
	return nil
}

// AddMember appends m in join order. A member already present under the same
// connection id is updated in place and keeps its position.
func (r *Room) AddMember(m *Member) error {
	if m == nil || m.ConnectionID == "" {
		return ErrInvalidInput
	}

	m.RoomID = r.ID
	for i := range r.Members {
		if r.Members[i].ConnectionID == m.ConnectionID {
			r.Members[i].DisplayName = m.DisplayName
			return nil
		}
	}

	r.Members = append(r.Members, *m)
	return nil
}

func (r *Room) FindMember(connectionID string) *Member {
	for i := range r.Members {
		if r.Members[i].ConnectionID == connectionID {
			m := r.Members[i]
			return &m
		}
	}
	return nil
}

func (r *Room) IsMember(connectionID string) bool {
	return r.FindMember(connectionID) != nil
}

// RemoveMember keeps the remaining members in join order.
func (r *Room) RemoveMember(connectionID string) (*Member, error) {
	for i := range r.Members {
		if r.Members[i].ConnectionID == connectionID {
			removed := r.Members[i]
			r.Members = append(r.Members[:i], r.Members[i+1:]...)
			return &removed, nil
		}
	}
	return nil, ErrMemberNotFound
}

func (r *Room) IsEmpty() bool {
	return len(r.Members) == 0
}

// Snapshot returns a copy of the member list safe to hand to other goroutines.
func (r *Room) Snapshot() []Member {
	cpy := make([]Member, len(r.Members))
	copy(cpy, r.Members)
	return cpy
}
