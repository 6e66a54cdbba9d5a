package rooms

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hilthontt/collaby/internal/domain"
	"github.com/hilthontt/collaby/internal/infrastructure/json"
	"github.com/hilthontt/collaby/internal/infrastructure/logging"
	"github.com/hilthontt/collaby/internal/infrastructure/ws"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

var errAuditDisabled = errors.New("audit log is disabled")

type Handler struct {
	core          *ws.Core
	audit         domain.RoomAuditRepository
	clientOptions ws.ClientOptions
	logger        logging.Logger
}

// NewHandler accepts a nil audit repository when the journal is off.
func NewHandler(
	core *ws.Core,
	audit domain.RoomAuditRepository,
	clientOptions ws.ClientOptions,
	logger logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Handler{
		core:          core,
		audit:         audit,
		clientOptions: clientOptions,
		logger:        logger,
	}
}

// CreateRoomHandler godoc
// @Summary      Generate a room id
// @Description  Returns a fresh room id. The room itself comes into existence on the first join.
// @Tags         rooms
// @Produce      json
// @Success      201 {object} createRoomResponse "Room id generated"
// @Router       /api/rooms [post]
func (h *Handler) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	json.Write(w, http.StatusCreated, createRoomResponse{RoomID: uuid.NewString()})
}

// GetRoomHandler godoc
// @Summary      Get room membership
// @Description  Returns the current members of a room in join order
// @Tags         rooms
// @Produce      json
// @Param        roomId path string true "Room ID"
// @Success      200 {object} roomResponse "Room snapshot"
// @Failure      400 {object} json.ErrorResponse "Invalid room id"
// @Failure      404 {object} json.ErrorResponse "Room not found"
// @Router       /api/rooms/{roomId} [get]
func (h *Handler) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if err := domain.ValidateRoomID(roomID); err != nil {
		json.WriteDomainError(w, err)
		return
	}

	room, ok := h.core.Rooms().GetRoom(roomID)
	if !ok {
		json.WriteDomainError(w, domain.ErrRoomNotFound)
		return
	}

	members := make([]memberResponse, 0, len(room.Members))
	for _, m := range room.Members {
		members = append(members, memberResponse{
			ConnectionID: m.ConnectionID,
			DisplayName:  m.DisplayName,
			JoinedAt:     m.JoinedAt,
		})
	}

	json.Write(w, http.StatusOK, roomResponse{
		ID:          room.ID,
		CreatedAt:   room.CreatedAt,
		MemberCount: len(members),
		Members:     members,
	})
}

// GetRoomAuditHandler godoc
// @Summary      Get room audit log
// @Description  Returns the most recent membership events recorded for a room
// @Tags         rooms
// @Produce      json
// @Param        roomId path string true "Room ID"
// @Param        limit query int false "Maximum number of events" default(50)
// @Param        event query string false "Only this event type" Enums(room_created, room_destroyed, member_joined, member_left)
// @Success      200 {object} roomAuditResponse "Audit events, newest first"
// @Failure      400 {object} json.ErrorResponse "Invalid room id, limit or event type"
// @Failure      501 {object} json.ErrorResponse "Audit log is disabled"
// @Failure      500 {object} json.ErrorResponse "Internal server error"
// @Router       /api/rooms/{roomId}/audit [get]
func (h *Handler) GetRoomAuditHandler(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		json.WriteError(w, http.StatusNotImplemented, errAuditDisabled.Error())
		return
	}

	roomID := chi.URLParam(r, "roomId")
	if err := domain.ValidateRoomID(roomID); err != nil {
		json.WriteDomainError(w, err)
		return
	}

	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxAuditLimit {
			json.WriteBadRequestError(w, "limit must be between 1 and "+strconv.Itoa(maxAuditLimit))
			return
		}
		limit = n
	}

	var (
		logs []domain.RoomAuditLog
		err  error
	)
	if raw := r.URL.Query().Get("event"); raw != "" {
		eventType, perr := domain.ParseRoomEventType(raw)
		if perr != nil {
			json.WriteDomainError(w, perr)
			return
		}
		logs, err = h.audit.GetByEventType(r.Context(), roomID, eventType, limit)
	} else {
		logs, err = h.audit.GetByRoomID(r.Context(), roomID, limit)
	}
	if err != nil {
		h.logger.Error(logging.MongoDB, logging.Audit, "failed to read audit log", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ErrorMessage: err.Error(),
		})
		json.WriteDomainError(w, err)
		return
	}

	events := make([]auditLogResponse, 0, len(logs))
	for _, l := range logs {
		events = append(events, auditLogResponse{
			ID:        l.ID,
			EventType: string(l.EventType),
			Timestamp: l.Timestamp,
			Metadata:  l.Metadata,
		})
	}

	json.Write(w, http.StatusOK, roomAuditResponse{RoomID: roomID, Events: events})
}

// ServeWS godoc
// @Summary      Open a room channel
// @Description  Upgrades to a websocket. The first frame is {"type":"connected"} carrying the connection id; send {"type":"join"} to enter a room.
// @Tags         rooms
// @Success      101 "Switching Protocols"
// @Failure      400 {object} json.ErrorResponse "Not a websocket handshake"
// @Router       /ws [get]
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.core.Rooms().Upgrade(w, r)
	if err != nil {
		// The upgrader already answered the request.
		h.logger.Warn(logging.WebSocket, logging.Connect, "websocket upgrade failed", map[logging.ExtraKey]any{
			logging.ClientIp:     r.RemoteAddr,
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	client := ws.NewClient(conn, h.clientOptions, h.logger)
	if !h.core.Register(client) {
		client.Close()
		return
	}

	go client.WriteMessage()
	go client.ReadMessage(h.core)
}
