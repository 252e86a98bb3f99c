package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"cookplane/internal/room"
	"cookplane/internal/store"
	"cookplane/pkg/api"

	"github.com/google/uuid"
)

// CreateRoom handles POST /rooms.
// The creator is auto-joined as the first participant.
func (h *Handlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req api.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest, api.CodeValidation)
		return
	}

	created, err := h.rooms.Create(r.Context(), userID, room.CreateParams{
		Name:            req.Name,
		MaxParticipants: req.MaxParticipants,
		IsPublic:        req.IsPublic,
		Password:        req.Password,
		ScheduledStart:  req.ScheduledStart,
	})
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.respondJson(w, http.StatusCreated, toRoomResponse(created))
}

// JoinRoom handles POST /rooms/join.
// Rooms are joined by code, never by ID.
func (h *Handlers) JoinRoom(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req api.JoinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest, api.CodeValidation)
		return
	}
	if req.Code == "" {
		h.httpError(w, "Code is required", http.StatusBadRequest, api.CodeValidation)
		return
	}

	var sessionID *uuid.UUID
	if req.SessionID != nil {
		id, err := uuid.Parse(*req.SessionID)
		if err != nil {
			h.httpError(w, "Invalid session_id", http.StatusBadRequest, api.CodeValidation)
			return
		}
		sessionID = &id
	}

	roomID, err := h.rooms.JoinByCode(r.Context(), userID, req.Code, req.Password, sessionID, req.RecipeName)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.respondJson(w, http.StatusOK, api.JoinRoomResponse{RoomID: roomID.String()})
}

// LeaveRoom handles POST /rooms/{id}/leave.
func (h *Handlers) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	roomID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.rooms.Leave(r.Context(), userID, roomID); err != nil {
		h.serviceError(w, err)
		return
	}
	h.respondJson(w, http.StatusNoContent, nil)
}

// UpdateActivity handles PUT /rooms/{id}/activity.
// This is the participant heartbeat.
func (h *Handlers) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	roomID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req api.UpdateActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest, api.CodeValidation)
		return
	}

	if err := h.rooms.UpdateActivity(r.Context(), userID, roomID, req.CurrentStep, req.EnergyLevel); err != nil {
		h.serviceError(w, err)
		return
	}
	h.respondJson(w, http.StatusNoContent, nil)
}

// GetRoom handles GET /rooms/{id}.
func (h *Handlers) GetRoom(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	roomID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	got, err := h.rooms.GetRoom(r.Context(), userID, roomID)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.respondJson(w, http.StatusOK, toRoomResponse(got))
}

// ListParticipants handles GET /rooms/{id}/participants.
func (h *Handlers) ListParticipants(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	roomID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	participants, err := h.rooms.Participants(r.Context(), userID, roomID)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	resp := api.ListParticipantsResponse{Participants: make([]api.ParticipantResponse, 0, len(participants))}
	for _, p := range participants {
		resp.Participants = append(resp.Participants, toParticipantResponse(p))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// ListRooms handles GET /rooms.
// Only active public rooms are listed.
func (h *Handlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r); !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	rooms, err := h.rooms.ListPublic(r.Context(), limit, offset)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	resp := api.ListRoomsResponse{Rooms: make([]api.RoomResponse, 0, len(rooms))}
	for _, rm := range rooms {
		resp.Rooms = append(resp.Rooms, toRoomResponse(rm))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// EndRoom handles POST /rooms/{id}/end.
// Only the creator may end a room.
func (h *Handlers) EndRoom(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	roomID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.rooms.End(r.Context(), userID, roomID); err != nil {
		h.serviceError(w, err)
		return
	}
	h.respondJson(w, http.StatusNoContent, nil)
}

func toRoomResponse(rm *store.BodyDoublingRoom) api.RoomResponse {
	return api.RoomResponse{
		ID:              rm.ID.String(),
		Name:            rm.Name,
		Code:            rm.Code,
		MaxParticipants: rm.MaxParticipants,
		IsPublic:        rm.IsPublic,
		HasPassword:     rm.PasswordHash != nil,
		Status:          string(rm.Status),
		ScheduledStart:  rm.ScheduledStart,
		CreatedAt:       rm.CreatedAt,
	}
}

func toParticipantResponse(p *store.Participant) api.ParticipantResponse {
	resp := api.ParticipantResponse{
		UserID:         p.UserID.String(),
		RecipeName:     p.RecipeName,
		IsActive:       p.IsActive,
		CurrentStep:    p.CurrentStep,
		EnergyLevel:    p.EnergyLevel,
		JoinedAt:       p.JoinedAt,
		LeftAt:         p.LeftAt,
		LastActivityAt: p.LastActivityAt,
	}
	if p.SessionID != nil {
		id := p.SessionID.String()
		resp.SessionID = &id
	}
	return resp
}
