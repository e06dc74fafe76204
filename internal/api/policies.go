package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coldaisle/hvac-edge/internal/policy"
)

// handleListRoomPolicies returns every policy registered for a room.
func (s *Server) handleListRoomPolicies(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room")
	eng, ok := s.engine(roomID)
	if !ok {
		writeNotFound(w, "unknown room")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"room_id":  roomID,
		"policies": eng.Policies(),
	})
}

// handleCreateRoomPolicy adds a policy to a room. The room in the URL is
// authoritative; a mismatching room_id in the body is rejected by the engine.
func (s *Server) handleCreateRoomPolicy(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room")
	eng, ok := s.engine(roomID)
	if !ok {
		writeNotFound(w, "unknown room")
		return
	}

	var p policy.Policy
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if p.Type == "" {
		p.Type = policy.TypeRoom
	}
	if p.RoomID == "" {
		p.RoomID = roomID
	}

	s.createPolicy(w, eng, p)
}

// handleListDevicePolicies returns the policies targeting one rack-scoped
// smart object.
func (s *Server) handleListDevicePolicies(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room")
	rackID := chi.URLParam(r, "rack")
	objectID := chi.URLParam(r, "object")

	eng, ok := s.engine(roomID)
	if !ok {
		writeNotFound(w, "unknown room")
		return
	}

	policies := make([]policy.Policy, 0)
	for _, p := range eng.Policies() {
		if p.RackID == rackID && p.ObjectID == objectID {
			policies = append(policies, p)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"room_id":   roomID,
		"rack_id":   rackID,
		"object_id": objectID,
		"policies":  policies,
	})
}

// handleCreateDevicePolicy adds a smart-object policy. Identity fields come
// from the URL; the body supplies condition, sensor binding, and command.
func (s *Server) handleCreateDevicePolicy(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room")
	eng, ok := s.engine(roomID)
	if !ok {
		writeNotFound(w, "unknown room")
		return
	}

	var p policy.Policy
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	p.Type = policy.TypeSmartObject
	p.RoomID = roomID
	p.RackID = chi.URLParam(r, "rack")
	p.ObjectID = chi.URLParam(r, "object")

	s.createPolicy(w, eng, p)
}

// handleCreatePolicy adds a policy to whichever room the body names.
func (s *Server) handleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	var p policy.Policy
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	eng, ok := s.engine(p.RoomID)
	if !ok {
		writeNotFound(w, "unknown room")
		return
	}

	s.createPolicy(w, eng, p)
}

// createPolicy runs the engine mutation and maps errors onto HTTP statuses.
func (s *Server) createPolicy(w http.ResponseWriter, eng *policy.Engine, p policy.Policy) {
	created, err := eng.AddPolicy(p)
	if err != nil {
		writePolicyError(w, err)
		return
	}

	s.logger.Info("policy created",
		"policy_id", created.ID,
		"room_id", created.RoomID,
		"type", created.Type,
	)
	writeJSON(w, http.StatusCreated, created)
}

// handleUpdatePolicy replaces a policy in place. The policy ID comes from
// the body's id field.
func (s *Server) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room")
	eng, ok := s.engine(roomID)
	if !ok {
		writeNotFound(w, "unknown room")
		return
	}

	var p policy.Policy
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if p.ID == "" {
		writeBadRequest(w, "policy id is required")
		return
	}
	if p.RoomID == "" {
		p.RoomID = roomID
	}

	updated, err := eng.UpdatePolicy(p.ID, p)
	if err != nil {
		writePolicyError(w, err)
		return
	}

	s.logger.Info("policy updated", "policy_id", updated.ID, "room_id", roomID)
	writeJSON(w, http.StatusOK, updated)
}

// handleDeletePolicy removes a policy. The policy ID comes from the "id"
// query parameter.
func (s *Server) handleDeletePolicy(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room")
	eng, ok := s.engine(roomID)
	if !ok {
		writeNotFound(w, "unknown room")
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		writeBadRequest(w, "id query parameter is required")
		return
	}

	if err := eng.DeletePolicy(id); err != nil {
		writePolicyError(w, err)
		return
	}

	s.logger.Info("policy deleted", "policy_id", id, "room_id", roomID)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// writePolicyError maps policy engine errors onto HTTP statuses: validation
// problems are the caller's fault (400), unknown IDs are 404.
func writePolicyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, policy.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, policy.ErrValidation),
		errors.Is(err, policy.ErrInvalidOperator),
		errors.Is(err, policy.ErrWrongRoom):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
