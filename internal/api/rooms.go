package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/coldaisle/hvac-edge/internal/device"
)

// handleListRooms returns a summary of every room.
func (s *Server) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rooms := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		rooms = append(rooms, s.rooms[id].Describe())
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(rooms),
		"rooms": rooms,
	})
}

// handleGetRoom returns the full device tree for one room.
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.room(chi.URLParam(r, "room"))
	if !ok {
		writeNotFound(w, "unknown room")
		return
	}
	writeJSON(w, http.StatusOK, rm.Describe())
}

// handleGetRack returns one rack with its smart objects.
func (s *Server) handleGetRack(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.room(chi.URLParam(r, "room"))
	if !ok {
		writeNotFound(w, "unknown room")
		return
	}
	rack, ok := rm.Rack(chi.URLParam(r, "rack"))
	if !ok {
		writeNotFound(w, "unknown rack")
		return
	}
	writeJSON(w, http.StatusOK, rack.Describe())
}

// rackStatusRequest is the body for PUT rack status.
type rackStatusRequest struct {
	Status string `json:"status"`
}

// handleSetRackStatus switches a rack ON or OFF. Turning a rack OFF makes
// every contained actuator refuse commands until switched back ON.
func (s *Server) handleSetRackStatus(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.room(chi.URLParam(r, "room"))
	if !ok {
		writeNotFound(w, "unknown room")
		return
	}
	rack, ok := rm.Rack(chi.URLParam(r, "rack"))
	if !ok {
		writeNotFound(w, "unknown rack")
		return
	}

	var req rackStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := rack.SetStatus(req.Status); err != nil {
		if errors.Is(err, device.ErrInvalidStatus) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, err.Error())
		return
	}

	s.logger.Info("rack status changed",
		"room_id", rm.RoomID,
		"rack_id", rack.RackID,
		"status", rack.Status(),
	)
	writeJSON(w, http.StatusOK, rack.Describe())
}
