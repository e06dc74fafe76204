package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleRoomEvents returns the recent control events for a room, newest
// first. Limit is set with the "limit" query parameter and clamped by the
// history store.
func (s *Server) handleRoomEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeNotFound(w, "event history is disabled")
		return
	}

	roomID := chi.URLParam(r, "room")
	if _, ok := s.room(roomID); !ok {
		writeNotFound(w, "unknown room")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	events, err := s.events.RoomEvents(r.Context(), roomID, limit)
	if err != nil {
		s.logger.Error("event history query failed", "room_id", roomID, "error", err)
		writeInternalError(w, "event history query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"room_id": roomID,
		"count":   len(events),
		"events":  events,
	})
}
