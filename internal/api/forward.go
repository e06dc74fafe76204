package api

import (
	"encoding/json"
	"net/http"

	"github.com/plgd-dev/go-coap/v3/message/codes"

	"github.com/coldaisle/hvac-edge/internal/policy"
)

// handleProxyForward relays a logical device command into the CoAP gateway's
// forward resource and maps the upstream CoAP reply onto HTTP.
func (s *Server) handleProxyForward(w http.ResponseWriter, r *http.Request) {
	if s.forward == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "gateway forwarding not configured")
		return
	}

	var req policy.ForwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.ObjectID == "" || req.RoomID == "" || len(req.Command) == 0 {
		writeBadRequest(w, "object_id, room_id and command are required")
		return
	}

	resp, err := s.forward.Exchange(r.Context(), req)
	if err != nil {
		s.logger.Error("gateway forward failed", "object_id", req.ObjectID, "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeBadGateway, err.Error())
		return
	}

	status := httpStatusFromCoAP(resp.Code)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if len(resp.Payload) > 0 {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		w.Write(resp.Payload)
	}
}

// httpStatusFromCoAP maps the gateway's CoAP response codes onto their
// nearest HTTP equivalents.
func httpStatusFromCoAP(code codes.Code) int {
	switch code {
	case codes.Created:
		return http.StatusCreated
	case codes.Changed, codes.Content, codes.Valid, codes.Deleted:
		return http.StatusOK
	case codes.BadRequest:
		return http.StatusBadRequest
	case codes.Forbidden:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.MethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusBadGateway
	}
}
