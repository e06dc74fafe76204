package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/mux"
	"github.com/plgd-dev/go-coap/v3/udp"
)

// forwardBody is the wire shape of a forward request.
type forwardBody struct {
	ObjectID string         `json:"object_id"`
	RoomID   string         `json:"room_id"`
	RackID   string         `json:"rack_id,omitempty"`
	Command  map[string]any `json:"command"`
}

// handleForward translates a logical device command into a request against
// the registered physical URI and relays the upstream response verbatim.
//
// Responses:
//   - 4.00 + payload when object_id, room_id, or command is missing
//   - 4.04 + payload when the registry lookup yields no URI
//   - upstream code + payload on a completed forward
//   - 5.00 + message on any unexpected failure
func (s *Server) handleForward(w mux.ResponseWriter, r *mux.Message) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("forward handler panic recovered", "panic", rec)
			s.respondError(w, codes.InternalServerError, fmt.Sprintf("%v", rec))
		}
	}()

	if r.Code() != codes.POST {
		s.respondError(w, codes.MethodNotAllowed, "forward accepts POST only")
		return
	}

	body, err := r.ReadBody()
	if err != nil {
		s.respondError(w, codes.BadRequest, "unreadable request body")
		return
	}

	var req forwardBody
	if err := json.Unmarshal(body, &req); err != nil {
		s.respondError(w, codes.BadRequest, "request must be a JSON object")
		return
	}

	uri, err := s.resolveTarget(req)
	if err != nil {
		if errors.Is(err, ErrNotRegistered) {
			s.logger.Warn("forward target not registered",
				"object_id", req.ObjectID, "room_id", req.RoomID, "rack_id", req.RackID)
		}
		s.respondError(w, forwardErrorCode(err), err.Error())
		return
	}

	code, mediaType, payload, err := s.forwardCommand(r.Context(), uri, req.Command)
	if err != nil {
		s.logger.Error("forward failed", "uri", uri, "error", err)
		s.respondError(w, codes.InternalServerError, err.Error())
		return
	}

	// Relay whatever the device said, success or not.
	if err := w.SetResponse(code, mediaType, bytes.NewReader(payload)); err != nil {
		s.logger.Error("forward response failed", "error", err)
	}
}

// resolveTarget validates a forward request and looks up the physical URI
// of the addressed device.
//
// Returns:
//   - string: Device URI from the registry
//   - error: ErrBadRequest when a required field is missing,
//     ErrNotRegistered when the registry lookup yields no URI
func (s *Server) resolveTarget(req forwardBody) (string, error) {
	if req.ObjectID == "" || req.RoomID == "" || len(req.Command) == 0 {
		return "", fmt.Errorf("%w: object_id, room_id, and command are required", ErrBadRequest)
	}

	uri, ok := s.registry.FindURI(req.ObjectID, req.RoomID, req.RackID)
	if !ok {
		return "", fmt.Errorf("%w: no registered device for object %q", ErrNotRegistered, req.ObjectID)
	}
	return uri, nil
}

// forwardErrorCode maps a resolution failure onto its response code.
func forwardErrorCode(err error) codes.Code {
	switch {
	case errors.Is(err, ErrBadRequest):
		return codes.BadRequest
	case errors.Is(err, ErrNotRegistered):
		return codes.NotFound
	default:
		return codes.InternalServerError
	}
}

// forwardCommand POSTs the command to the device URI and returns the
// upstream response untouched.
func (s *Server) forwardCommand(ctx context.Context, uri string, command map[string]any) (codes.Code, message.MediaType, []byte, error) {
	addr, path, err := splitCoapURI(uri)
	if err != nil {
		return 0, 0, nil, err
	}

	payload, err := json.Marshal(command)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("encoding command: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.forwardTimeout)
	defer cancel()

	conn, err := udp.Dial(addr)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("%w: dialling %s: %w", ErrUpstream, addr, err)
	}
	defer conn.Close()

	resp, err := conn.Post(ctx, path, message.AppJSON, bytes.NewReader(payload))
	if err != nil {
		return 0, 0, nil, fmt.Errorf("%w: posting to %s: %w", ErrUpstream, uri, err)
	}

	body, err := resp.ReadBody()
	if err != nil {
		return 0, 0, nil, fmt.Errorf("%w: reading response from %s: %w", ErrUpstream, uri, err)
	}

	mediaType, err := resp.ContentFormat()
	if err != nil {
		mediaType = message.AppJSON
	}
	return resp.Code(), mediaType, body, nil
}

// splitCoapURI splits "coap://host:port/path" into a dial address and a
// request path.
func splitCoapURI(uri string) (addr, path string, err error) {
	rest, ok := strings.CutPrefix(uri, "coap://")
	if !ok {
		return "", "", fmt.Errorf("unsupported URI scheme in %q", uri)
	}
	addr, path, ok = strings.Cut(rest, "/")
	if !ok || addr == "" {
		return "", "", fmt.Errorf("malformed device URI %q", uri)
	}
	return addr, "/" + path, nil
}
