package gateway

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/mux"

	"github.com/coldaisle/hvac-edge/internal/device"
)

// controlHandler builds the handler for one actuator's control resource.
//
// GET returns the actuator's current state. POST applies the JSON command
// in the request body and returns the resulting state; validation failures
// map to 4.xx codes.
func (s *Server) controlHandler(a *device.Actuator) func(w mux.ResponseWriter, r *mux.Message) {
	return func(w mux.ResponseWriter, r *mux.Message) {
		switch r.Code() {
		case codes.GET:
			s.respondJSON(w, codes.Content, a.CurrentState())
		case codes.POST:
			s.applyControl(w, r, a)
		default:
			s.respondError(w, codes.MethodNotAllowed, "only GET and POST are supported")
		}
	}
}

func (s *Server) applyControl(w mux.ResponseWriter, r *mux.Message, a *device.Actuator) {
	body, err := r.ReadBody()
	if err != nil {
		s.respondError(w, codes.BadRequest, "unreadable request body")
		return
	}

	var cmd map[string]any
	if err := json.Unmarshal(body, &cmd); err != nil {
		s.respondError(w, codes.BadRequest, "command must be a JSON object")
		return
	}

	if err := a.ApplyCommand(cmd, ""); err != nil {
		s.logger.Warn("command rejected", "resource_id", a.ID(), "error", err)
		s.respondError(w, commandErrorCode(err), err.Error())
		return
	}

	s.respondJSON(w, codes.Changed, a.CurrentState())
}

// commandErrorCode maps actuator validation failures onto 4.xx codes.
func commandErrorCode(err error) codes.Code {
	if errors.Is(err, device.ErrNotOperational) {
		return codes.Forbidden
	}
	return codes.BadRequest
}

func (s *Server) respondJSON(w mux.ResponseWriter, code codes.Code, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.respondError(w, codes.InternalServerError, "response encoding failed")
		return
	}
	if err := w.SetResponse(code, message.AppJSON, bytes.NewReader(data)); err != nil {
		s.logger.Error("control response failed", "error", err)
	}
}

func (s *Server) respondError(w mux.ResponseWriter, code codes.Code, msg string) {
	payload, _ := json.Marshal(map[string]string{"error": msg})
	if err := w.SetResponse(code, message.AppJSON, bytes.NewReader(payload)); err != nil {
		s.logger.Error("error response failed", "error", err)
	}
}
