package gateway

import (
	"bytes"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/mux"
	coapnet "github.com/plgd-dev/go-coap/v3/net"
	"github.com/plgd-dev/go-coap/v3/options"
	"github.com/plgd-dev/go-coap/v3/udp"
	udpserver "github.com/plgd-dev/go-coap/v3/udp/server"

	"github.com/coldaisle/hvac-edge/internal/device"
)

// forwardPath is the fixed path of the forward endpoint.
const forwardPath = "proxy/forward"

// Server is the CoAP gateway: it serves /.well-known/core, the forward
// endpoint, and one control resource per registered actuator.
type Server struct {
	host           string
	port           int
	registry       *Registry
	forwardTimeout time.Duration
	logger         Logger

	router *mux.Router

	linkMu sync.RWMutex
	links  []Link

	runMu    sync.Mutex
	srv      *udpserver.Server
	listener *coapnet.UDPConn
	done     chan struct{}
}

// NewServer creates a gateway server. Control resources are registered
// between construction and Start.
//
// Parameters:
//   - host, port: Bind address; port 0 picks an ephemeral port
//   - registry: Registry consulted by the forward endpoint
//   - forwardTimeout: Per-request timeout for forwarded device commands
//   - logger: Destination for diagnostics; nil discards
func NewServer(host string, port int, registry *Registry, forwardTimeout time.Duration, logger Logger) *Server {
	if logger == nil {
		logger = noopLogger{}
	}

	s := &Server{
		host:           host,
		port:           port,
		registry:       registry,
		forwardTimeout: forwardTimeout,
		logger:         logger,
		router:         mux.NewRouter(),
	}

	s.router.Handle("/.well-known/core", mux.HandlerFunc(s.handleWellKnownCore))
	s.router.Handle("/"+forwardPath, mux.HandlerFunc(s.handleForward))
	s.links = append(s.links, Link{
		Path: forwardPath,
		Attributes: map[string]string{
			"rt":    "hvac.gateway.forward",
			"if":    "core.p",
			"ct":    "50",
			"title": "Command Forward",
		},
	})
	return s
}

// RegisterActuator exposes a control resource for one actuator at the
// canonical path
//
//	hvac/room/{room}[/rack/{rack}]/device/{object}/{resource}/control
//
// and advertises it in /.well-known/core with the logical identity the
// forward lookup matches on.
//
// Parameters:
//   - so: Owning smart object
//   - resourceName: The resource's map name (e.g. "fan")
//   - a: The actuator to control
func (s *Server) RegisterActuator(so *device.SmartObject, resourceName string, a *device.Actuator) {
	path := ControlPath(so.RoomID, so.RackID, so.ObjectID, resourceName)

	attrs := map[string]string{
		"rt":        fmt.Sprintf("core.a hvac.actuator.%s", a.ActuatorKind()),
		"if":        "core.a",
		"ct":        "0 50",
		"title":     controlTitle(resourceName),
		"object_id": so.ObjectID,
		"room_id":   so.RoomID,
	}
	if so.RackID != "" {
		attrs["rack_id"] = so.RackID
	}

	s.router.Handle("/"+path, mux.HandlerFunc(s.controlHandler(a)))

	s.linkMu.Lock()
	s.links = append(s.links, Link{Path: path, Attributes: attrs})
	s.linkMu.Unlock()

	s.logger.Debug("control resource registered", "path", path, "object_id", so.ObjectID)
}

// ControlPath returns the canonical control-resource path for an actuator.
func ControlPath(roomID, rackID, objectID, resourceName string) string {
	if rackID == "" {
		return fmt.Sprintf("hvac/room/%s/device/%s/%s/control", roomID, objectID, resourceName)
	}
	return fmt.Sprintf("hvac/room/%s/rack/%s/device/%s/%s/control", roomID, rackID, objectID, resourceName)
}

// controlTitle turns a resource map name into a human-readable link title,
// e.g. "cooling_levels" becomes "Cooling Levels Control".
func controlTitle(resourceName string) string {
	words := strings.Split(resourceName, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ") + " Control"
}

// Start binds the listener and serves in the background.
//
// Returns:
//   - error: If the bind fails
func (s *Server) Start() error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.listener != nil {
		return nil
	}

	listener, err := coapnet.NewListenUDP("udp", net.JoinHostPort(s.host, strconv.Itoa(s.port)))
	if err != nil {
		return fmt.Errorf("binding gateway listener: %w", err)
	}
	s.listener = listener
	s.srv = udp.NewServer(options.WithMux(s.router))
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		if err := s.srv.Serve(listener); err != nil {
			s.logger.Error("gateway server stopped", "error", err)
		}
	}()

	s.logger.Info("gateway listening", "addr", listener.LocalAddr().String())
	return nil
}

// Stop shuts the server down and waits for the serve loop to exit.
func (s *Server) Stop() {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.listener == nil {
		return
	}

	s.srv.Stop()
	s.listener.Close()
	<-s.done
	s.listener = nil
	s.srv = nil
}

// Addr returns the bound listener address, useful when port 0 was
// requested.
func (s *Server) Addr() string {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.LocalAddr().String()
}

// handleWellKnownCore serves the link-format resource catalog.
func (s *Server) handleWellKnownCore(w mux.ResponseWriter, r *mux.Message) {
	s.linkMu.RLock()
	doc := EncodeLinks(s.links)
	s.linkMu.RUnlock()

	if err := w.SetResponse(codes.Content, message.AppLinkFormat, bytes.NewReader([]byte(doc))); err != nil {
		s.logger.Error("well-known response failed", "error", err)
	}
}
