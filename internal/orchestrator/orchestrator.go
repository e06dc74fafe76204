package orchestrator

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/coldaisle/hvac-edge/internal/api"
	"github.com/coldaisle/hvac-edge/internal/collector"
	"github.com/coldaisle/hvac-edge/internal/gateway"
	"github.com/coldaisle/hvac-edge/internal/history"
	"github.com/coldaisle/hvac-edge/internal/infrastructure/config"
	"github.com/coldaisle/hvac-edge/internal/infrastructure/influxdb"
	"github.com/coldaisle/hvac-edge/internal/infrastructure/logging"
	"github.com/coldaisle/hvac-edge/internal/infrastructure/mqtt"
	"github.com/coldaisle/hvac-edge/internal/message"
	"github.com/coldaisle/hvac-edge/internal/policy"
	"github.com/coldaisle/hvac-edge/internal/runtime"
	"github.com/coldaisle/hvac-edge/internal/topology"
)

// recordTimeout bounds a single history write on the control observer path.
const recordTimeout = 5 * time.Second

// Orchestrator owns the lifecycle of every subsystem of the edge agent:
// device runtime, bus client, per-room collectors and policy engines, the
// CoAP gateway, and the admin API. Components are constructed once and
// passed explicitly; nothing reaches for globals.
type Orchestrator struct {
	cfg     *config.Config
	logger  *logging.Logger
	version string

	rooms    []*topology.Room
	registry *gateway.Registry

	bus        *mqtt.Client
	rt         *runtime.Runtime
	gateway    *gateway.Server
	discoverer *gateway.Discoverer
	forward    *gateway.ForwardClient
	engines    map[string]*policy.Engine
	collectors []*collector.Collector
	syncers    []*collector.Synchroniser
	events     *history.Store
	influx     *influxdb.Client
	hub        *api.Hub
	apiServer  *api.Server

	cancel context.CancelFunc
}

// New builds the static parts of the agent: the room topology from
// rooms_config.json and the gateway registry snapshot. Everything that
// needs a network or a running component is deferred to Start.
//
// Parameters:
//   - cfg: Loaded and validated configuration
//   - logger: Root logger; component loggers are derived from it
//   - version: Reported by the admin API health endpoint
//
// Returns:
//   - *Orchestrator: Agent ready to Start
//   - error: If the rooms config or registry snapshot is unreadable
func New(cfg *config.Config, logger *logging.Logger, version string) (*Orchestrator, error) {
	roomsCfg, err := topology.LoadRoomsConfig(cfg.Site.RoomsConfig)
	if err != nil {
		return nil, fmt.Errorf("loading rooms config: %w", err)
	}

	rooms, err := topology.BuildRooms(roomsCfg, logger.With("component", "device"))
	if err != nil {
		return nil, fmt.Errorf("building rooms: %w", err)
	}
	if len(rooms) == 0 {
		return nil, fmt.Errorf("rooms config defines no rooms")
	}

	if err := ensureParentDirs(
		cfg.Gateway.RegistryPath,
		cfg.Policy.DocumentPath,
		cfg.History.Path,
	); err != nil {
		return nil, err
	}

	registry, err := gateway.NewRegistry(cfg.Gateway.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("loading gateway registry: %w", err)
	}

	return &Orchestrator{
		cfg:      cfg,
		logger:   logger,
		version:  version,
		rooms:    rooms,
		registry: registry,
	}, nil
}

// Rooms returns the built topology.
func (o *Orchestrator) Rooms() []*topology.Room {
	return o.rooms
}

// Start brings the agent up:
//
//  1. Connects the bus and optional stores (history, InfluxDB).
//  2. Starts the CoAP gateway with one control resource per actuator.
//  3. Creates per-room policy engines dispatching through the gateway.
//  4. Starts per-room collectors and cloud synchronisers.
//  5. Binds device listeners and starts the smart objects.
//  6. Discovers the configured CoAP endpoints (the gateway's own address
//     is implicitly included).
//  7. Starts the admin API.
//
// Collectors subscribe before any sensor starts emitting, so the first
// readings are not lost.
//
// Returns:
//   - error: On the first component that fails to start; previously
//     started components are shut down again
func (o *Orchestrator) Start(ctx context.Context) error {
	ctx, o.cancel = context.WithCancel(ctx)

	if err := o.start(ctx); err != nil {
		o.Stop()
		return err
	}
	return nil
}

func (o *Orchestrator) start(ctx context.Context) error {
	var err error

	// Bus
	o.bus, err = mqtt.Connect(o.cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	o.bus.SetLogger(o.logger.With("component", "mqtt"))
	o.logger.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", o.cfg.MQTT.Broker.Host, o.cfg.MQTT.Broker.Port),
		"client_id", o.cfg.MQTT.Broker.ClientID,
	)

	// Optional stores
	if o.cfg.History.Enabled {
		o.events, err = history.Open(o.cfg.History.Path, o.cfg.History.BusyTimeout*1000)
		if err != nil {
			return fmt.Errorf("opening event history: %w", err)
		}
		o.logger.Info("event history open", "path", o.cfg.History.Path)
	}

	if o.cfg.InfluxDB.Enabled {
		o.influx, err = influxdb.Connect(o.cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		o.influx.SetOnError(func(err error) {
			o.logger.Error("InfluxDB write error", "error", err)
		})
		o.logger.Info("InfluxDB connected", "url", o.cfg.InfluxDB.URL, "bucket", o.cfg.InfluxDB.Bucket)
	} else {
		o.logger.Info("InfluxDB disabled")
	}

	// Gateway with one control resource per actuator
	o.gateway = gateway.NewServer(
		o.cfg.Gateway.Host,
		o.cfg.Gateway.Port,
		o.registry,
		o.cfg.GetGatewayTimeout(),
		o.logger.With("component", "gateway"),
	)
	for _, room := range o.rooms {
		for _, so := range room.AllSmartObjects() {
			for name, a := range so.Actuators() {
				o.gateway.RegisterActuator(so, name, a)
			}
		}
	}
	if err := o.gateway.Start(); err != nil {
		return fmt.Errorf("starting gateway: %w", err)
	}
	o.logger.Info("gateway listening", "addr", o.gateway.Addr())

	o.forward = gateway.NewForwardClient(o.gateway.Addr(), o.logger.With("component", "forward"))
	o.discoverer = gateway.NewDiscoverer(o.registry, o.cfg.GetGatewayTimeout(), o.logger.With("component", "discovery"))

	// Re-announce discovery when the bus session comes back: endpoints
	// that changed while the broker was away are re-probed immediately
	// instead of waiting for the next manual run.
	o.bus.SetOnConnect(func() {
		o.refreshDiscovery(ctx)
	})
	o.bus.SetOnDisconnect(func(err error) {
		o.logger.Warn("MQTT session lost, reconnecting", "error", err)
	})

	// Per-room policy engines, collectors, synchronisers
	store := policy.NewStore(o.cfg.Policy.DocumentPath)
	o.engines = make(map[string]*policy.Engine, len(o.rooms))
	o.hub = api.NewHub(o.cfg.WebSocket, o.logger.With("component", "ws"))
	go o.hub.Run(ctx)

	qos := byte(o.cfg.MQTT.QoS)
	for _, room := range o.rooms {
		eng, err := policy.NewEngine(room.RoomID, store, o.forward, o.logger.With("component", "policy", "room_id", room.RoomID))
		if err != nil {
			return fmt.Errorf("creating policy engine for %s: %w", room.RoomID, err)
		}
		o.engines[room.RoomID] = eng

		col := collector.New(collector.Config{
			RoomID:    room.RoomID,
			QueueSize: o.cfg.Collector.QueueSize,
			QoS:       qos,
		}, o.bus, eng, o.logger.With("component", "collector", "room_id", room.RoomID))
		col.SetTelemetryObserver(o.observeTelemetry)
		col.SetControlObserver(o.observeControl)

		if err := col.Start(ctx); err != nil {
			return fmt.Errorf("starting collector for %s: %w", room.RoomID, err)
		}
		o.collectors = append(o.collectors, col)

		syncer := collector.NewSynchroniser(
			col,
			o.cfg.Collector.CloudURL,
			o.cfg.GetSyncInterval(),
			o.cfg.GetSyncTimeout(),
			o.logger.With("component", "sync", "room_id", room.RoomID),
		)
		syncer.Start(ctx)
		o.syncers = append(o.syncers, syncer)
	}

	// Device runtime: bind listeners, then start sensors and actuators
	o.rt = runtime.New(o.bus, qos, o.logger.With("component", "runtime"))
	o.rt.Start(o.rooms)
	o.logger.Info("device runtime started", "rooms", len(o.rooms))

	// Discovery: the gateway's own resources plus any configured endpoints
	o.discover(ctx)

	// Admin API
	o.apiServer, err = api.New(api.Deps{
		Config:      o.cfg.API,
		WS:          o.cfg.WebSocket,
		Logger:      o.logger.With("component", "api"),
		Rooms:       o.rooms,
		Engines:     o.engines,
		Forward:     o.forward,
		History:     o.events,
		ExternalHub: o.hub,
		Version:     o.version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := o.apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	o.logger.Info("admin API listening", "host", o.cfg.API.Host, "port", o.cfg.API.Port)

	return nil
}

// refreshDiscovery re-probes all endpoints after a bus session is
// (re-)established.
func (o *Orchestrator) refreshDiscovery(ctx context.Context) {
	o.logger.Info("MQTT session established, refreshing discovery")
	o.discover(ctx)
}

// discover probes the gateway's own address and every configured endpoint
// for /.well-known/core. Failures are logged, not fatal: an endpoint that
// is down at boot is picked up on the next discovery run.
func (o *Orchestrator) discover(ctx context.Context) {
	targets := append([]string{o.gateway.Addr()}, o.cfg.Gateway.DiscoveryHosts...)
	for _, target := range targets {
		host, port, err := splitEndpoint(target)
		if err != nil {
			o.logger.Warn("skipping malformed discovery endpoint", "endpoint", target, "error", err)
			continue
		}
		if err := o.discoverer.Discover(ctx, host, port); err != nil {
			o.logger.Warn("discovery failed", "endpoint", target, "error", err)
			continue
		}
		o.logger.Info("endpoint discovered", "endpoint", target)
	}
}

// observeTelemetry mirrors each batched sample to WebSocket subscribers
// and the optional local InfluxDB.
func (o *Orchestrator) observeTelemetry(t message.Telemetry) {
	o.hub.Broadcast(api.ChannelTelemetry, t)
	if o.influx != nil {
		o.influx.WriteTelemetry(t)
	}
}

// observeControl records each control event to the history log and mirrors
// it to WebSocket subscribers and the optional local InfluxDB.
func (o *Orchestrator) observeControl(c message.Control) {
	o.hub.Broadcast(api.ChannelControl, c)

	if o.events != nil {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := o.events.Record(ctx, c); err != nil {
			o.logger.Warn("control event not recorded", "resource_id", c.Metadata.ResourceID, "error", err)
		}
	}
	if o.influx != nil {
		o.influx.WriteControlEvent(c)
	}
}

// Stop shuts the agent down in reverse start order: API first (stop
// accepting operator requests), then synchronisers (final flush), then
// collectors, devices, gateway, and finally the stores and the bus.
// Safe to call after a partial Start.
func (o *Orchestrator) Stop() {
	if o.apiServer != nil {
		if err := o.apiServer.Close(); err != nil {
			o.logger.Error("error closing API server", "error", err)
		}
	}

	for _, syncer := range o.syncers {
		syncer.Stop()
	}
	for _, col := range o.collectors {
		col.Stop()
	}

	if o.rt != nil {
		o.rt.Stop(o.rooms)
		o.logger.Info("device runtime stopped")
	}

	if o.gateway != nil {
		o.gateway.Stop()
		o.logger.Info("gateway stopped")
	}

	if o.cancel != nil {
		o.cancel()
	}

	if o.events != nil {
		if err := o.events.Close(); err != nil {
			o.logger.Error("error closing event history", "error", err)
		}
	}
	if o.influx != nil {
		if err := o.influx.Close(); err != nil {
			o.logger.Error("error closing InfluxDB", "error", err)
		}
	}
	if o.bus != nil {
		if err := o.bus.Close(); err != nil {
			o.logger.Error("error closing MQTT", "error", err)
		}
	}
}

// HealthCheck verifies the bus, the admin API, and the optional InfluxDB
// connection.
//
// Returns:
//   - error: First failing check, or nil when all pass
func (o *Orchestrator) HealthCheck(ctx context.Context) error {
	if o.bus != nil {
		if err := o.bus.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if o.apiServer != nil {
		if err := o.apiServer.HealthCheck(ctx); err != nil {
			return fmt.Errorf("api: %w", err)
		}
	}
	if o.influx != nil {
		if err := o.influx.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}

// splitEndpoint parses a "host:port" discovery target.
func splitEndpoint(endpoint string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("port %q is not numeric", portStr)
	}
	return host, port, nil
}

// ensureParentDirs creates the data directories backing the given files.
func ensureParentDirs(paths ...string) error {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("creating data directory for %s: %w", path, err)
		}
	}
	return nil
}
