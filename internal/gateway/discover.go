package gateway

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/udp"
)

// Logger interface for gateway diagnostics.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Discoverer queries the well-known resource catalog of device endpoints
// and populates the registry with each discovered link.
type Discoverer struct {
	registry *Registry
	timeout  time.Duration
	logger   Logger
}

// NewDiscoverer creates a discoverer writing into registry.
//
// Parameters:
//   - registry: Destination for discovered entries
//   - timeout: Per-endpoint request timeout
//   - logger: Destination for diagnostics; nil discards
func NewDiscoverer(registry *Registry, timeout time.Duration, logger Logger) *Discoverer {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Discoverer{registry: registry, timeout: timeout, logger: logger}
}

// Discover fetches /.well-known/core from the endpoint and records every
// returned link under the host. Re-discovery replaces the host's previous
// entries, so repeated runs are idempotent.
//
// Returns:
//   - error: On fetch or persistence failure; the registry keeps its
//     previous entries for the host on fetch failure
func (d *Discoverer) Discover(ctx context.Context, host string, port int) error {
	links, err := d.fetchCore(ctx, host, port)
	if err != nil {
		return fmt.Errorf("discovering %s:%d: %w", host, port, err)
	}

	entries := make([]Entry, 0, len(links))
	for _, l := range links {
		entries = append(entries, Entry{
			Port:       port,
			Path:       l.Path,
			Attributes: attributesFromLink(l),
		})
	}

	if err := d.registry.Record(host, entries); err != nil {
		return fmt.Errorf("recording %s: %w", host, err)
	}

	d.logger.Info("endpoint discovered", "host", host, "port", port, "resources", len(entries))
	return nil
}

// CheckConnectivity reports whether a well-known-core GET to the endpoint
// succeeds.
func (d *Discoverer) CheckConnectivity(ctx context.Context, host string, port int) bool {
	_, err := d.fetchCore(ctx, host, port)
	return err == nil
}

func (d *Discoverer) fetchCore(ctx context.Context, host string, port int) ([]Link, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	conn, err := udp.Dial(net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("dialling: %w", err)
	}
	defer conn.Close()

	resp, err := conn.Get(ctx, "/.well-known/core")
	if err != nil {
		return nil, fmt.Errorf("fetching resource catalog: %w", err)
	}
	if resp.Code() != codes.Content {
		return nil, fmt.Errorf("resource catalog returned %v", resp.Code())
	}

	body, err := resp.ReadBody()
	if err != nil {
		return nil, fmt.Errorf("reading resource catalog: %w", err)
	}
	return ParseLinks(string(body)), nil
}

// attributesFromLink lifts the known link attributes into the registry's
// typed form.
func attributesFromLink(l Link) Attributes {
	return Attributes{
		ObjectID:     l.Attributes["object_id"],
		RoomID:       l.Attributes["room_id"],
		RackID:       l.Attributes["rack_id"],
		ResourceType: l.Attributes["rt"],
		Interface:    l.Attributes["if"],
		ContentType:  l.Attributes["ct"],
		Title:        l.Attributes["title"],
	}
}
