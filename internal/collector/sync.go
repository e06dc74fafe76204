package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coldaisle/hvac-edge/internal/message"
)

// ErrCloudRejected is returned when the cloud endpoint answers outside the
// 2xx range. The batch is left intact to retry on the next tick.
var ErrCloudRejected = errors.New("collector: cloud endpoint rejected batch")

// syncPayload is the wire shape of a cloud upload.
type syncPayload struct {
	RoomID      string              `json:"room_id"`
	Timestamp   int64               `json:"timestamp"`
	Telemetries []message.Telemetry `json:"telemetries"`
}

// Synchroniser periodically drains a collector's batch to the cloud
// endpoint. On any failure (network, non-2xx) the batch stays put and
// keeps accumulating until the next attempt.
type Synchroniser struct {
	collector *Collector
	client    *http.Client
	cloudURL  string
	interval  time.Duration
	logger    Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSynchroniser creates a synchroniser for one collector.
//
// Parameters:
//   - collector: Source of batches
//   - cloudURL: Base URL of the cloud API; /sync is appended
//   - interval: Wake-up period between upload attempts
//   - timeout: Per-request HTTP timeout
//   - logger: Destination for diagnostics; nil discards
func NewSynchroniser(collector *Collector, cloudURL string, interval, timeout time.Duration, logger Logger) *Synchroniser {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Synchroniser{
		collector: collector,
		client:    &http.Client{Timeout: timeout},
		cloudURL:  cloudURL,
		interval:  interval,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start launches the periodic upload loop.
func (s *Synchroniser) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)
}

// Stop cancels the loop and waits for it to drain. A final flush is
// attempted so a clean shutdown does not strand samples.
func (s *Synchroniser) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done

	if err := s.SyncOnce(context.Background()); err != nil {
		s.logger.Warn("final flush failed", "room_id", s.collector.cfg.RoomID, "error", err)
	}
}

func (s *Synchroniser) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SyncOnce(ctx); err != nil {
				s.logger.Warn("cloud sync failed, batch retained", "room_id", s.collector.cfg.RoomID, "error", err)
			}
		}
	}
}

// SyncOnce uploads the current batch, if any. On HTTP 2xx exactly the
// uploaded samples are removed from the batch; anything that arrived during
// the upload is kept for the next tick.
//
// Returns:
//   - error: ErrCloudRejected for non-2xx, or the transport error; nil
//     when the batch was empty or drained
func (s *Synchroniser) SyncOnce(ctx context.Context) error {
	batch := s.collector.takeBatch()
	if len(batch) == 0 {
		return nil
	}

	payload := syncPayload{
		RoomID:      s.collector.cfg.RoomID,
		Timestamp:   time.Now().UnixMilli(),
		Telemetries: batch,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding sync payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cloudURL+"/sync", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting batch: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrCloudRejected, resp.StatusCode)
	}

	s.collector.commitDrain(len(batch))
	s.logger.Info("batch synchronised", "room_id", s.collector.cfg.RoomID, "samples", len(batch))
	return nil
}
