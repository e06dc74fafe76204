package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/udp"

	"github.com/coldaisle/hvac-edge/internal/policy"
)

// ForwardClient delivers policy actions to the gateway's forward endpoint.
// It satisfies policy.Forwarder.
type ForwardClient struct {
	addr   string
	logger Logger
}

// ForwardResponse carries the raw gateway reply for callers that need the
// upstream CoAP code, e.g. the admin API's HTTP status mapping.
type ForwardResponse struct {
	Code    codes.Code
	Payload []byte
}

// Success reports whether the response code is a 2.xx success.
func (r *ForwardResponse) Success() bool {
	switch r.Code {
	case codes.Changed, codes.Content, codes.Created, codes.Valid:
		return true
	default:
		return false
	}
}

// NewForwardClient creates a client posting to the gateway at addr
// ("host:port").
func NewForwardClient(addr string, logger Logger) *ForwardClient {
	if logger == nil {
		logger = noopLogger{}
	}
	return &ForwardClient{addr: addr, logger: logger}
}

// Exchange POSTs the request to /proxy/forward and returns the gateway's
// reply verbatim.
//
// Returns:
//   - *ForwardResponse: The upstream code and payload
//   - error: ErrUpstream on transport failure
func (c *ForwardClient) Exchange(ctx context.Context, req policy.ForwardRequest) (*ForwardResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding forward request: %w", err)
	}

	conn, err := udp.Dial(c.addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dialling gateway %s: %w", ErrUpstream, c.addr, err)
	}
	defer conn.Close()

	resp, err := conn.Post(ctx, "/"+forwardPath, message.AppJSON, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: posting forward request: %w", ErrUpstream, err)
	}

	body, _ := resp.ReadBody()
	return &ForwardResponse{Code: resp.Code(), Payload: body}, nil
}

// Forward POSTs the request to /proxy/forward and fails on any non-success
// response code.
//
// Returns:
//   - error: ErrUpstream on transport failure, ErrUpstreamRejected on a
//     non-success response
func (c *ForwardClient) Forward(ctx context.Context, req policy.ForwardRequest) error {
	resp, err := c.Exchange(ctx, req)
	if err != nil {
		return err
	}

	if !resp.Success() {
		return fmt.Errorf("%w: %v: %s", ErrUpstreamRejected, resp.Code, resp.Payload)
	}

	c.logger.Debug("policy action forwarded", "object_id", req.ObjectID, "code", resp.Code)
	return nil
}
