package client

import (
	"context"
	"fmt"
	"time"

	"github.com/swiftwave-org/swctl/pkg/log"
)

// Health is the reachability of the backend.
type Health struct {
	Reachable bool
	Latency   time.Duration
	Version   string
	Err       error
}

// HealthClient queries the REST health and version endpoints.
type HealthClient struct {
	client *Client
	logger log.Logger
}

// NewHealthClient creates a new health client.
func NewHealthClient(client *Client) *HealthClient {
	return &HealthClient{
		client: client,
		logger: client.logger.WithComponent("health-client"),
	}
}

// GetHealth pings /healthcheck and, when bearer is set, reads /version.
// Failures are reported in the result.
func (h *HealthClient) GetHealth(ctx context.Context, bearer string) (*Health, error) {
	if h.client.rest == nil {
		return nil, fmt.Errorf("health client requires a rest client")
	}

	ctx, cancel := h.client.Context(ctx)
	defer cancel()

	start := time.Now()
	err := h.client.rest.Healthcheck(ctx)
	health := &Health{Latency: time.Since(start), Reachable: err == nil, Err: err}
	if err != nil {
		h.logger.Debug("Backend unhealthy", log.Err(err))
		return health, nil
	}

	if bearer != "" {
		v, err := h.client.rest.Version(ctx, bearer)
		if err != nil {
			h.logger.Debug("Failed to read backend version", log.Err(err))
		} else {
			health.Version = v
		}
	}
	return health, nil
}
