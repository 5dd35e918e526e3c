package client

import (
	"context"
	"fmt"

	"github.com/swiftwave-org/swctl/pkg/api/graphql"
	"github.com/swiftwave-org/swctl/pkg/log"
	"github.com/swiftwave-org/swctl/pkg/types"
)

const subscriptionDeploymentLog = `subscription FetchDeploymentLog($id: String!) {
  fetchDeploymentLog(id: $id) { content createdAt }
}`

type deploymentLogEvent struct {
	Log *types.DeploymentLog `json:"fetchDeploymentLog"`
}

func (e *deploymentLogEvent) Validate() error {
	if e.Log == nil {
		return types.NewValidationError("fetchDeploymentLog returned nothing")
	}
	return nil
}

// LogEvent is one streamed log chunk or the error that ended the stream.
type LogEvent struct {
	Log types.DeploymentLog
	Err error
}

// LogClient streams deployment logs.
type LogClient struct {
	client *Client
	logger log.Logger
}

// NewLogClient creates a new log client.
func NewLogClient(client *Client) *LogClient {
	return &LogClient{
		client: client,
		logger: client.logger.WithComponent("log-client"),
	}
}

// StreamDeploymentLogs follows the build and deploy output of a deployment.
// The channel closes when the server completes the stream or ctx is
// cancelled.
func (c *LogClient) StreamDeploymentLogs(ctx context.Context, deploymentID string) (<-chan LogEvent, error) {
	c.logger.Debug("Opening deployment log stream", log.Str("deployment_id", deploymentID))

	results, err := c.client.gql.Subscribe(ctx, subscriptionDeploymentLog,
		map[string]interface{}{"id": deploymentID}, graphql.WithOperationName("FetchDeploymentLog"))
	if err != nil {
		return nil, fmt.Errorf("failed to stream deployment logs: %w", err)
	}

	out := make(chan LogEvent)
	go func() {
		defer close(out)
		for r := range results {
			ev := LogEvent{Err: r.Err}
			if r.Err == nil {
				var payload deploymentLogEvent
				if err := r.Response.Decode(&payload); err != nil {
					ev.Err = err
				} else {
					ev.Log = *payload.Log
				}
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
