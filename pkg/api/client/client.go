// Package client exposes the backend's GraphQL operations as typed Go
// methods. Every response is decoded into an explicit type and validated.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/swiftwave-org/swctl/pkg/api/graphql"
	"github.com/swiftwave-org/swctl/pkg/api/rest"
	"github.com/swiftwave-org/swctl/pkg/log"
)

// ClientOptions holds configuration options for the API client.
type ClientOptions struct {
	GraphQL *graphql.Client
	REST    *rest.Client

	// CallTimeout bounds each query and mutation. Subscriptions are bounded
	// only by their context.
	CallTimeout time.Duration

	Logger log.Logger
}

// Client provides a client for interacting with the SwiftWave API.
type Client struct {
	options *ClientOptions
	gql     *graphql.Client
	rest    *rest.Client
	logger  log.Logger
}

// NewClient creates a new API client with the given options.
func NewClient(options *ClientOptions) (*Client, error) {
	if options == nil || options.GraphQL == nil {
		return nil, fmt.Errorf("api client requires a graphql client")
	}

	logger := options.Logger
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	if options.CallTimeout <= 0 {
		options.CallTimeout = 30 * time.Second
	}

	return &Client{
		options: options,
		gql:     options.GraphQL,
		rest:    options.REST,
		logger:  logger.WithComponent("api-client"),
	}, nil
}

// GraphQL exposes the underlying GraphQL client.
func (c *Client) GraphQL() *graphql.Client {
	return c.gql
}

// Context returns a context with the configured call timeout.
func (c *Client) Context(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, c.options.CallTimeout)
}

func (c *Client) query(ctx context.Context, op, document string, vars map[string]interface{}, out interface{}, opts ...graphql.RequestOption) error {
	ctx, cancel := c.Context(ctx)
	defer cancel()

	c.logger.Debug("Running query", log.Str("operation", op))
	if err := c.gql.Query(ctx, document, vars, out, opts...); err != nil {
		c.logger.Debug("Query failed", log.Str("operation", op), log.Err(err))
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return nil
}

func (c *Client) mutate(ctx context.Context, op, document string, vars map[string]interface{}, out interface{}) error {
	ctx, cancel := c.Context(ctx)
	defer cancel()

	c.logger.Debug("Running mutation", log.Str("operation", op))
	if err := c.gql.Mutate(ctx, document, vars, out); err != nil {
		c.logger.Debug("Mutation failed", log.Str("operation", op), log.Err(err))
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return nil
}
