package graphql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/swiftwave-org/swctl/pkg/log"
)

// FetchPolicy controls how a request uses the response cache.
type FetchPolicy string

const (
	// NoCache always goes to the network and never stores the result.
	NoCache FetchPolicy = "no-cache"
	// CacheFirst answers from the cache when it can and stores network
	// results.
	CacheFirst FetchPolicy = "cache-first"
	// NetworkOnly always goes to the network and stores the result.
	NetworkOnly FetchPolicy = "network-only"
)

// ParseFetchPolicy parses a policy name. "" means NoCache.
func ParseFetchPolicy(s string) (FetchPolicy, error) {
	switch p := FetchPolicy(s); p {
	case "":
		return NoCache, nil
	case NoCache, CacheFirst, NetworkOnly:
		return p, nil
	default:
		return "", fmt.Errorf("unknown fetch policy %q", s)
	}
}

// DefaultOptions are the fetch policies applied when a request names none.
type DefaultOptions struct {
	Query      FetchPolicy
	Mutate     FetchPolicy
	WatchQuery FetchPolicy
}

// DefaultFetchOptions returns no-cache for everything.
func DefaultFetchOptions() DefaultOptions {
	return DefaultOptions{Query: NoCache, Mutate: NoCache, WatchQuery: NoCache}
}

// ClientOptions holds configuration options for the GraphQL client.
type ClientOptions struct {
	Link     Link
	Defaults DefaultOptions
	CacheTTL time.Duration
	Logger   log.Logger
}

// Client issues GraphQL operations through a Link.
type Client struct {
	link     Link
	defaults DefaultOptions
	cache    *cache.Cache
	logger   log.Logger
}

// NewClient creates a new GraphQL client.
func NewClient(options ClientOptions) (*Client, error) {
	if options.Link == nil {
		return nil, fmt.Errorf("graphql client requires a link")
	}
	defaults := options.Defaults
	if defaults.Query == "" {
		defaults.Query = NoCache
	}
	if defaults.Mutate == "" {
		defaults.Mutate = NoCache
	}
	if defaults.WatchQuery == "" {
		defaults.WatchQuery = NoCache
	}

	ttl := options.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	logger := options.Logger
	if logger == nil {
		logger = log.GetDefaultLogger()
	}

	return &Client{
		link:     options.Link,
		defaults: defaults,
		cache:    cache.New(ttl, 2*ttl),
		logger:   logger.WithComponent("graphql"),
	}, nil
}

// RequestOption adjusts a single request.
type RequestOption func(*request)

type request struct {
	policy        FetchPolicy
	operationName string
	fresh         bool
}

// WithFetchPolicy overrides the default fetch policy.
func WithFetchPolicy(p FetchPolicy) RequestOption {
	return func(r *request) {
		r.policy = p
	}
}

// WithFreshResult skips cached results while keeping the policy's choice
// of whether to store the new one: cache-first becomes network-only and
// no-cache stays no-cache.
func WithFreshResult() RequestOption {
	return func(r *request) {
		r.fresh = true
	}
}

// WithOperationName sets operationName on the request.
func WithOperationName(name string) RequestOption {
	return func(r *request) {
		r.operationName = name
	}
}

func (c *Client) build(query string, vars map[string]interface{}, def FetchPolicy, opts []RequestOption) (*Operation, FetchPolicy) {
	r := request{policy: def}
	for _, opt := range opts {
		opt(&r)
	}
	if r.fresh && r.policy == CacheFirst {
		r.policy = NetworkOnly
	}
	return &Operation{Query: query, Variables: vars, OperationName: r.operationName}, r.policy
}

// Query runs a query and decodes its data into out.
func (c *Client) Query(ctx context.Context, query string, vars map[string]interface{}, out interface{}, opts ...RequestOption) error {
	op, policy := c.build(query, vars, c.defaults.Query, opts)

	key, err := cacheKey(op)
	if err != nil {
		return err
	}

	if policy == CacheFirst {
		if data, ok := c.cache.Get(key); ok {
			c.logger.Debug("Cache hit", log.Str("operation", op.OperationName))
			resp := &Response{Data: data.(json.RawMessage)}
			return resp.Decode(out)
		}
	}

	resp, err := c.link.Execute(ctx, op)
	if err != nil {
		return err
	}
	if err := resp.Decode(out); err != nil {
		return err
	}

	if policy != NoCache {
		c.cache.SetDefault(key, resp.Data)
	}
	return nil
}

// Mutate runs a mutation and decodes its data into out. A successful
// mutation clears cached query results.
func (c *Client) Mutate(ctx context.Context, mutation string, vars map[string]interface{}, out interface{}, opts ...RequestOption) error {
	op, _ := c.build(mutation, vars, c.defaults.Mutate, opts)

	resp, err := c.link.Execute(ctx, op)
	if err != nil {
		return err
	}
	if err := resp.Decode(out); err != nil {
		return err
	}
	c.cache.Flush()
	return nil
}

// Subscribe starts a subscription. Results are delivered undecoded; use
// Response.Decode on each.
func (c *Client) Subscribe(ctx context.Context, subscription string, vars map[string]interface{}, opts ...RequestOption) (<-chan Result, error) {
	op, _ := c.build(subscription, vars, c.defaults.WatchQuery, opts)
	return c.link.Subscribe(ctx, op)
}

// Defaults returns the fetch policies in effect.
func (c *Client) Defaults() DefaultOptions {
	return c.defaults
}

func cacheKey(op *Operation) (string, error) {
	vars, err := json.Marshal(op.Variables)
	if err != nil {
		return "", fmt.Errorf("failed to encode variables: %w", err)
	}
	return op.OperationName + "\x00" + op.Query + "\x00" + string(vars), nil
}
