package graphql

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftwave-org/swctl/pkg/log"
)

// countingLink answers every operation with a fresh counter value.
type countingLink struct {
	calls int32
}

func (l *countingLink) Execute(_ context.Context, op *Operation) (*Response, error) {
	n := atomic.AddInt32(&l.calls, 1)
	if op.Query == "mutation { fail }" {
		return &Response{Errors: Errors{{Message: "mutation rejected"}}}, nil
	}
	return &Response{Data: []byte(`{"n":` + string(rune('0'+n)) + `}`)}, nil
}

func (l *countingLink) Subscribe(context.Context, *Operation) (<-chan Result, error) {
	ch := make(chan Result, 1)
	ch <- Result{Response: &Response{Data: []byte(`{"n":0}`)}}
	close(ch)
	return ch, nil
}

type counter struct {
	N int `json:"n"`
}

func newCountingClient(t *testing.T) (*Client, *countingLink) {
	t.Helper()
	link := &countingLink{}
	c, err := NewClient(ClientOptions{Link: link, Logger: log.NewTestLogger()})
	require.NoError(t, err)
	return c, link
}

func TestClientDefaultsToNoCache(t *testing.T) {
	c, link := newCountingClient(t)
	assert.Equal(t, DefaultFetchOptions(), c.Defaults())

	var a, b counter
	require.NoError(t, c.Query(context.Background(), `{ n }`, nil, &a))
	require.NoError(t, c.Query(context.Background(), `{ n }`, nil, &b))

	assert.Equal(t, 1, a.N)
	assert.Equal(t, 2, b.N)
	assert.Equal(t, int32(2), atomic.LoadInt32(&link.calls))
}

func TestClientCacheFirst(t *testing.T) {
	c, link := newCountingClient(t)
	ctx := context.Background()

	var first, second, other counter
	require.NoError(t, c.Query(ctx, `{ n }`, nil, &first, WithFetchPolicy(CacheFirst)))
	require.NoError(t, c.Query(ctx, `{ n }`, nil, &second, WithFetchPolicy(CacheFirst)))
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&link.calls))

	// different variables miss the cache
	require.NoError(t, c.Query(ctx, `{ n }`, map[string]interface{}{"x": 1}, &other, WithFetchPolicy(CacheFirst)))
	assert.Equal(t, int32(2), atomic.LoadInt32(&link.calls))

	// a mutation invalidates cached results
	require.NoError(t, c.Mutate(ctx, `mutation { ok }`, nil, nil))
	require.NoError(t, c.Query(ctx, `{ n }`, nil, &second, WithFetchPolicy(CacheFirst)))
	assert.Equal(t, int32(4), atomic.LoadInt32(&link.calls))
}

func TestClientNetworkOnlyRefreshesCache(t *testing.T) {
	c, link := newCountingClient(t)
	ctx := context.Background()

	var a, b, cached counter
	require.NoError(t, c.Query(ctx, `{ n }`, nil, &a, WithFetchPolicy(NetworkOnly)))
	require.NoError(t, c.Query(ctx, `{ n }`, nil, &b, WithFetchPolicy(NetworkOnly)))
	require.NoError(t, c.Query(ctx, `{ n }`, nil, &cached, WithFetchPolicy(CacheFirst)))

	assert.Equal(t, int32(2), atomic.LoadInt32(&link.calls))
	assert.Equal(t, b, cached)
}

func TestClientFreshResult(t *testing.T) {
	ctx := context.Background()

	t.Run("no-cache stores nothing", func(t *testing.T) {
		c, link := newCountingClient(t)

		var a, b counter
		require.NoError(t, c.Query(ctx, `{ n }`, nil, &a, WithFreshResult()))
		require.NoError(t, c.Query(ctx, `{ n }`, nil, &b, WithFetchPolicy(CacheFirst)))

		assert.Equal(t, int32(2), atomic.LoadInt32(&link.calls))
		assert.NotEqual(t, a, b)
	})

	t.Run("cache-first refreshes the cache", func(t *testing.T) {
		c, link := newCountingClient(t)

		var a, b, cached counter
		require.NoError(t, c.Query(ctx, `{ n }`, nil, &a, WithFetchPolicy(CacheFirst)))
		require.NoError(t, c.Query(ctx, `{ n }`, nil, &b, WithFetchPolicy(CacheFirst), WithFreshResult()))
		require.NoError(t, c.Query(ctx, `{ n }`, nil, &cached, WithFetchPolicy(CacheFirst)))

		assert.Equal(t, int32(2), atomic.LoadInt32(&link.calls))
		assert.Equal(t, b, cached)
	})
}

func TestClientMutationError(t *testing.T) {
	c, _ := newCountingClient(t)

	err := c.Mutate(context.Background(), `mutation { fail }`, nil, nil)
	require.Error(t, err)
	assert.Equal(t, "mutation rejected", ErrorMessage(err))
}

func TestClientSubscribe(t *testing.T) {
	c, _ := newCountingClient(t)

	ch, err := c.Subscribe(context.Background(), `subscription { n }`, nil)
	require.NoError(t, err)

	var got []counter
	for r := range ch {
		require.NoError(t, r.Err)
		var v counter
		require.NoError(t, r.Response.Decode(&v))
		got = append(got, v)
	}
	assert.Equal(t, []counter{{N: 0}}, got)
}

func TestParseFetchPolicy(t *testing.T) {
	p, err := ParseFetchPolicy("")
	require.NoError(t, err)
	assert.Equal(t, NoCache, p)

	p, err = ParseFetchPolicy("cache-first")
	require.NoError(t, err)
	assert.Equal(t, CacheFirst, p)

	_, err = ParseFetchPolicy("cache-and-network")
	assert.Error(t, err)
}

func TestNewClientRequiresLink(t *testing.T) {
	_, err := NewClient(ClientOptions{})
	assert.Error(t, err)
}
