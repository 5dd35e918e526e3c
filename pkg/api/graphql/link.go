package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Link sends operations to a backend or to another link.
type Link interface {
	// Execute sends a query or mutation and returns its single response.
	Execute(ctx context.Context, op *Operation) (*Response, error)

	// Subscribe starts a subscription. The channel is closed when the
	// server completes it, on a terminal error, or after ctx is cancelled.
	Subscribe(ctx context.Context, op *Operation) (<-chan Result, error)
}

// Result is one subscription event. Exactly one field is set.
type Result struct {
	Response *Response
	Err      error
}

// TokenSource returns the current Authorization header value, or "" when
// there is none.
type TokenSource func() string

// authLink sets the Authorization header right before the operation is
// forwarded.
type authLink struct {
	token TokenSource
	next  Link
}

// AuthLink wraps next so that every operation carries the header returned
// by token at send time.
func AuthLink(token TokenSource, next Link) Link {
	return &authLink{token: token, next: next}
}

func (l *authLink) withAuth(op *Operation) *Operation {
	out := op.clone()
	if v := l.token(); v != "" {
		out.Header.Set("Authorization", v)
	}
	return out
}

func (l *authLink) Execute(ctx context.Context, op *Operation) (*Response, error) {
	return l.next.Execute(ctx, l.withAuth(op))
}

func (l *authLink) Subscribe(ctx context.Context, op *Operation) (<-chan Result, error) {
	return l.next.Subscribe(ctx, l.withAuth(op))
}

type splitLink struct {
	test        func(*Operation) bool
	left, right Link
}

// Split routes an operation to left when test returns true and to right
// otherwise.
func Split(test func(*Operation) bool, left, right Link) Link {
	return &splitLink{test: test, left: left, right: right}
}

func (l *splitLink) pick(op *Operation) Link {
	if l.test(op) {
		return l.left
	}
	return l.right
}

func (l *splitLink) Execute(ctx context.Context, op *Operation) (*Response, error) {
	return l.pick(op).Execute(ctx, op)
}

func (l *splitLink) Subscribe(ctx context.Context, op *Operation) (<-chan Result, error) {
	return l.pick(op).Subscribe(ctx, op)
}

// HTTPLink posts operations as JSON to <base>/graphql.
type HTTPLink struct {
	url    string
	client *http.Client
}

// NewHTTPLink creates an HTTP link. A nil client uses http.DefaultClient.
func NewHTTPLink(baseURL string, client *http.Client) *HTTPLink {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPLink{url: strings.TrimRight(baseURL, "/") + "/graphql", client: client}
}

// URL returns the endpoint the link posts to.
func (l *HTTPLink) URL() string {
	return l.url
}

func (l *HTTPLink) Execute(ctx context.Context, op *Operation) (*Response, error) {
	body, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("failed to encode operation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, vs := range op.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: err}
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected response body: %s", truncate(raw, 200))}
	}
	// Servers may answer 4xx with a well-formed errors array.
	if resp.StatusCode >= 300 && len(out.Errors) == 0 {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", http.StatusText(resp.StatusCode))}
	}
	return &out, nil
}

// Subscribe is not supported over plain HTTP.
func (l *HTTPLink) Subscribe(context.Context, *Operation) (<-chan Result, error) {
	return nil, fmt.Errorf("subscriptions require a websocket link")
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
