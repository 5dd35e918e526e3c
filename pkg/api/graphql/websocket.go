package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"

	"github.com/swiftwave-org/swctl/pkg/log"
)

// Subprotocol is the graphql-transport-ws protocol name.
const Subprotocol = "graphql-transport-ws"

// graphql-transport-ws message types.
const (
	msgConnectionInit = "connection_init"
	msgConnectionAck  = "connection_ack"
	msgPing           = "ping"
	msgPong           = "pong"
	msgSubscribe      = "subscribe"
	msgNext           = "next"
	msgError          = "error"
	msgComplete       = "complete"
)

var errConnClosed = errors.New("websocket connection closed")

// subscriptionBuffer is how many results may queue per subscription before
// the connection's read loop waits for the consumer.
const subscriptionBuffer = 32

type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ConnectionParams returns the connection_init payload. It is called once
// per connection attempt so a refreshed token is picked up on reconnect.
type ConnectionParams func(ctx context.Context) (map[string]interface{}, error)

// WebSocketOptions configures a WebSocketLink.
type WebSocketOptions struct {
	// BaseURL is the ws:// or wss:// origin; /graphql is appended.
	BaseURL string

	ConnectionParams ConnectionParams

	// Retries is how many times a failed connect is retried.
	Retries    int
	MinBackoff time.Duration
	MaxBackoff time.Duration

	// AckTimeout bounds the wait for connection_ack.
	AckTimeout time.Duration

	Dialer *websocket.Dialer
	Logger log.Logger
}

// WebSocketLink runs operations over a lazily opened graphql-transport-ws
// connection shared by all active subscriptions. The connection is closed
// once the last subscription ends.
type WebSocketLink struct {
	opts   WebSocketOptions
	url    string
	logger log.Logger

	mu     sync.Mutex
	conn   *wsConn
	nextID uint64
}

// NewWebSocketLink creates a WebSocket link. No connection is made until the
// first subscription.
func NewWebSocketLink(opts WebSocketOptions) *WebSocketLink {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = 250 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 10 * time.Second
	}
	if opts.AckTimeout <= 0 {
		opts.AckTimeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.GetDefaultLogger()
	}

	return &WebSocketLink{
		opts:   opts,
		url:    strings.TrimRight(opts.BaseURL, "/") + "/graphql",
		logger: logger.WithComponent("graphql-ws"),
	}
}

// URL returns the socket endpoint.
func (l *WebSocketLink) URL() string {
	return l.url
}

// Subscribe sends a subscribe message and streams the results.
func (l *WebSocketLink) Subscribe(ctx context.Context, op *Operation) (<-chan Result, error) {
	payload, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("failed to encode operation: %w", err)
	}

	// A connection may close between lookup and registration when its last
	// subscription ends; retry once on a fresh one.
	for attempt := 0; attempt < 2; attempt++ {
		conn, err := l.connection(ctx)
		if err != nil {
			return nil, err
		}

		id := strconv.FormatUint(atomic.AddUint64(&l.nextID, 1), 10)
		sub, err := conn.start(id, payload)
		if errors.Is(err, errConnClosed) {
			continue
		}
		if err != nil {
			return nil, err
		}

		go func() {
			select {
			case <-ctx.Done():
				conn.stop(sub, true)
			case <-sub.done:
			}
		}()
		return sub.ch, nil
	}
	return nil, &TransportError{Err: errConnClosed}
}

// Execute runs a query or mutation over the socket and returns the first
// result.
func (l *WebSocketLink) Execute(ctx context.Context, op *Operation) (*Response, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := l.Subscribe(ctx, op)
	if err != nil {
		return nil, err
	}
	select {
	case r, ok := <-ch:
		if !ok {
			return nil, &TransportError{Err: errors.New("operation completed without a result")}
		}
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Response, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close drops the current connection and ends its subscriptions.
func (l *WebSocketLink) Close() error {
	l.mu.Lock()
	conn := l.conn
	l.conn = nil
	l.mu.Unlock()

	if conn != nil {
		conn.shutdown(nil)
	}
	return nil
}

// connection returns the live connection, dialing one if needed.
func (l *WebSocketLink) connection(ctx context.Context) (*wsConn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil && !l.conn.isClosed() {
		return l.conn, nil
	}

	b := &backoff.Backoff{Min: l.opts.MinBackoff, Max: l.opts.MaxBackoff, Factor: 2, Jitter: true}
	for attempt := 0; ; attempt++ {
		conn, err := l.dial(ctx)
		if err == nil {
			l.conn = conn
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt >= l.opts.Retries {
			return nil, &TransportError{Err: err}
		}

		wait := b.Duration()
		l.logger.Debug("WebSocket connect failed, retrying",
			log.Err(err), log.Int("attempt", attempt+1), log.Duration("wait", wait))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// dial connects and completes the connection_init handshake.
func (l *WebSocketLink) dial(ctx context.Context) (*wsConn, error) {
	var params map[string]interface{}
	if l.opts.ConnectionParams != nil {
		p, err := l.opts.ConnectionParams(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve connection params: %w", err)
		}
		params = p
	}

	dialer := *l.opts.Dialer
	dialer.Subprotocols = []string{Subprotocol}

	ws, resp, err := dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial %s: status %d: %w", l.url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial %s: %w", l.url, err)
	}

	init := wsMessage{Type: msgConnectionInit}
	if params != nil {
		if init.Payload, err = json.Marshal(params); err != nil {
			ws.Close()
			return nil, fmt.Errorf("failed to encode connection params: %w", err)
		}
	}
	if err := ws.WriteJSON(init); err != nil {
		ws.Close()
		return nil, fmt.Errorf("failed to send connection_init: %w", err)
	}

	if err := awaitAck(ws, l.opts.AckTimeout); err != nil {
		ws.Close()
		return nil, err
	}

	conn := &wsConn{
		ws:     ws,
		logger: l.logger,
		subs:   make(map[string]*wsSubscription),
		closed: make(chan struct{}),
	}
	go conn.readLoop()

	l.logger.Debug("WebSocket connected", log.Str("url", l.url))
	return conn, nil
}

func awaitAck(ws *websocket.Conn, timeout time.Duration) error {
	if err := ws.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	for {
		var msg wsMessage
		if err := ws.ReadJSON(&msg); err != nil {
			return fmt.Errorf("connection not acknowledged: %w", err)
		}
		switch msg.Type {
		case msgConnectionAck:
			return ws.SetReadDeadline(time.Time{})
		case msgPing:
			if err := ws.WriteJSON(wsMessage{Type: msgPong}); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unexpected %q before connection_ack", msg.Type)
		}
	}
}

// wsConn is one acknowledged socket. The read loop is the only goroutine
// that delivers to subscriptions.
type wsConn struct {
	ws     *websocket.Conn
	logger log.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	subs     map[string]*wsSubscription
	closed   chan struct{}
	shutOnce sync.Once
}

func (c *wsConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *wsConn) write(msg wsMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(msg)
}

// start registers a subscription and sends the subscribe message.
func (c *wsConn) start(id string, payload json.RawMessage) (*wsSubscription, error) {
	sub := &wsSubscription{
		id:   id,
		ch:   make(chan Result, subscriptionBuffer),
		done: make(chan struct{}),
	}

	c.mu.Lock()
	if c.isClosed() {
		c.mu.Unlock()
		return nil, errConnClosed
	}
	c.subs[id] = sub
	c.mu.Unlock()

	if err := c.write(wsMessage{ID: id, Type: msgSubscribe, Payload: payload}); err != nil {
		c.stop(sub, false)
		return nil, &TransportError{Err: fmt.Errorf("failed to send subscribe: %w", err)}
	}
	return sub, nil
}

// stop ends sub. When notify is set and the subscription was still active a
// complete message is sent to the server. The socket is closed once no
// subscriptions remain.
func (c *wsConn) stop(sub *wsSubscription, notify bool) {
	c.mu.Lock()
	_, active := c.subs[sub.id]
	delete(c.subs, sub.id)
	idle := len(c.subs) == 0
	c.mu.Unlock()

	if active && notify {
		if err := c.write(wsMessage{ID: sub.id, Type: msgComplete}); err != nil {
			c.logger.Debug("Failed to send complete", log.Str("id", sub.id), log.Err(err))
		}
	}
	sub.close()

	if active && idle {
		c.shutdown(nil)
	}
}

// shutdown closes the socket and ends every subscription, delivering err
// first when it is non-nil.
func (c *wsConn) shutdown(err error) {
	c.shutOnce.Do(func() {
		c.mu.Lock()
		close(c.closed)
		subs := c.subs
		c.subs = make(map[string]*wsSubscription)
		c.mu.Unlock()

		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		c.ws.Close()

		for _, sub := range subs {
			if err != nil {
				sub.deliver(Result{Err: &TransportError{Err: err}})
			}
			sub.close()
		}
	})
}

func (c *wsConn) lookup(id string) *wsSubscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs[id]
}

func (c *wsConn) readLoop() {
	for {
		var msg wsMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			if !c.isClosed() {
				c.logger.Debug("WebSocket read failed", log.Err(err))
				go c.shutdown(err)
			}
			return
		}

		switch msg.Type {
		case msgPing:
			if err := c.write(wsMessage{Type: msgPong}); err != nil {
				c.logger.Debug("Failed to answer ping", log.Err(err))
			}
		case msgPong:
		case msgNext:
			sub := c.lookup(msg.ID)
			if sub == nil {
				continue
			}
			var resp Response
			if err := json.Unmarshal(msg.Payload, &resp); err != nil {
				sub.deliver(Result{Err: fmt.Errorf("failed to decode payload: %w", err)})
				continue
			}
			sub.deliver(Result{Response: &resp})
		case msgError:
			sub := c.lookup(msg.ID)
			if sub == nil {
				continue
			}
			var gerrs Errors
			if err := json.Unmarshal(msg.Payload, &gerrs); err != nil || len(gerrs) == 0 {
				gerrs = Errors{{Message: "subscription failed"}}
			}
			sub.deliver(Result{Err: gerrs})
			c.stop(sub, false)
		case msgComplete:
			if sub := c.lookup(msg.ID); sub != nil {
				c.stop(sub, false)
			}
		default:
			c.logger.Debug("Ignoring message", log.Str("type", msg.Type))
		}
	}
}

// wsSubscription delivers results to one consumer. deliver and close
// serialize on mu so ch is never written after it is closed.
type wsSubscription struct {
	id   string
	ch   chan Result
	done chan struct{}

	mu       sync.Mutex
	closed   bool
	doneOnce sync.Once
}

func (s *wsSubscription) deliver(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case s.ch <- r:
	case <-s.done:
	}
}

func (s *wsSubscription) close() {
	s.doneOnce.Do(func() { close(s.done) })

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
