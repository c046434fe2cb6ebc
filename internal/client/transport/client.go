// Package transport is the client side of the websocket protocol: framing,
// request/reply correlation and event subscriptions. It knows nothing about
// the cache or sync logic.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/iudanet/mapsync/pkg/api"
)

// ErrNotConnected is returned by Emit and Request while offline.
var ErrNotConnected = errors.New("not connected")

// Client is a websocket connection with request/reply correlation.
// Replies are matched to requests by the envelope id, so server pushes and
// pending requests can interleave freely on one socket.
type Client struct {
	url    string
	logger *slog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	pending   map[string]chan api.Envelope

	handlersMu   sync.RWMutex
	handlers     map[string][]func(json.RawMessage)
	onDisconnect []func(error)
}

func New(url string, logger *slog.Logger) *Client {
	return &Client{
		url:      url,
		logger:   logger,
		pending:  make(map[string]chan api.Envelope),
		handlers: make(map[string][]func(json.RawMessage)),
	}
}

// Connect dials the server and starts the read loop. Calling Connect on an
// already connected client is an error; reconnecting requires the previous
// connection to have failed or been closed first.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return fmt.Errorf("already connected to %s", c.url)
	}
	c.mu.Unlock()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", c.url, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// Connected reports whether the socket is currently up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close tears the connection down. The read loop notices and fires the
// disconnect callbacks.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

// On registers a handler for an uncorrelated server event. Handlers run on
// the read loop goroutine and must not block.
func (c *Client) On(event string, fn func(json.RawMessage)) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers[event] = append(c.handlers[event], fn)
}

// OnDisconnect registers a callback fired when the connection drops.
func (c *Client) OnDisconnect(fn func(error)) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.onDisconnect = append(c.onDisconnect, fn)
}

// Emit sends a fire-and-forget event.
func (c *Client) Emit(event string, v any) error {
	env, err := api.NewEnvelope(event, "", v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", event, err)
	}
	return c.write(env)
}

// Request sends a correlated request and waits for the matching reply or
// ctx cancellation. A dropped connection fails all in-flight requests.
func (c *Client) Request(ctx context.Context, event string, v any) (json.RawMessage, error) {
	id := uuid.NewString()
	env, err := api.NewEnvelope(event, id, v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", event, err)
	}

	replyCh := make(chan api.Envelope, 1)
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	c.pending[id] = replyCh
	c.mu.Unlock()

	if err := c.write(env); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, err
	}

	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()

	case reply, ok := <-replyCh:
		if !ok {
			return nil, ErrNotConnected
		}
		// In-band failures come back as {"error": "..."} on the same id.
		var failure api.ErrorResponse
		if err := json.Unmarshal(reply.Data, &failure); err == nil && failure.Error != "" {
			return nil, fmt.Errorf("%s: %s", event, failure.Error)
		}
		return reply.Data, nil
	}
}

func (c *Client) write(env api.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected || c.conn == nil {
		return ErrNotConnected
	}
	if err := c.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("failed to write %s: %w", env.Event, err)
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	var readErr error
	for {
		var env api.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			readErr = err
			break
		}

		if env.ID != "" {
			c.mu.Lock()
			replyCh, ok := c.pending[env.ID]
			if ok {
				delete(c.pending, env.ID)
			}
			c.mu.Unlock()

			if ok {
				replyCh <- env
				continue
			}
			// Correlated frame nobody is waiting for: request timed out.
			c.logger.Debug("dropping stale reply", "event", env.Event, "id", env.ID)
			continue
		}

		c.dispatch(env)
	}

	c.teardown(readErr)
}

func (c *Client) dispatch(env api.Envelope) {
	c.handlersMu.RLock()
	handlers := c.handlers[env.Event]
	c.handlersMu.RUnlock()

	if len(handlers) == 0 {
		c.logger.Debug("unhandled event", "event", env.Event)
		return
	}
	for _, fn := range handlers {
		fn(env.Data)
	}
}

// teardown marks the client offline, fails pending requests and notifies
// disconnect listeners.
func (c *Client) teardown(cause error) {
	c.mu.Lock()
	c.connected = false
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	pending := c.pending
	c.pending = make(map[string]chan api.Envelope)
	c.mu.Unlock()

	for _, replyCh := range pending {
		close(replyCh)
	}

	c.handlersMu.RLock()
	callbacks := c.onDisconnect
	c.handlersMu.RUnlock()

	for _, fn := range callbacks {
		fn(cause)
	}
}
