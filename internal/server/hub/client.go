package hub

import (
	"sync"

	"github.com/google/uuid"

	"github.com/iudanet/mapsync/pkg/api"
)

// outboxSize bounds how many frames may queue for one connection before it
// is considered too slow and dropped.
const outboxSize = 64

// Client is the hub-side handle for one websocket connection. The transport
// layer drains Outbox into the socket and closes the connection when Done
// is signalled.
type Client struct {
	ID string

	outbox    chan api.Envelope
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient() *Client {
	return &Client{
		ID:     uuid.NewString(),
		outbox: make(chan api.Envelope, outboxSize),
		done:   make(chan struct{}),
	}
}

// Outbox is the stream of frames to write to the socket.
func (c *Client) Outbox() <-chan api.Envelope { return c.outbox }

// Done is closed when the hub force-disconnects the client.
func (c *Client) Done() <-chan struct{} { return c.done }

// send enqueues a frame without blocking. A full outbox or a closed client
// reports false so the hub can drop the connection.
func (c *Client) send(env api.Envelope) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.outbox <- env:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}
