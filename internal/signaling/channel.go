package signaling

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Mond1c/webrtc-grabber-go/internal/protocol"
)

// Inbound is one delivery from the read pump. Exactly one of the two fields
// is set: Envelope for a decoded signaling message, Err when the channel
// closed (io.EOF-style errors included). After an Err delivery the inbox is
// closed and no further deliveries happen.
type Inbound struct {
	Envelope *protocol.Envelope
	Err      error
}

// Channel is a live signaling connection. Sends may happen from any
// goroutine; receives happen through Inbox.
type Channel struct {
	conn *websocket.Conn

	mu    sync.Mutex // guards writes to conn
	inbox chan Inbound

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the given WebSocket URL and starts the read pump.
// A successful return corresponds to the channel's "open" event.
func Dial(ctx context.Context, wsURL string) (*Channel, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to signaling server: %w", err)
	}

	c := &Channel{
		conn:  conn,
		inbox: make(chan Inbound, 16),
		done:  make(chan struct{}),
	}
	go c.readPump()

	return c, nil
}

// Inbox returns the delivery channel. It is closed after the final Err
// delivery, so ranging over it terminates when the connection does.
func (c *Channel) Inbox() <-chan Inbound {
	return c.inbox
}

// Send writes one envelope, serialized against concurrent senders.
func (c *Channel) Send(env protocol.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(env)
}

// Close tears the connection down. Idempotent; the read pump exits with an
// error delivery shortly after.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// readPump decodes envelopes until the connection fails or Close is called,
// then delivers the terminal error and closes the inbox.
func (c *Channel) readPump() {
	defer close(c.inbox)

	for {
		var env protocol.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			select {
			case c.inbox <- Inbound{Err: err}:
			case <-c.done:
			}
			return
		}

		select {
		case c.inbox <- Inbound{Envelope: &env}:
		case <-c.done:
			return
		}
	}
}
