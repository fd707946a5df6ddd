// Package channel maintains the websocket connection to the organizer daemon.
//
// The adapter is deliberately thin: it decodes inbound frames into protocol
// events in wire order and transmits outbound requests fire-and-forget. It
// performs no de-duplication and no reconnection; consumers own both
// concerns (the daemon replays state on a fresh connection, so surviving a
// reconnect in place would present stale job and proposal state).
package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sortdesk/sortdesk/internal/protocol"
)

const (
	handshakeTimeout = 10 * time.Second
	// Outbound requests are tiny and user-paced; a small buffer absorbs
	// bursts without ever blocking the event loop.
	outboxSize = 16
	eventsSize = 64
)

// Channel is one live connection to the daemon.
type Channel struct {
	conn   *websocket.Conn
	logger *slog.Logger

	events chan protocol.Event
	outbox chan protocol.Request

	done      chan struct{}
	closeOnce sync.Once
}

// Dial establishes the persistent connection. Plain http(s) endpoints are
// rewritten to their websocket scheme.
func Dial(ctx context.Context, endpoint string, logger *slog.Logger) (*Channel, error) {
	if logger == nil {
		logger = slog.Default()
	}

	endpoint = strings.Replace(endpoint, "http://", "ws://", 1)
	endpoint = strings.Replace(endpoint, "https://", "wss://", 1)
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket connect: %w", err)
	}

	c := &Channel{
		conn:   conn,
		logger: logger,
		events: make(chan protocol.Event, eventsSize),
		outbox: make(chan protocol.Request, outboxSize),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	go c.writeLoop()

	logger.Info("connected to daemon", "endpoint", u.String())
	return c, nil
}

// Events returns the inbound event stream, delivered in wire order, exactly
// once per frame. The channel is closed when the connection is lost or
// Close is called.
func (c *Channel) Events() <-chan protocol.Event {
	return c.events
}

// Send queues an outbound request. It never blocks and gives no delivery
// guarantee; if the outbox is full the request is dropped and logged.
func (c *Channel) Send(req protocol.Request) {
	select {
	case c.outbox <- req:
	case <-c.done:
		c.logger.Warn("send on closed channel dropped", "action", req.Action)
	default:
		c.logger.Warn("outbox full, request dropped", "action", req.Action)
	}
}

// Close tears the connection down. Safe to call more than once.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
	return nil
}

// readLoop decodes frames until the connection dies. Malformed payloads are
// dropped and logged; they never stop the loop.
func (c *Channel) readLoop() {
	defer close(c.events)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("connection lost", "error", err)
				c.Close()
			}
			return
		}

		ev, err := protocol.Decode(data)
		if err != nil {
			c.logger.Warn("dropping malformed frame", "error", err)
			continue
		}
		if u, ok := ev.(protocol.Unknown); ok {
			c.logger.Debug("unknown action", "action", u.Action)
		}

		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

func (c *Channel) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case req := <-c.outbox:
			if err := c.conn.WriteJSON(req); err != nil {
				c.logger.Error("write failed", "action", req.Action, "error", err)
				c.Close()
				return
			}
		}
	}
}
