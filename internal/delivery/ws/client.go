package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/mmuslimabdulj/persona-chat/internal/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	sendBuffer = 256
)

// Inbound receives chat messages read from a client
type Inbound interface {
	HandleInbound(ctx context.Context, clientID string, msg domain.InboundMessage)
}

// Client is a single websocket connection
type Client struct {
	ID      string
	router  *Router
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter

	// set by the router loop when the client was dropped for being slow
	evicted bool
}

// NewClient creates a client for conn. limiter bounds inbound messages; nil means unlimited.
func NewClient(router *Router, conn *websocket.Conn, id string, limiter *rate.Limiter) *Client {
	return &Client{
		ID:      id,
		router:  router,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		limiter: limiter,
	}
}

// ReadPump reads envelopes from the connection until it fails, then disconnects the client.
// Handling never blocks on agent replies.
func (c *Client) ReadPump(ctx context.Context, in Inbound, maxMessageSize int64) {
	defer func() {
		c.router.Disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.router.log.Debug("websocket closed unexpectedly", "client_id", c.ID, "error", err)
			}
			return
		}

		var env domain.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		if env.Type != domain.EventMessage {
			continue
		}

		var msg domain.InboundMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			continue
		}
		if c.limiter != nil && !c.limiter.Allow() {
			c.router.log.Debug("inbound message rate limited", "client_id", c.ID)
			continue
		}
		in.HandleInbound(ctx, c.ID, msg)
	}
}

// WritePump writes queued envelopes to the connection, one frame each, and keeps it alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// router closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// drain what queued up meanwhile
			n := len(c.send)
			for range n {
				next, ok := <-c.send
				if !ok {
					c.conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.conn.WriteMessage(websocket.TextMessage, next); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
