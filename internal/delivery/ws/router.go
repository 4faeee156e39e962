package ws

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mmuslimabdulj/persona-chat/internal/domain"
)

type delivery struct {
	msg    []byte
	to     []string
	all    bool
	except string
}

// Router maps live client ids to their connections and fans messages out.
// All mutations happen on the Run loop; sends to unknown ids are dropped.
type Router struct {
	mu      sync.RWMutex
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	deliver    chan delivery
	done       chan struct{}

	log *slog.Logger
}

// NewRouter creates a router; call Run to start it
func NewRouter(log *slog.Logger) *Router {
	return &Router{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run is the router's event loop. It returns when ctx is done, closing every client.
func (r *Router) Run(ctx context.Context) error {
	defer close(r.done)

	for {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			for id, c := range r.clients {
				close(c.send)
				delete(r.clients, id)
			}
			r.mu.Unlock()
			return nil

		case c := <-r.register:
			r.mu.Lock()
			if old, ok := r.clients[c.ID]; ok && old != c {
				// a reconnect replaces the stale connection
				close(old.send)
			}
			r.clients[c.ID] = c
			r.mu.Unlock()
			r.log.Debug("client connected", "client_id", c.ID)

		case c := <-r.unregister:
			r.mu.Lock()
			current, ok := r.clients[c.ID]
			switch {
			case ok && current == c:
				delete(r.clients, c.ID)
				close(c.send)
			case c.evicted:
				c.evicted = false
			default:
				// replaced by a newer connection or already gone
				r.mu.Unlock()
				continue
			}
			r.mu.Unlock()
			r.log.Debug("client disconnected", "client_id", c.ID)
			r.fanOut(delivery{
				msg: domain.Encode(domain.EventPlayerDisconnected, domain.DisconnectedPayload{ClientID: c.ID}),
				all: true,
			})

		case d := <-r.deliver:
			r.fanOut(d)
		}
	}
}

// fanOut runs on the loop. A client whose buffer is full is dropped.
func (r *Router) fanOut(d delivery) {
	r.mu.Lock()
	defer r.mu.Unlock()

	push := func(c *Client) {
		select {
		case c.send <- d.msg:
		default:
			close(c.send)
			delete(r.clients, c.ID)
			c.evicted = true
			r.log.Warn("dropping slow client", "client_id", c.ID)
		}
	}

	if d.all {
		for id, c := range r.clients {
			if id != d.except {
				push(c)
			}
		}
		return
	}
	for _, id := range d.to {
		if c, ok := r.clients[id]; ok {
			push(c)
		}
	}
}

// Connect registers c, replacing any previous connection with the same id
func (r *Router) Connect(c *Client) {
	select {
	case r.register <- c:
	case <-r.done:
	}
}

// Disconnect removes c if it is still the registered connection for its id
func (r *Router) Disconnect(c *Client) {
	select {
	case r.unregister <- c:
	case <-r.done:
	}
}

func (r *Router) enqueue(d delivery) {
	select {
	case r.deliver <- d:
	case <-r.done:
	}
}

// SendTo delivers msg to one client
func (r *Router) SendTo(clientID string, msg []byte) {
	r.enqueue(delivery{msg: msg, to: []string{clientID}})
}

// BroadcastToSet delivers msg to the connected members of clientIDs
func (r *Router) BroadcastToSet(msg []byte, clientIDs []string) {
	r.enqueue(delivery{msg: msg, to: clientIDs})
}

// BroadcastExcept delivers msg to every client but excludeID
func (r *Router) BroadcastExcept(msg []byte, excludeID string) {
	r.enqueue(delivery{msg: msg, all: true, except: excludeID})
}

// ClientCount returns the number of connected clients
func (r *Router) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Connected reports whether clientID has a live connection
func (r *Router) Connected(clientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[clientID]
	return ok
}
