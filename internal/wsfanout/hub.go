// Package wsfanout is the WebSocket telemetry bus: it accepts operator
// dashboard connections, sends each a hello handshake frame, and fans out
// heartbeat/diagnostics events from a bounded queue via a dedicated
// dispatcher. Built on github.com/gorilla/websocket, with a hello frame
// and per-client write mutex layered on top. RFC 6455 handshake,
// masking, and ping/pong/close framing are left to gorilla rather than
// hand-rolled (see accept.go for the one handshake detail worth testing
// directly: the accept-key computation).
package wsfanout

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/large-farva/fleetcore/internal/telemetry"
)

// DeviceCounter reports the registry size for the hello frame.
type DeviceCounter interface {
	Size() int
}

// Hub manages WebSocket client connections and fans out broadcast events
// to all of them. Register/unregister/broadcast all flow through
// channels so the dispatcher is the only goroutine that ever touches the
// client map.
type Hub struct {
	devices DeviceCounter

	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	upgrader   websocket.Upgrader
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) writeMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(3 * time.Second))
	return c.conn.WriteMessage(messageType, data)
}

// NewHub allocates a hub bound to devices (for the hello frame's device
// count) with buffered channels.
func NewHub(devices DeviceCounter) *Hub {
	return &Hub{
		devices:    devices,
		clients:    make(map[*client]struct{}),
		register:   make(chan *client, 16),
		unregister: make(chan *client, 16),
		broadcast:  make(chan []byte, 256),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Run is the dispatcher: a single select loop that owns the client map,
// processing registrations, unregistrations, broadcasts, and keepalive
// pings. It closes every client when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ping := time.NewTicker(20 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				_ = c.conn.Close()
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}

		case c := <-h.unregister:
			delete(h.clients, c)
			_ = c.conn.Close()

		case msg := <-h.broadcast:
			for c := range h.clients {
				if err := c.writeMessage(websocket.TextMessage, msg); err != nil {
					delete(h.clients, c)
					_ = c.conn.Close()
				}
			}

		case <-ping.C:
			for c := range h.clients {
				if err := c.writeMessage(websocket.PingMessage, nil); err != nil {
					delete(h.clients, c)
					_ = c.conn.Close()
				}
			}
		}
	}
}

// Handler upgrades incoming requests, sends the hello frame, then
// registers the client with the dispatcher and starts its read loop.
// gorilla/websocket answers ping/close frames with the default handlers
// (pong and echoed close) without any code here.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, "websocket upgrade failed", http.StatusBadRequest)
			return
		}

		c := &client{conn: conn}

		hello := telemetry.Hello{
			Event:       telemetry.Event{Type: telemetry.EventHello, TS: telemetry.NowTS()},
			DeviceCount: h.devices.Size(),
		}
		helloBytes, err := json.Marshal(hello)
		if err == nil {
			_ = c.writeMessage(websocket.TextMessage, helloBytes)
		}

		h.register <- c

		go func() {
			defer func() { h.unregister <- c }()
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			conn.SetPongHandler(func(string) error {
				_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
				return nil
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})
}

// BroadcastJSON marshals v to JSON and queues it for delivery to every
// connected client as a single unfragmented text frame. If the broadcast
// queue is full the event is dropped rather than blocking the caller.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- b:
	default:
	}
}
