// Package sync pushes wishlist state between devices over websockets: each
// connected device gets a full snapshot on connect, receives snapshots other
// devices write, and may push its own. Conflicts resolve by last write wins;
// the only protection against a device re-applying its own write is the
// echo-suppression Guard.
package sync

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avoskres/wishkeeper/internal/metrics"
	"github.com/avoskres/wishkeeper/internal/models"
	"github.com/avoskres/wishkeeper/internal/store"
)

// Message types exchanged with devices.
const (
	MessageTypeSnapshot = "snapshot"
	MessageTypeNotice   = "notice"
)

// Message is the wire format on the websocket channel.
type Message struct {
	Type  string        `json:"type"`
	State *models.State `json:"state,omitempty"`
	Text  string        `json:"text,omitempty"`
	Time  int64         `json:"time"`
}

func snapshotMessage(st *models.State) Message {
	return Message{Type: MessageTypeSnapshot, State: st, Time: time.Now().UnixMilli()}
}

type envelope struct {
	msg     Message
	exclude string // client id that must not receive the message
}

// Hub maintains the set of connected devices and fans snapshots out to them.
type Hub struct {
	store  *store.Store
	guard  *Guard
	logger *logrus.Logger

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan envelope
}

// NewHub creates a hub over the given store. Wire it to the store with
// hub.Attach and start it with Run before serving connections.
func NewHub(st *store.Store, logger *logrus.Logger) *Hub {
	return &Hub{
		store:      st,
		guard:      &Guard{},
		logger:     logger,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		// Buffered so store mutations never block on a busy hub loop.
		broadcast: make(chan envelope, 16),
	}
}

// Attach registers the hub as the store's change and notice listener.
func (h *Hub) Attach() {
	h.store.OnChange(h.broadcastLocalChange)
	h.store.OnNotice(h.BroadcastNotice)
}

// Run processes registrations and broadcasts until the channels close with
// the process. Run exactly once, in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.logger.WithField("client_id", c.ID).Infof("Device connected, %d online", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.logger.WithField("client_id", c.ID).Infof("Device disconnected, %d online", len(h.clients))
			}

		case env := <-h.broadcast:
			for c := range h.clients {
				if c.ID == env.exclude {
					continue
				}
				select {
				case c.send <- env.msg:
				default:
					// Slow consumer; drop it rather than stall the hub.
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// broadcastLocalChange pushes a locally mutated state to every device. The
// guard is held for the hand-off so the write's echo is not re-applied; if
// the guard is already held the change is this device applying a remote
// snapshot, which must not bounce back.
func (h *Hub) broadcastLocalChange(st *models.State) {
	if !h.guard.Begin() {
		metrics.SyncSnapshots.WithLabelValues("dropped").Inc()
		return
	}
	defer h.guard.End()

	metrics.SyncSnapshots.WithLabelValues("out").Inc()
	h.broadcast <- envelope{msg: snapshotMessage(st)}
}

// BroadcastNotice sends a transient user-visible notice to every device.
func (h *Hub) BroadcastNotice(text string) {
	h.broadcast <- envelope{msg: Message{
		Type: MessageTypeNotice,
		Text: text,
		Time: time.Now().UnixMilli(),
	}}
}

// handleSnapshot applies a snapshot pushed by one device and relays it to the
// others. Snapshots arriving while the guard is held are treated as echoes of
// this process's own write and dropped; see Guard for the race this admits.
func (h *Hub) handleSnapshot(from *Client, msg Message) {
	if h.guard.Active() {
		metrics.SyncSnapshots.WithLabelValues("dropped").Inc()
		h.logger.WithField("client_id", from.ID).Debug("Dropped snapshot during local write")
		return
	}

	if !h.store.Replace(msg.State) {
		h.logger.WithField("client_id", from.ID).Warn("Ignored empty remote snapshot")
		return
	}

	metrics.SyncSnapshots.WithLabelValues("in").Inc()
	metrics.SyncSnapshots.WithLabelValues("out").Inc()
	h.broadcast <- envelope{msg: snapshotMessage(msg.State), exclude: from.ID}
}
