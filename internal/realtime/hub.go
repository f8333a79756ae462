// Package realtime delivers change notifications to connected clients.
// Mutations publish small envelopes (never message bodies); clients
// re-fetch through the normal read endpoints, which keeps authorization
// in one place. Events travel through redis pub/sub so every server
// instance sees every event, then fan out to that instance's sockets.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const eventsChannel = "huddle:events"

// Event types published by the mutation handlers.
const (
	EventMessageCreated  = "message.created"
	EventMessageUpdated  = "message.updated"
	EventMessageDeleted  = "message.deleted"
	EventReactionToggled = "reaction.toggled"
)

// Event is the notification envelope. WorkspaceID routes it; the rest
// tells the client which container to re-fetch.
type Event struct {
	Type           string     `json:"type"`
	WorkspaceID    uuid.UUID  `json:"workspace_id"`
	ChannelID      *uuid.UUID `json:"channel_id,omitempty"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
	MessageID      int64      `json:"message_id"`
}

// Publisher is what mutation handlers depend on; the hub implements it.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// subscriberBuffer is how many undelivered events a socket may lag
// behind before the hub starts dropping events for it.
const subscriberBuffer = 16

// subscriber owns all writes to one socket. gorilla/websocket allows at
// most one concurrent writer per connection, so fanOut never writes
// directly: it hands events to send and writeLoop is the sole writer.
type subscriber struct {
	conn *websocket.Conn
	send chan Event
	done chan struct{}
	once sync.Once
}

func newSubscriber(conn *websocket.Conn) *subscriber {
	return &subscriber{
		conn: conn,
		send: make(chan Event, subscriberBuffer),
		done: make(chan struct{}),
	}
}

func (s *subscriber) writeLoop(logger *zap.Logger) {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.send:
			if err := s.conn.WriteJSON(event); err != nil {
				// The read loop notices the dead socket and unsubscribes it.
				logger.Debug("write to subscriber", zap.Error(err))
				return
			}
		}
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

type Hub struct {
	rdb    *redis.Client
	logger *zap.Logger

	mu   sync.RWMutex
	subs map[uuid.UUID]map[*websocket.Conn]*subscriber
}

// NewHub creates a hub. rdb may be nil, in which case events are
// delivered to this instance's sockets only.
func NewHub(rdb *redis.Client, logger *zap.Logger) *Hub {
	return &Hub{
		rdb:    rdb,
		logger: logger,
		subs:   make(map[uuid.UUID]map[*websocket.Conn]*subscriber),
	}
}

// Run consumes the redis event stream until ctx is cancelled. Call it in
// its own goroutine; it is a no-op without redis.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb == nil {
		return
	}

	sub := h.rdb.Subscribe(ctx, eventsChannel)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.logger.Warn("bad event payload", zap.Error(err))
				continue
			}
			h.fanOut(event)
		}
	}
}

// Publish sends an event to every instance. Delivery is best effort:
// a failed publish is logged, never surfaced to the mutation that
// triggered it.
func (h *Hub) Publish(ctx context.Context, event Event) {
	if h.rdb == nil {
		h.fanOut(event)
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("marshal event", zap.Error(err))
		return
	}
	if err := h.rdb.Publish(ctx, eventsChannel, payload).Err(); err != nil {
		h.logger.Warn("publish event", zap.Error(err))
	}
}

// Subscribe registers a socket for a workspace's events. The caller is
// responsible for Unsubscribe and for closing the connection.
func (h *Hub) Subscribe(workspaceID uuid.UUID, conn *websocket.Conn) {
	sub := newSubscriber(conn)

	h.mu.Lock()
	if h.subs[workspaceID] == nil {
		h.subs[workspaceID] = make(map[*websocket.Conn]*subscriber)
	}
	h.subs[workspaceID][conn] = sub
	h.mu.Unlock()

	go sub.writeLoop(h.logger)
}

func (h *Hub) Unsubscribe(workspaceID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns := h.subs[workspaceID]; conns != nil {
		if sub := conns[conn]; sub != nil {
			sub.stop()
		}
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.subs, workspaceID)
		}
	}
}

func (h *Hub) fanOut(event Event) {
	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.subs[event.WorkspaceID]))
	for _, sub := range h.subs[event.WorkspaceID] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.send <- event:
		default:
			h.logger.Debug("drop event for slow subscriber")
		}
	}
}
