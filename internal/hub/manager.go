package hub

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"hash/fnv"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rahulm682/Chat-App/internal/event"
)

const (
	shardCount = 64 // tune: 16/64/128 depending on load
)

type inboundEvent struct {
	event  event.WsEvent
	client *Client
}

type roomBucket struct {
	sync.RWMutex
	rooms map[string]map[string]*Client // chat id -> connection id -> client
}

// Hub owns all ephemeral coordination state: chat rooms, the presence
// registry, and the viewing tracker. Chat rooms shard by chat id; presence
// and viewing keep their own locks. Inbound events are processed by a fixed
// worker pool, with each connection pinned to one worker queue so its events
// are handled strictly in arrival order.
type Hub struct {
	shards   [shardCount]*roomBucket
	presence *PresenceRegistry
	viewing  *ViewingTracker
	inbound  [workerPoolSize]chan inboundEvent
	logger   *zap.Logger
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

func NewHub(logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		presence: NewPresenceRegistry(),
		viewing:  NewViewingTracker(),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	for i := 0; i < shardCount; i++ {
		h.shards[i] = &roomBucket{
			rooms: make(map[string]map[string]*Client),
		}
	}

	for i := 0; i < workerPoolSize; i++ {
		h.inbound[i] = make(chan inboundEvent, 256)
	}

	// start worker loops
	for i := 0; i < workerPoolSize; i++ {
		queue := h.inbound[i]
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			for {
				select {
				case <-h.ctx.Done():
					return
				case in, ok := <-queue:
					if !ok {
						return
					}
					h.handleEvent(in.event, in.client)
				}
			}
		}()
	}

	return h
}

// Viewing exposes the viewing tracker to the service layer, which needs it
// to decide implicit read acknowledgment on delivery.
func (h *Hub) Viewing() *ViewingTracker { return h.viewing }

// Presence exposes the presence registry.
func (h *Hub) Presence() *PresenceRegistry { return h.presence }

func (h *Hub) handleEvent(ev event.WsEvent, c *Client) {
	switch ev.Event {
	case event.EventDeclareIdentity:
		// Identity is bound at handshake; kept for wire compatibility.
		h.logger.Debug("identity declared",
			zap.String("client_id", c.ID), zap.String("identity", c.identity))
	case event.EventJoinChat:
		if ev.ChatID == "" {
			return
		}
		h.joinRoom(c, ev.ChatID)
	case event.EventViewingChat:
		h.viewing.SetViewing(c.ID, c.identity, ev.ChatID)
	case event.EventTyping, event.EventStopTyping:
		if ev.ChatID == "" {
			return
		}
		out := event.Marshal(ev.Event, ev.ChatID, event.TypingPayload{
			ChatID:     ev.ChatID,
			IdentityID: c.identity,
		})
		h.PublishToRoom(ev.ChatID, out, c.ID)
	case event.EventPresenceRequest:
		h.sendPresenceSnapshot(c)
	default:
		h.logger.Warn("unknown event type", zap.String("event", ev.Event))
		h.sendError(c, "unknown_event", "unrecognized event: "+ev.Event)
	}
}

// addClient registers presence synchronously. A first connection for an
// identity broadcasts a fresh snapshot to everyone.
func (h *Hub) addClient(c *Client) {
	if first := h.presence.Register(c); first {
		h.broadcastPresence()
	}
}

// removeClient runs synchronously on disconnect: room membership, viewing
// state and presence all drop before any later event can observe them.
func (h *Hub) removeClient(c *Client) {
	for _, chatID := range c.joinedRooms() {
		h.leaveRoom(c, chatID)
	}
	h.viewing.ClearConn(c.ID)
	if last := h.presence.Unregister(c); last {
		h.broadcastPresence()
	}

	c.Close()
	h.logger.Debug("client removed",
		zap.String("client_id", c.ID), zap.String("identity", c.identity))
}

func (h *Hub) joinRoom(c *Client, chatID string) {
	b := h.shards[getShard(chatID)]
	b.Lock()
	room, ok := b.rooms[chatID]
	if !ok {
		room = make(map[string]*Client)
		b.rooms[chatID] = room
	}
	room[c.ID] = c
	b.Unlock()

	c.trackRoom(chatID)
}

func (h *Hub) leaveRoom(c *Client, chatID string) {
	b := h.shards[getShard(chatID)]
	b.Lock()
	defer b.Unlock()

	if room, ok := b.rooms[chatID]; ok {
		delete(room, c.ID)
		if len(room) == 0 {
			delete(b.rooms, chatID)
		}
	}
}

// PublishToRoom delivers an event to every connection joined to the chat
// room except the excluded one (typing indicators exclude their sender).
// Chat-room delivery is lossy: a full egress buffer drops the frame.
func (h *Hub) PublishToRoom(chatID string, ev event.WsEvent, excludeConnID string) {
	b := h.shards[getShard(chatID)]

	b.RLock()
	room, ok := b.rooms[chatID]
	if !ok || len(room) == 0 {
		b.RUnlock()
		return
	}
	clients := make([]*Client, 0, len(room))
	for _, c := range room {
		if c.ID != excludeConnID {
			clients = append(clients, c)
		}
	}
	b.RUnlock()

	for _, c := range clients {
		if !c.SafeSend(ev, sendTimeout) {
			h.logger.Warn("room delivery dropped",
				zap.String("chat_id", chatID), zap.String("client_id", c.ID))
		}
	}
}

// PublishToIdentities delivers an event to every connection of each given
// identity, exactly once per connection. This is the fan-out path for
// message-created: it reaches participants whether or not they have joined
// the chat room, so chat-list previews stay current.
func (h *Hub) PublishToIdentities(identities []string, ev event.WsEvent) {
	seen := make(map[string]struct{}, len(identities))
	for _, identity := range identities {
		if _, dup := seen[identity]; dup {
			continue
		}
		seen[identity] = struct{}{}

		for _, c := range h.presence.ClientsFor(identity) {
			if !c.SafeSend(ev, sendTimeout) {
				h.logger.Warn("identity delivery dropped",
					zap.String("identity", identity), zap.String("client_id", c.ID))
			}
		}
	}
}

// ViewersAmong implements the service layer's view into the tracker.
func (h *Hub) ViewersAmong(chatID string, participants []string) []string {
	return h.viewing.ViewersAmong(chatID, participants)
}

func (h *Hub) sendPresenceSnapshot(c *Client) {
	ev := event.Marshal(event.EventPresenceSnapshot, "", event.PresenceSnapshot{
		Identities: h.presence.Snapshot(),
	})
	c.SafeSend(ev, sendTimeout)
}

// broadcastPresence pushes a fresh snapshot to every live connection. A
// missed broadcast self-heals on the next request-presence-snapshot.
func (h *Hub) broadcastPresence() {
	ev := event.Marshal(event.EventPresenceSnapshot, "", event.PresenceSnapshot{
		Identities: h.presence.Snapshot(),
	})
	for _, c := range h.presence.AllClients() {
		c.SafeSend(ev, sendTimeout)
	}
}

// Stop shuts the hub down: workers stop, then all connections close.
// Safe to call more than once; shutdown paths overlap (signal handler and
// deferred container teardown both reach here).
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.cancel()

		for _, c := range h.presence.AllClients() {
			c.Close()
		}

		for i := range h.inbound {
			close(h.inbound[i])
		}
		h.wg.Wait()
	})
}

func getShard(chatID string) uint32 {
	if chatID == "" {
		return 0
	}

	s := sha1.Sum([]byte(chatID))
	return binary.BigEndian.Uint32(s[:4]) % shardCount
}

func inboundSlot(connID string) int {
	f := fnv.New32a()
	f.Write([]byte(connID))
	return int(f.Sum32() % uint32(workerPoolSize))
}

var websocketUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// SetAllowedOrigins restricts websocket upgrades to the configured origins.
func (h *Hub) SetAllowedOrigins(origins []string) {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	websocketUpgrader.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

// ServeWS upgrades an already-authenticated request and registers the
// connection under its identity.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, identity string) {
	conn, err := websocketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	RegisterClient(identity, conn, h)
}

// sendError reports a per-connection failure without closing it.
func (h *Hub) sendError(c *Client, code, msg string) {
	ev := event.Marshal(event.EventError, "", map[string]string{
		"code":    code,
		"message": msg,
	})
	c.SafeSend(ev, time.Second)
}
