package hub

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rahulm682/Chat-App/internal/event"
)

const (
	// tuning parameters
	writeWait          = 10 * time.Second       // time allowed to write a message to the peer
	pongWait           = 20 * time.Second       // time allowed to read the next pong message from the peer
	pingInterval       = (pongWait * 9) / 10    // send pings to peer with this period
	maxMessageSize     = 64 * 1024              // max inbound message size (64KB)
	sendBufSize        = 256                    // per-connection outbound buffer size
	workerPoolSize     = 16                     // number of workers to process inbound events
	sendTimeout        = 2 * time.Second        // timeout for enqueuing outbound messages
	inboundSendTimeout = 500 * time.Millisecond // timeout for sending to inbound channel
)

// Client is one live websocket connection bound to exactly one identity at
// handshake time. It owns no durable state and is destroyed on disconnect.
type Client struct {
	ID       string
	identity string
	conn     *websocket.Conn
	hub      *Hub
	egress   chan event.WsEvent
	slot     int // inbound queue index; fixed per connection to keep event order

	// joined chat rooms, tracked for cleanup on disconnect
	rooms   map[string]struct{}
	roomsMu sync.Mutex

	ctx            context.Context
	cancel         context.CancelFunc
	once           sync.Once
	connClosed     chan struct{}
	connClosedOnce sync.Once
	closed         bool
	closedMu       sync.RWMutex
}

// Identity returns the identity the connection authenticated as.
func (c *Client) Identity() string { return c.identity }

// RegisterClient creates a client for an authenticated connection, registers
// its presence synchronously, and starts the read/write pumps. Presence is
// registered before the first frame can be read, so a snapshot requested
// immediately after connecting always includes the connection's own identity.
func RegisterClient(identity string, conn *websocket.Conn, h *Hub) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	clientID := uuid.New().String()

	client := &Client{
		ID:             clientID,
		identity:       identity,
		conn:           conn,
		hub:            h,
		egress:         make(chan event.WsEvent, sendBufSize),
		slot:           inboundSlot(clientID),
		rooms:          make(map[string]struct{}),
		ctx:            ctx,
		cancel:         cancel,
		connClosed:     make(chan struct{}),
		connClosedOnce: sync.Once{},
	}

	h.addClient(client)

	go client.readEvents()
	go client.writeEvents()

	h.logger.Debug("client registered",
		zap.String("client_id", clientID),
		zap.String("identity", identity),
	)
	return client
}

func (c *Client) readEvents() {
	defer func() {
		// Presence and viewing cleanup happens here, synchronously, before
		// this connection can produce or consume anything else.
		c.hub.removeClient(c)
		c.Close()
	}()

	c.conn.SetReadLimit(int64(maxMessageSize))
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(c.pongHandler)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			var ev event.WsEvent

			if err := c.conn.ReadJSON(&ev); err != nil {
				if websocket.IsCloseError(err,
					websocket.CloseNormalClosure,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
				) {
					c.hub.logger.Debug("client disconnected", zap.String("client_id", c.ID))
					return
				}

				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseInternalServerErr,
					websocket.CloseProtocolError,
				) {
					c.hub.logger.Warn("unexpected close",
						zap.String("client_id", c.ID), zap.Error(err))
				}

				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					c.hub.logger.Debug("client timed out", zap.String("client_id", c.ID))
					return
				}

				c.hub.logger.Warn("read error",
					zap.String("client_id", c.ID), zap.Error(err))
				return
			}

			// Enqueue to this connection's fixed inbound queue so its events
			// are processed strictly in arrival order.
			select {
			case c.hub.inbound[c.slot] <- inboundEvent{client: c, event: ev}:
			case <-time.After(inboundSendTimeout):
				c.hub.logger.Warn("inbound queue full, dropping client",
					zap.String("client_id", c.ID))
				c.cancel()
				c.conn.Close()
			case <-c.ctx.Done():
				return
			}
		}
	}
}

func (c *Client) writeEvents() {
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()

		c.connClosedOnce.Do(func() {
			close(c.connClosed)
		})
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		case ev, ok := <-c.egress:
			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, nil); err != nil {
					c.hub.logger.Debug("close write failed",
						zap.String("client_id", c.ID), zap.Error(err))
				}
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.hub.logger.Warn("write error",
					zap.String("client_id", c.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.hub.logger.Debug("ping failed",
					zap.String("client_id", c.ID), zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) pongHandler(string) error {
	return c.conn.SetReadDeadline(time.Now().Add(pongWait))
}

// Close tears the client down exactly once.
func (c *Client) Close() {
	c.once.Do(func() {
		c.closedMu.Lock()
		c.closed = true
		c.closedMu.Unlock()

		c.cancel()
		close(c.egress)

		// Wait for writeEvents to close conn, or force close after timeout
		go func() {
			select {
			case <-c.connClosed:
			case <-time.After(5 * time.Second):
				_ = c.conn.Close()
			}
		}()
	})
}

// IsClosed returns true if the client has been closed.
func (c *Client) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}

// SafeSend attempts to enqueue an event for delivery. Returns false if the
// client is closed or the egress buffer stays full past the timeout; the
// caller decides whether that loss matters.
func (c *Client) SafeSend(ev event.WsEvent, timeout time.Duration) bool {
	if c.IsClosed() {
		return false
	}

	select {
	case <-c.ctx.Done():
		return false
	case c.egress <- ev:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (c *Client) trackRoom(chatID string) {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	c.rooms[chatID] = struct{}{}
}

func (c *Client) joinedRooms() []string {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()

	out := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		out = append(out, id)
	}
	return out
}
