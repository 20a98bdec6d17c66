package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rahulm682/Chat-App/internal/event"
	"github.com/rahulm682/Chat-App/internal/model"
)

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 5 * time.Second
)

// Handlers receives decoded server events. Nil fields are skipped. All
// callbacks run on the session's single read goroutine, so they see events
// in the exact order the server sent them.
type Handlers struct {
	OnMessageCreated  func(chatID string, msg model.MessageWithReactions)
	OnReactionAdded   func(chatID string, payload event.ReactionAddedPayload)
	OnReactionRemoved func(chatID string, payload event.ReactionRemovedPayload)
	OnTyping          func(payload event.TypingPayload)
	OnStopTyping      func(payload event.TypingPayload)
	OnPresence        func(snapshot event.PresenceSnapshot)
	OnServerError     func(payload model.ErrorPayload)
}

// Session is one live websocket connection to the chat server.
type Session struct {
	conn     *websocket.Conn
	handlers Handlers

	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once
	readErr error
}

// Dial opens a websocket session. The token travels in the query string
// because browsers cannot set headers on the websocket handshake; a bad
// token fails the handshake with 401 before any event is processed.
func Dial(ctx context.Context, rawURL, token string, handlers Handlers) (*Session, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake rejected: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	s := &Session{
		conn:     conn,
		handlers: handlers,
		done:     make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Done is closed when the read loop exits, normally or not.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the read loop's terminal error, nil after a clean close.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.readErr
	default:
		return nil
	}
}

func (s *Session) Close() error {
	var err error
	s.once.Do(func() {
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}

func (s *Session) readLoop() {
	defer close(s.done)
	for {
		var ev event.WsEvent
		if err := s.conn.ReadJSON(&ev); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.readErr = err
			}
			return
		}
		s.dispatch(ev)
	}
}

func (s *Session) dispatch(ev event.WsEvent) {
	switch ev.Event {
	case event.EventMessageCreated:
		if s.handlers.OnMessageCreated == nil {
			return
		}
		var msg model.MessageWithReactions
		if err := json.Unmarshal(ev.Payload, &msg); err != nil {
			return
		}
		s.handlers.OnMessageCreated(ev.ChatID, msg)

	case event.EventReactionAdded:
		if s.handlers.OnReactionAdded == nil {
			return
		}
		var payload event.ReactionAddedPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return
		}
		s.handlers.OnReactionAdded(ev.ChatID, payload)

	case event.EventReactionRemoved:
		if s.handlers.OnReactionRemoved == nil {
			return
		}
		var payload event.ReactionRemovedPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return
		}
		s.handlers.OnReactionRemoved(ev.ChatID, payload)

	case event.EventTyping:
		if s.handlers.OnTyping == nil {
			return
		}
		var payload event.TypingPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return
		}
		s.handlers.OnTyping(payload)

	case event.EventStopTyping:
		if s.handlers.OnStopTyping == nil {
			return
		}
		var payload event.TypingPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return
		}
		s.handlers.OnStopTyping(payload)

	case event.EventPresenceSnapshot:
		if s.handlers.OnPresence == nil {
			return
		}
		var snapshot event.PresenceSnapshot
		if err := json.Unmarshal(ev.Payload, &snapshot); err != nil {
			return
		}
		s.handlers.OnPresence(snapshot)

	case event.EventError:
		if s.handlers.OnServerError == nil {
			return
		}
		var payload model.ErrorPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return
		}
		s.handlers.OnServerError(payload)
	}
}

func (s *Session) send(ev event.WsEvent) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(ev)
}

// JoinChat subscribes this connection to the chat's room so it receives
// typing indicators and reaction events for it.
func (s *Session) JoinChat(chatID string) error {
	return s.send(event.WsEvent{Event: event.EventJoinChat, ChatID: chatID})
}

// MarkViewing tells the server which chat is open on this connection.
// Pass the empty string to declare no chat open.
func (s *Session) MarkViewing(chatID string) error {
	return s.send(event.WsEvent{Event: event.EventViewingChat, ChatID: chatID})
}

// Typing signals that the user started composing in the chat.
func (s *Session) Typing(chatID string) error {
	return s.send(event.WsEvent{Event: event.EventTyping, ChatID: chatID})
}

// StopTyping clears the typing indicator.
func (s *Session) StopTyping(chatID string) error {
	return s.send(event.WsEvent{Event: event.EventStopTyping, ChatID: chatID})
}

// RequestPresence asks for a fresh presence snapshot, delivered to the
// OnPresence handler.
func (s *Session) RequestPresence() error {
	return s.send(event.WsEvent{Event: event.EventPresenceRequest})
}
