package event

import "encoding/json"

// Client -> server event names.
const (
	EventDeclareIdentity = "declare-identity"
	EventJoinChat        = "join-chat"
	EventViewingChat     = "viewing-chat"
	EventTyping          = "typing"
	EventStopTyping      = "stop-typing"
	EventPresenceRequest = "request-presence-snapshot"
)

// Server -> client event names. Typing indicators reuse the client names.
const (
	EventPresenceSnapshot = "presence-snapshot"
	EventMessageCreated   = "message-created"
	EventReactionAdded    = "reaction-added"
	EventReactionRemoved  = "reaction-removed"
	EventError            = "error"
)

// WsEvent is the envelope for every frame on the websocket, both directions.
// Payload stays raw until the handler for the event name decodes it.
type WsEvent struct {
	Event   string          `json:"event"`
	ChatID  string          `json:"chatId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PresenceSnapshot lists every identity that currently has at least one live
// connection. Sent on demand and broadcast whenever the set changes.
type PresenceSnapshot struct {
	Identities []string `json:"identities"`
}

// TypingPayload identifies who is typing in which chat. Lossy by design:
// a stale indicator is corrected by a client-side timeout, not by the server.
type TypingPayload struct {
	ChatID     string `json:"chatId"`
	IdentityID string `json:"identityId"`
}

// ReactionAddedPayload carries the authoritative reaction record after an
// add-or-replace upsert.
type ReactionAddedPayload struct {
	MessageID string          `json:"messageId"`
	Reaction  json.RawMessage `json:"reaction"`
}

// ReactionRemovedPayload tells clients to drop the identity's reaction from
// the message locally.
type ReactionRemovedPayload struct {
	MessageID  string `json:"messageId"`
	IdentityID string `json:"identityId"`
}

// Marshal wraps a payload into a WsEvent, panicking never: marshal errors on
// these closed struct types cannot occur, so a failed marshal yields an
// empty payload.
func Marshal(name, chatID string, payload any) WsEvent {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = nil
	}
	return WsEvent{Event: name, ChatID: chatID, Payload: raw}
}
