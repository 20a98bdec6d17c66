package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message type constants
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
)

// Message represents a chat message in MongoDB.
//
// A message is immutable after creation except for ReadBy, which is an
// append-only set of identities that have seen it. The sender is added to
// ReadBy at insert time, so unread counts never include a sender's own
// messages. Reactions live in their own collection keyed by (message, user).
type Message struct {
	ID        primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	ChatID    primitive.ObjectID   `json:"chatId" bson:"chat"`
	SenderID  primitive.ObjectID   `json:"senderId" bson:"sender"`
	Content   string               `json:"content" bson:"content"`
	Type      string               `json:"type" bson:"type"`
	ReadBy    []primitive.ObjectID `json:"readBy" bson:"read_by"`
	CreatedAt time.Time            `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time            `json:"updatedAt" bson:"updated_at"`
}

// ReadByContains reports whether the given identity is in the read set.
func (m *Message) ReadByContains(identity primitive.ObjectID) bool {
	for _, id := range m.ReadBy {
		if id == identity {
			return true
		}
	}
	return false
}

// MessageWithReactions is the REST representation of a message: the stored
// document plus its current reaction records.
type MessageWithReactions struct {
	Message   `bson:",inline"`
	Reactions []Reaction `json:"reactions" bson:"-"`
}

// MessagePage is the paginated response for a chat's history. Messages are
// ordered oldest-first; HasMore indicates strictly older pages exist.
type MessagePage struct {
	Messages []MessageWithReactions `json:"messages"`
	HasMore  bool                   `json:"hasMore"`
	Page     int64                  `json:"page"`
	Total    int64                  `json:"total"`
}

// ErrorPayload represents an error response sent to a client via WebSocket.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
