package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat represents a conversation in MongoDB: two participants for a direct
// chat, N for a group. The participant set is treated as immutable here;
// membership edits belong to the external CRUD surface.
type Chat struct {
	ID              primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	IsGroup         bool                 `json:"isGroup" bson:"is_group"`
	ChatName        string               `json:"chatName,omitempty" bson:"chat_name,omitempty"`
	Participants    []primitive.ObjectID `json:"participants" bson:"participants"`
	GroupAdmin      *primitive.ObjectID  `json:"groupAdmin,omitempty" bson:"group_admin,omitempty"`
	LatestMessageID *primitive.ObjectID  `json:"latestMessageId,omitempty" bson:"latest_message,omitempty"`
	CreatedAt       time.Time            `json:"createdAt" bson:"created_at"`
	UpdatedAt       time.Time            `json:"updatedAt" bson:"updated_at"`
}

// HasParticipant reports whether the identity belongs to this chat.
func (c *Chat) HasParticipant(identity primitive.ObjectID) bool {
	for _, p := range c.Participants {
		if p == identity {
			return true
		}
	}
	return false
}

// ChatSummary is the chat-list representation: the chat, its latest message
// preview, and the caller's unread count. UnreadCount is derived on every
// fetch from Message.ReadBy and is never stored.
type ChatSummary struct {
	Chat          `bson:",inline"`
	LatestMessage *Message `json:"latestMessage,omitempty" bson:"-"`
	UnreadCount   int64    `json:"unreadCount" bson:"-"`
}
