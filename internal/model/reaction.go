package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AllowedEmojis is the set of reactions a client may attach to a message.
var AllowedEmojis = []string{"👍", "❤️", "😊", "😮", "😢", "😡"}

// EmojiAllowed reports whether the emoji is in the allowed reaction set.
func EmojiAllowed(emoji string) bool {
	for _, e := range AllowedEmojis {
		if e == emoji {
			return true
		}
	}
	return false
}

// Reaction is one identity's emoji on one message. The (message, user) pair
// is unique: replacing an existing reaction is an upsert, never an insert.
type Reaction struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	MessageID primitive.ObjectID `json:"messageId" bson:"message"`
	UserID    primitive.ObjectID `json:"userId" bson:"user"`
	Emoji     string             `json:"emoji" bson:"emoji"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updated_at"`
}
