package chatclient

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rahulm682/Chat-App/internal/model"
)

// React applies the user's reaction locally before asking the server, so
// the UI updates immediately. The previous local state is recorded as an
// inverse: if the server rejects the call, the inverse is applied and the
// cache is exactly as it was. On success the authoritative record from the
// server replaces the optimistic one.
func (c *ChatCache) React(ctx context.Context, messageID, emoji string) error {
	oid, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return err
	}

	optimistic := model.Reaction{
		MessageID: oid,
		UserID:    c.identity,
		Emoji:     emoji,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	c.mu.Lock()
	prev, had := c.removeReaction(messageID, c.identity)
	c.mu.Unlock()
	c.ApplyReactionAdded(messageID, optimistic)

	reaction, err := c.rest.AddReaction(ctx, messageID, emoji)
	if err != nil {
		c.rollbackOwn(messageID, prev, had)
		return err
	}

	c.ApplyReactionAdded(messageID, *reaction)
	return nil
}

// Unreact removes the user's reaction optimistically, restoring it if the
// server call fails.
func (c *ChatCache) Unreact(ctx context.Context, messageID string) error {
	c.mu.Lock()
	prev, had := c.removeReaction(messageID, c.identity)
	c.mu.Unlock()

	if _, err := c.rest.RemoveReaction(ctx, messageID); err != nil {
		c.rollbackOwn(messageID, prev, had)
		return err
	}
	return nil
}

// rollbackOwn restores the user's reaction on the message to its recorded
// previous state.
func (c *ChatCache) rollbackOwn(messageID string, prev model.Reaction, had bool) {
	if had {
		c.ApplyReactionAdded(messageID, prev)
		return
	}
	c.mu.Lock()
	c.removeReaction(messageID, c.identity)
	c.mu.Unlock()
}
