package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rahulm682/Chat-App/internal/event"
	"github.com/rahulm682/Chat-App/internal/model"
)

// CacheState is the per-chat loading state.
type CacheState int

const (
	StateEmpty CacheState = iota
	StateLoading
	StateLoaded
	StateLoadingMore
)

// ChatCache holds the message list for the currently open chat. Messages
// are kept oldest-first, the order they render in. History pages prepend,
// live messages append, and every mutation dedupes by message id so a
// message delivered both live and in a page appears once.
type ChatCache struct {
	rest     *RestClient
	identity primitive.ObjectID
	pageSize int64

	// Called when a message lands in a chat other than the open one.
	// The receiver is expected to refetch unread counts.
	onUnreadHint func(chatID string)

	mu       sync.Mutex
	gen      uint64
	chatID   string
	state    CacheState
	messages []model.MessageWithReactions
	page     int64
	hasMore  bool
}

func NewChatCache(rest *RestClient, identity string, pageSize int64, onUnreadHint func(chatID string)) (*ChatCache, error) {
	oid, err := primitive.ObjectIDFromHex(identity)
	if err != nil {
		return nil, fmt.Errorf("invalid identity id: %w", err)
	}
	if pageSize < 1 {
		pageSize = 15
	}
	return &ChatCache{
		rest:         rest,
		identity:     oid,
		pageSize:     pageSize,
		onUnreadHint: onUnreadHint,
	}, nil
}

// Open switches the cache to the given chat: discards previous state,
// fetches the newest page and leaves the cache Loaded. A newer Open while
// the fetch is in flight wins; the stale result is dropped.
func (c *ChatCache) Open(ctx context.Context, chatID string) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.chatID = chatID
	c.state = StateLoading
	c.messages = nil
	c.page = 0
	c.hasMore = false
	c.mu.Unlock()

	result, err := c.rest.GetMessages(ctx, chatID, 1, c.pageSize)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	if err != nil {
		c.state = StateEmpty
		return err
	}

	// Live messages that arrived while the fetch was in flight are sitting
	// in c.messages. Anything the page did not deliver is newer than the
	// page window, so it stays, appended after the page, deduped by id.
	seen := make(map[primitive.ObjectID]struct{}, len(result.Messages))
	for _, m := range result.Messages {
		seen[m.ID] = struct{}{}
	}
	merged := result.Messages
	for _, m := range c.messages {
		if _, dup := seen[m.ID]; !dup {
			merged = append(merged, m)
		}
	}
	c.messages = merged
	c.page = 1
	c.hasMore = result.HasMore
	c.state = StateLoaded
	return nil
}

// LoadMore fetches the next strictly-older page and prepends it. It is a
// no-op unless the cache is Loaded with more history available.
func (c *ChatCache) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateLoaded || !c.hasMore {
		c.mu.Unlock()
		return nil
	}
	gen := c.gen
	chatID := c.chatID
	nextPage := c.page + 1
	c.state = StateLoadingMore
	c.mu.Unlock()

	result, err := c.rest.GetMessages(ctx, chatID, nextPage, c.pageSize)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	if err != nil {
		c.state = StateLoaded
		return err
	}

	seen := make(map[primitive.ObjectID]struct{}, len(c.messages))
	for _, m := range c.messages {
		seen[m.ID] = struct{}{}
	}
	older := make([]model.MessageWithReactions, 0, len(result.Messages))
	for _, m := range result.Messages {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		older = append(older, m)
	}
	c.messages = append(older, c.messages...)
	c.page = nextPage
	c.hasMore = result.HasMore
	c.state = StateLoaded
	return nil
}

// ApplyMessageCreated merges a live message. It appends only when the
// message belongs to the open chat; a message for any other chat — or for
// a cache holding no loaded chat — raises the unread hint instead, so the
// chat-list badge updates either way. Redelivery of an id already cached
// is ignored.
func (c *ChatCache) ApplyMessageCreated(chatID string, msg model.MessageWithReactions) {
	c.mu.Lock()
	if chatID != c.chatID || c.state == StateEmpty {
		hint := c.onUnreadHint
		c.mu.Unlock()
		if hint != nil {
			hint(chatID)
		}
		return
	}
	for _, m := range c.messages {
		if m.ID == msg.ID {
			c.mu.Unlock()
			return
		}
	}
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
}

// ApplyReactionAdded merges a reaction record last-writer-wins: the new
// record replaces any existing reaction by the same user on the message.
func (c *ChatCache) ApplyReactionAdded(messageID string, reaction model.Reaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexOf(messageID)
	if idx < 0 {
		return
	}
	msg := &c.messages[idx]
	for i, r := range msg.Reactions {
		if r.UserID == reaction.UserID {
			msg.Reactions[i] = reaction
			return
		}
	}
	msg.Reactions = append(msg.Reactions, reaction)
}

// ApplyReactionRemoved drops the identity's reaction from the message.
func (c *ChatCache) ApplyReactionRemoved(messageID, identityID string) {
	oid, err := primitive.ObjectIDFromHex(identityID)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeReaction(messageID, oid)
}

// Messages returns a snapshot of the open chat's messages, oldest-first.
func (c *ChatCache) Messages() []model.MessageWithReactions {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.MessageWithReactions, len(c.messages))
	copy(out, c.messages)
	return out
}

// State returns the current loading state.
func (c *ChatCache) State() CacheState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HasMore reports whether older history pages remain.
func (c *ChatCache) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

// OpenChatID returns the chat the cache is tracking, empty when none.
func (c *ChatCache) OpenChatID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chatID
}

// Handlers returns session handlers wired to this cache, decoding raw
// reaction payloads before merging them.
func (c *ChatCache) Handlers() Handlers {
	return Handlers{
		OnMessageCreated: c.ApplyMessageCreated,
		OnReactionAdded: func(_ string, payload event.ReactionAddedPayload) {
			var reaction model.Reaction
			if err := json.Unmarshal(payload.Reaction, &reaction); err != nil {
				return
			}
			c.ApplyReactionAdded(payload.MessageID, reaction)
		},
		OnReactionRemoved: func(_ string, payload event.ReactionRemovedPayload) {
			c.ApplyReactionRemoved(payload.MessageID, payload.IdentityID)
		},
	}
}

// indexOf returns the position of the message with the given hex id, or -1.
// Callers hold c.mu.
func (c *ChatCache) indexOf(messageID string) int {
	oid, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return -1
	}
	for i := range c.messages {
		if c.messages[i].ID == oid {
			return i
		}
	}
	return -1
}

// removeReaction drops userID's reaction from the message and returns the
// removed record. Callers hold c.mu.
func (c *ChatCache) removeReaction(messageID string, userID primitive.ObjectID) (model.Reaction, bool) {
	idx := c.indexOf(messageID)
	if idx < 0 {
		return model.Reaction{}, false
	}
	msg := &c.messages[idx]
	for i, r := range msg.Reactions {
		if r.UserID == userID {
			removed := r
			msg.Reactions = append(msg.Reactions[:i], msg.Reactions[i+1:]...)
			return removed, true
		}
	}
	return model.Reaction{}, false
}
