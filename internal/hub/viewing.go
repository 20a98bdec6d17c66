package hub

import (
	"sort"
	"sync"

	"github.com/rahulm682/Chat-App/internal/model"
)

type viewEntry struct {
	identity string
	chatID   string
}

// ViewingTracker records which chat each connection currently foregrounds
// and derives the identity-scoped view: an identity is "viewing" a chat while
// at least one of its connections has declared it. Viewing state is never
// persisted; it is rebuilt from zero on every reconnect.
//
// A client that never declares stays absent, which is the conservative
// choice: a lost viewing-chat frame only means the next message is treated
// as unread, and the explicit mark-read path recovers from that.
type ViewingTracker struct {
	mu     sync.RWMutex
	byConn map[string]viewEntry      // connection id -> declared chat
	counts map[string]map[string]int // identity -> chat id -> viewing connections
}

func NewViewingTracker() *ViewingTracker {
	return &ViewingTracker{
		byConn: make(map[string]viewEntry),
		counts: make(map[string]map[string]int),
	}
}

// SetViewing declares the chat a connection is foregrounding. A connection
// views at most one chat at a time; declaring a new chat releases the
// previous one, and an empty chat id is a plain release.
func (v *ViewingTracker) SetViewing(connID, identity, chatID string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if prev, ok := v.byConn[connID]; ok {
		v.decrement(prev.identity, prev.chatID)
	}

	if chatID == "" {
		delete(v.byConn, connID)
		return
	}

	v.byConn[connID] = viewEntry{identity: identity, chatID: chatID}
	chats, ok := v.counts[identity]
	if !ok {
		chats = make(map[string]int)
		v.counts[identity] = chats
	}
	chats[chatID]++
}

// ClearConn releases a connection's viewing entry. Must run synchronously on
// disconnect, before any further event for the connection: a dangling entry
// would auto-read messages for a user who is no longer looking.
func (v *ViewingTracker) ClearConn(connID string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if prev, ok := v.byConn[connID]; ok {
		v.decrement(prev.identity, prev.chatID)
		delete(v.byConn, connID)
	}
}

func (v *ViewingTracker) decrement(identity, chatID string) {
	chats, ok := v.counts[identity]
	if !ok {
		return
	}
	if chats[chatID] <= 1 {
		delete(chats, chatID)
	} else {
		chats[chatID]--
	}
	if len(chats) == 0 {
		delete(v.counts, identity)
	}
}

// IsViewing reports whether any of the identity's connections currently
// foregrounds the chat.
func (v *ViewingTracker) IsViewing(identity, chatID string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.counts[identity][chatID] > 0
}

// ViewersAmong filters the given participants down to those currently
// viewing the chat. Used for implicit read acknowledgment on delivery.
func (v *ViewingTracker) ViewersAmong(chatID string, participants []string) []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var viewers []string
	for _, identity := range participants {
		if v.counts[identity][chatID] > 0 {
			viewers = append(viewers, identity)
		}
	}
	return viewers
}

// Snapshot reports the current viewing state for monitoring.
func (v *ViewingTracker) Snapshot() []model.ViewingInfo {
	v.mu.RLock()
	defer v.mu.RUnlock()

	infos := make([]model.ViewingInfo, 0, len(v.counts))
	for identity, chats := range v.counts {
		ids := make([]string, 0, len(chats))
		for chatID := range chats {
			ids = append(ids, chatID)
		}
		sort.Strings(ids)
		infos = append(infos, model.ViewingInfo{IdentityID: identity, ChatIDs: ids})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].IdentityID < infos[j].IdentityID })
	return infos
}
