package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rahulm682/Chat-App/internal/model"
)

// fakeServer serves history pages the way the real server does: storage
// order newest-first, each page reversed to oldest-first before sending.
type fakeServer struct {
	chatID        string
	userID        primitive.ObjectID // the identity behind the bearer token
	messages      []model.MessageWithReactions // chronological
	failReacts    bool
	failMessages  bool
	stallMessages chan struct{} // when set, history responses wait for close
}

func (s *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/messages/", func(w http.ResponseWriter, r *http.Request) {
		if s.stallMessages != nil {
			<-s.stallMessages
		}
		w.Header().Set("Content-Type", "application/json")
		if s.failMessages {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "storage unavailable"})
			return
		}
		page, _ := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64)
		limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)

		total := int64(len(s.messages))
		// Window counted from the newest end.
		end := total - (page-1)*limit
		start := end - limit
		if start < 0 {
			start = 0
		}
		var window []model.MessageWithReactions
		if end > 0 {
			window = s.messages[start:end]
		} else {
			window = []model.MessageWithReactions{}
		}

		_ = json.NewEncoder(w).Encode(model.MessagePage{
			Messages: window,
			HasMore:  (page-1)*limit+limit < total,
			Page:     page,
			Total:    total,
		})
	})
	mux.HandleFunc("/api/reactions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if s.failReacts {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "storage unavailable"})
			return
		}
		var req struct {
			MessageID string `json:"messageId"`
			Emoji     string `json:"emoji"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		msgOID, _ := primitive.ObjectIDFromHex(req.MessageID)
		_ = json.NewEncoder(w).Encode(model.Reaction{
			ID:        primitive.NewObjectID(),
			MessageID: msgOID,
			UserID:    s.userID,
			Emoji:     req.Emoji,
		})
	})
	mux.HandleFunc("/api/reactions/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if s.failReacts {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "storage unavailable"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]bool{"removed": true})
	})
	return mux
}

func newFakeServer(t *testing.T, messageCount int) (*fakeServer, *httptest.Server) {
	t.Helper()
	chatID := primitive.NewObjectID()
	base := time.Now().UTC().Add(-time.Hour)

	fs := &fakeServer{chatID: chatID.Hex(), userID: primitive.NewObjectID()}
	for i := 0; i < messageCount; i++ {
		fs.messages = append(fs.messages, model.MessageWithReactions{
			Message: model.Message{
				ID:        primitive.NewObjectID(),
				ChatID:    chatID,
				Content:   "msg " + strconv.Itoa(i),
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			},
			Reactions: []model.Reaction{},
		})
	}

	srv := httptest.NewServer(fs.handler())
	t.Cleanup(srv.Close)
	return fs, srv
}

func newTestCache(t *testing.T, fs *fakeServer, srv *httptest.Server, onUnreadHint func(string)) *ChatCache {
	t.Helper()
	rest := NewRestClient(srv.URL, "test-token")
	cache, err := NewChatCache(rest, fs.userID.Hex(), 15, onUnreadHint)
	if err != nil {
		t.Fatalf("NewChatCache: %v", err)
	}
	return cache
}

func TestOpenLoadsNewestPageOldestFirst(t *testing.T) {
	fs, srv := newFakeServer(t, 20)
	cache := newTestCache(t, fs, srv, nil)

	if err := cache.Open(context.Background(), fs.chatID); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if cache.State() != StateLoaded {
		t.Errorf("state = %v, want StateLoaded", cache.State())
	}
	if !cache.HasMore() {
		t.Error("HasMore = false, want true with 20 messages and page size 15")
	}

	msgs := cache.Messages()
	if len(msgs) != 15 {
		t.Fatalf("loaded %d messages, want 15", len(msgs))
	}
	if msgs[0].Content != "msg 5" || msgs[14].Content != "msg 19" {
		t.Errorf("window = [%s .. %s], want [msg 5 .. msg 19]", msgs[0].Content, msgs[14].Content)
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt) {
			t.Fatalf("messages out of chronological order at index %d", i)
		}
	}
}

func TestLoadMorePrependsOlderPage(t *testing.T) {
	fs, srv := newFakeServer(t, 20)
	cache := newTestCache(t, fs, srv, nil)
	ctx := context.Background()

	if err := cache.Open(ctx, fs.chatID); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := cache.LoadMore(ctx); err != nil {
		t.Fatalf("LoadMore: %v", err)
	}

	msgs := cache.Messages()
	if len(msgs) != 20 {
		t.Fatalf("cache holds %d messages, want 20", len(msgs))
	}
	if msgs[0].Content != "msg 0" || msgs[19].Content != "msg 19" {
		t.Errorf("window = [%s .. %s], want [msg 0 .. msg 19]", msgs[0].Content, msgs[19].Content)
	}
	if cache.HasMore() {
		t.Error("HasMore = true after loading all history")
	}

	// Exhausted history makes LoadMore a no-op.
	if err := cache.LoadMore(ctx); err != nil {
		t.Fatalf("LoadMore (exhausted): %v", err)
	}
	if got := len(cache.Messages()); got != 20 {
		t.Errorf("cache holds %d messages after no-op LoadMore, want 20", got)
	}
}

func TestLoadMoreDedupsOverlappingPage(t *testing.T) {
	fs, srv := newFakeServer(t, 20)
	cache := newTestCache(t, fs, srv, nil)
	ctx := context.Background()

	if err := cache.Open(ctx, fs.chatID); err != nil {
		t.Fatalf("Open: %v", err)
	}

	// A message inserted between the two fetches shifts the windows so
	// page 2 overlaps what page 1 already delivered.
	newest := fs.messages[len(fs.messages)-1]
	inserted := model.MessageWithReactions{
		Message: model.Message{
			ID:        primitive.NewObjectID(),
			ChatID:    newest.ChatID,
			Content:   "msg 20",
			CreatedAt: newest.CreatedAt.Add(time.Second),
		},
		Reactions: []model.Reaction{},
	}
	fs.messages = append(fs.messages, inserted)

	if err := cache.LoadMore(ctx); err != nil {
		t.Fatalf("LoadMore: %v", err)
	}

	seen := make(map[primitive.ObjectID]bool)
	for _, m := range cache.Messages() {
		if seen[m.ID] {
			t.Fatalf("message %s appears twice", m.Content)
		}
		seen[m.ID] = true
	}
}

func TestLiveMessageAppendsOnlyForOpenChat(t *testing.T) {
	fs, srv := newFakeServer(t, 3)
	var hints []string
	cache := newTestCache(t, fs, srv, func(chatID string) { hints = append(hints, chatID) })

	if err := cache.Open(context.Background(), fs.chatID); err != nil {
		t.Fatalf("Open: %v", err)
	}

	live := model.MessageWithReactions{
		Message: model.Message{
			ID:      primitive.NewObjectID(),
			Content: "live",
		},
	}
	cache.ApplyMessageCreated(fs.chatID, live)
	if got := len(cache.Messages()); got != 4 {
		t.Fatalf("cache holds %d messages, want 4", got)
	}

	// Redelivery of the same id is idempotent.
	cache.ApplyMessageCreated(fs.chatID, live)
	if got := len(cache.Messages()); got != 4 {
		t.Errorf("duplicate delivery grew the cache to %d messages", got)
	}

	// A message for another chat raises the unread hint instead.
	otherChat := primitive.NewObjectID().Hex()
	cache.ApplyMessageCreated(otherChat, model.MessageWithReactions{
		Message: model.Message{ID: primitive.NewObjectID()},
	})
	if got := len(cache.Messages()); got != 4 {
		t.Errorf("foreign chat message landed in the open chat (%d messages)", got)
	}
	if len(hints) != 1 || hints[0] != otherChat {
		t.Errorf("unread hints = %v, want [%s]", hints, otherChat)
	}
}

func TestLiveMessageSurvivesInitialLoad(t *testing.T) {
	fs, srv := newFakeServer(t, 3)
	fs.stallMessages = make(chan struct{})
	cache := newTestCache(t, fs, srv, nil)

	done := make(chan error, 1)
	go func() { done <- cache.Open(context.Background(), fs.chatID) }()

	deadline := time.After(5 * time.Second)
	for cache.State() != StateLoading {
		select {
		case <-deadline:
			t.Fatal("cache never entered StateLoading")
		case <-time.After(time.Millisecond):
		}
	}

	// The page-1 fetch is stalled; a live message lands in the meantime.
	live := model.MessageWithReactions{
		Message: model.Message{
			ID:      primitive.NewObjectID(),
			Content: "live during load",
		},
	}
	cache.ApplyMessageCreated(fs.chatID, live)

	close(fs.stallMessages)
	if err := <-done; err != nil {
		t.Fatalf("Open: %v", err)
	}

	msgs := cache.Messages()
	if len(msgs) != 4 {
		t.Fatalf("cache holds %d messages, want 4 (page + live)", len(msgs))
	}
	if msgs[3].Content != "live during load" {
		t.Errorf("newest message = %q, want the live one", msgs[3].Content)
	}
}

func TestEmptyCacheRaisesUnreadHintForOwnChat(t *testing.T) {
	fs, srv := newFakeServer(t, 1)
	fs.failMessages = true
	var hints []string
	cache := newTestCache(t, fs, srv, func(chatID string) { hints = append(hints, chatID) })

	// Open fails, leaving the chat id set but the cache empty.
	if err := cache.Open(context.Background(), fs.chatID); err == nil {
		t.Fatal("Open should surface the server failure")
	}
	if cache.State() != StateEmpty {
		t.Fatalf("state = %v, want StateEmpty", cache.State())
	}

	cache.ApplyMessageCreated(fs.chatID, model.MessageWithReactions{
		Message: model.Message{ID: primitive.NewObjectID()},
	})

	if got := len(cache.Messages()); got != 0 {
		t.Errorf("empty-state cache accepted %d messages", got)
	}
	if len(hints) != 1 || hints[0] != fs.chatID {
		t.Errorf("unread hints = %v, want [%s]", hints, fs.chatID)
	}
}

func TestReactionMergeLastWriterWins(t *testing.T) {
	fs, srv := newFakeServer(t, 1)
	cache := newTestCache(t, fs, srv, nil)

	if err := cache.Open(context.Background(), fs.chatID); err != nil {
		t.Fatalf("Open: %v", err)
	}
	msgID := fs.messages[0].ID.Hex()
	user := primitive.NewObjectID()

	cache.ApplyReactionAdded(msgID, model.Reaction{
		MessageID: fs.messages[0].ID, UserID: user, Emoji: "👍",
	})
	cache.ApplyReactionAdded(msgID, model.Reaction{
		MessageID: fs.messages[0].ID, UserID: user, Emoji: "❤️",
	})

	reactions := cache.Messages()[0].Reactions
	if len(reactions) != 1 {
		t.Fatalf("message holds %d reactions, want 1", len(reactions))
	}
	if reactions[0].Emoji != "❤️" {
		t.Errorf("emoji = %q, want ❤️", reactions[0].Emoji)
	}

	cache.ApplyReactionRemoved(msgID, user.Hex())
	if got := len(cache.Messages()[0].Reactions); got != 0 {
		t.Errorf("message holds %d reactions after removal, want 0", got)
	}
}

func TestReactAppliesOptimistically(t *testing.T) {
	fs, srv := newFakeServer(t, 1)
	cache := newTestCache(t, fs, srv, nil)

	if err := cache.Open(context.Background(), fs.chatID); err != nil {
		t.Fatalf("Open: %v", err)
	}
	msgID := fs.messages[0].ID.Hex()

	if err := cache.React(context.Background(), msgID, "👍"); err != nil {
		t.Fatalf("React: %v", err)
	}
	reactions := cache.Messages()[0].Reactions
	if len(reactions) != 1 || reactions[0].Emoji != "👍" {
		t.Fatalf("reactions = %+v, want one 👍", reactions)
	}
}

func TestReactRollsBackOnServerFailure(t *testing.T) {
	fs, srv := newFakeServer(t, 1)
	cache := newTestCache(t, fs, srv, nil)
	ctx := context.Background()

	if err := cache.Open(ctx, fs.chatID); err != nil {
		t.Fatalf("Open: %v", err)
	}
	msgID := fs.messages[0].ID.Hex()

	// Establish a confirmed 👍 first.
	if err := cache.React(ctx, msgID, "👍"); err != nil {
		t.Fatalf("React: %v", err)
	}
	before := cache.Messages()[0].Reactions

	fs.failReacts = true
	err := cache.React(ctx, msgID, "❤️")
	if err == nil {
		t.Fatal("React should surface the server failure")
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("err = %v, want StatusError 500", err)
	}

	after := cache.Messages()[0].Reactions
	if len(after) != len(before) || after[0].Emoji != "👍" {
		t.Errorf("reactions after rollback = %+v, want the prior 👍", after)
	}

	// A failed Unreact restores the reaction too.
	if err := cache.Unreact(ctx, msgID); err == nil {
		t.Fatal("Unreact should surface the server failure")
	}
	restored := cache.Messages()[0].Reactions
	if len(restored) != 1 || restored[0].Emoji != "👍" {
		t.Errorf("reactions after failed Unreact = %+v, want the prior 👍", restored)
	}
}

func TestOpenSwitchingChatsResets(t *testing.T) {
	fs, srv := newFakeServer(t, 5)
	cache := newTestCache(t, fs, srv, nil)
	ctx := context.Background()

	if err := cache.Open(ctx, fs.chatID); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := len(cache.Messages()); got != 5 {
		t.Fatalf("cache holds %d messages, want 5", got)
	}

	// The fake serves the same history for any chat id; what matters is
	// that the old chat's state is gone and the id switched.
	otherChat := primitive.NewObjectID().Hex()
	if err := cache.Open(ctx, otherChat); err != nil {
		t.Fatalf("Open (switch): %v", err)
	}
	if cache.OpenChatID() != otherChat {
		t.Errorf("open chat = %q, want %q", cache.OpenChatID(), otherChat)
	}
	if cache.State() != StateLoaded {
		t.Errorf("state = %v, want StateLoaded", cache.State())
	}
}
