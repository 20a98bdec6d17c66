package service

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rahulm682/Chat-App/internal/db"
	"github.com/rahulm682/Chat-App/internal/event"
	"github.com/rahulm682/Chat-App/internal/model"
	"github.com/rahulm682/Chat-App/internal/repo"
)

// In-memory repository fakes. They mirror the storage contracts the Mongo
// repositories implement: not-found is (nil, nil), pages serve newest-first,
// read sets behave like $addToSet.

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*model.Message
}

func (f *fakeMessageRepo) Insert(_ context.Context, msg *model.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.ID = primitive.NewObjectID()
	stored := *msg
	stored.ReadBy = append([]primitive.ObjectID(nil), msg.ReadBy...)
	f.messages = append(f.messages, &stored)
	return msg.ID.Hex(), nil
}

func (f *fakeMessageRepo) FindByID(_ context.Context, id string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.ID.Hex() == id {
			clone := *m
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeMessageRepo) Page(_ context.Context, chatID string, page, limit int64) (*db.PaginatedResult[model.Message], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var inChat []model.Message
	for _, m := range f.messages {
		if m.ChatID.Hex() == chatID {
			inChat = append(inChat, *m)
		}
	}
	// Newest-first, the order the Mongo repository serves.
	sort.SliceStable(inChat, func(i, j int) bool {
		return inChat[i].CreatedAt.After(inChat[j].CreatedAt)
	})

	total := int64(len(inChat))
	skip := (page - 1) * limit
	var window []model.Message
	if skip < total {
		end := skip + limit
		if end > total {
			end = total
		}
		window = inChat[skip:end]
	}
	return &db.PaginatedResult[model.Message]{
		Data:     window,
		Total:    total,
		Page:     page,
		PageSize: limit,
		HasMore:  skip+limit < total,
	}, nil
}

func (f *fakeMessageRepo) MarkChatRead(_ context.Context, chatID, identity string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(identity)
	if err != nil {
		return 0, repo.ErrInvalidID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var modified int64
	for _, m := range f.messages {
		if m.ChatID.Hex() != chatID || m.ReadByContains(oid) {
			continue
		}
		m.ReadBy = append(m.ReadBy, oid)
		modified++
	}
	return modified, nil
}

func (f *fakeMessageRepo) AddToReadBy(_ context.Context, messageID string, identities []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.ID.Hex() != messageID {
			continue
		}
		for _, id := range identities {
			oid, err := primitive.ObjectIDFromHex(id)
			if err != nil {
				return repo.ErrInvalidID
			}
			if !m.ReadByContains(oid) {
				m.ReadBy = append(m.ReadBy, oid)
			}
		}
		return nil
	}
	return nil
}

func (f *fakeMessageRepo) CountUnread(_ context.Context, chatID, identity string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(identity)
	if err != nil {
		return 0, repo.ErrInvalidID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, m := range f.messages {
		if m.ChatID.Hex() == chatID && !m.ReadByContains(oid) {
			count++
		}
	}
	return count, nil
}

type fakeChatRepo struct {
	mu    sync.Mutex
	chats map[primitive.ObjectID]*model.Chat
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{chats: make(map[primitive.ObjectID]*model.Chat)}
}

func (f *fakeChatRepo) add(participants ...primitive.ObjectID) *model.Chat {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat := &model.Chat{
		ID:           primitive.NewObjectID(),
		Participants: participants,
	}
	f.chats[chat.ID] = chat
	return chat
}

func (f *fakeChatRepo) FindByID(_ context.Context, chatID string) (*model.Chat, error) {
	oid, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return nil, repo.ErrInvalidChatID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[oid]
	if !ok {
		return nil, nil
	}
	clone := *chat
	return &clone, nil
}

func (f *fakeChatRepo) ChatsFor(_ context.Context, identity string) ([]model.Chat, error) {
	oid, err := primitive.ObjectIDFromHex(identity)
	if err != nil {
		return nil, repo.ErrInvalidID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Chat
	for _, chat := range f.chats {
		if chat.HasParticipant(oid) {
			out = append(out, *chat)
		}
	}
	return out, nil
}

func (f *fakeChatRepo) SetLatestMessage(_ context.Context, chatID, messageID string) error {
	chatOID, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return repo.ErrInvalidChatID
	}
	msgOID, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return repo.ErrInvalidID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if chat, ok := f.chats[chatOID]; ok {
		chat.LatestMessageID = &msgOID
	}
	return nil
}

func (f *fakeChatRepo) AccessOrCreateDirect(_ context.Context, a, b string) (*model.Chat, bool, error) {
	aOID, err := primitive.ObjectIDFromHex(a)
	if err != nil {
		return nil, false, repo.ErrInvalidID
	}
	bOID, err := primitive.ObjectIDFromHex(b)
	if err != nil {
		return nil, false, repo.ErrInvalidID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, chat := range f.chats {
		if !chat.IsGroup && chat.HasParticipant(aOID) && chat.HasParticipant(bOID) {
			clone := *chat
			return &clone, false, nil
		}
	}
	chat := &model.Chat{
		ID:           primitive.NewObjectID(),
		Participants: []primitive.ObjectID{aOID, bOID},
	}
	f.chats[chat.ID] = chat
	clone := *chat
	return &clone, true, nil
}

type fakeReactionRepo struct {
	mu        sync.Mutex
	reactions map[string]model.Reaction // keyed message|user
}

func newFakeReactionRepo() *fakeReactionRepo {
	return &fakeReactionRepo{reactions: make(map[string]model.Reaction)}
}

func (f *fakeReactionRepo) EnsureIndexes(context.Context) error { return nil }

func (f *fakeReactionRepo) Upsert(_ context.Context, messageID, identity, emoji string) (*model.Reaction, error) {
	msgOID, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return nil, repo.ErrInvalidID
	}
	userOID, err := primitive.ObjectIDFromHex(identity)
	if err != nil {
		return nil, repo.ErrInvalidID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := messageID + "|" + identity
	reaction, ok := f.reactions[key]
	if !ok {
		reaction = model.Reaction{
			ID:        primitive.NewObjectID(),
			MessageID: msgOID,
			UserID:    userOID,
		}
	}
	reaction.Emoji = emoji
	f.reactions[key] = reaction
	return &reaction, nil
}

func (f *fakeReactionRepo) Delete(_ context.Context, messageID, identity string) (*model.Reaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := messageID + "|" + identity
	reaction, ok := f.reactions[key]
	if !ok {
		return nil, nil
	}
	delete(f.reactions, key)
	return &reaction, nil
}

func (f *fakeReactionRepo) ForMessage(_ context.Context, messageID string) ([]model.Reaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Reaction{}
	for _, r := range f.reactions {
		if r.MessageID.Hex() == messageID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReactionRepo) ForMessages(_ context.Context, messageIDs []primitive.ObjectID) (map[primitive.ObjectID][]model.Reaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[primitive.ObjectID][]model.Reaction)
	for _, r := range f.reactions {
		for _, id := range messageIDs {
			if r.MessageID == id {
				out[id] = append(out[id], r)
			}
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	users map[string]bool
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	if !f.users[id] {
		return nil, nil
	}
	oid, _ := primitive.ObjectIDFromHex(id)
	return &model.User{ID: oid}, nil
}

func (f *fakeUserRepo) Exists(_ context.Context, id string) (bool, error) {
	return f.users[id], nil
}

type publishedEvent struct {
	identities []string
	chatID     string
	ev         event.WsEvent
}

// fakeBroadcaster records publishes and answers ViewersAmong from a fixed
// viewer set per chat.
type fakeBroadcaster struct {
	mu         sync.Mutex
	viewers    map[string][]string
	toIdentity []publishedEvent
	toRoom     []publishedEvent
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{viewers: make(map[string][]string)}
}

func (f *fakeBroadcaster) PublishToIdentities(identities []string, ev event.WsEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toIdentity = append(f.toIdentity, publishedEvent{
		identities: append([]string(nil), identities...),
		ev:         ev,
	})
}

func (f *fakeBroadcaster) PublishToRoom(chatID string, ev event.WsEvent, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toRoom = append(f.toRoom, publishedEvent{chatID: chatID, ev: ev})
}

func (f *fakeBroadcaster) ViewersAmong(chatID string, participants []string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, v := range f.viewers[chatID] {
		for _, p := range participants {
			if v == p {
				out = append(out, v)
				break
			}
		}
	}
	return out
}
