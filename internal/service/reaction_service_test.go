package service

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/rahulm682/Chat-App/internal/event"
)

type reactionFixture struct {
	svc         ReactionService
	broadcaster *fakeBroadcaster
	userA       primitive.ObjectID
	userB       primitive.ObjectID
	chatID      string
	messageID   string
}

func newReactionFixture(t *testing.T) *reactionFixture {
	t.Helper()
	messages := &fakeMessageRepo{}
	chats := newFakeChatRepo()
	reactions := newFakeReactionRepo()
	broadcaster := newFakeBroadcaster()

	userA := primitive.NewObjectID()
	userB := primitive.NewObjectID()
	chat := chats.add(userA, userB)

	msgSvc := NewMessageService(messages, chats, reactions, broadcaster, zap.NewNop())
	msg, err := msgSvc.Send(context.Background(), userA.Hex(), chat.ID.Hex(), "react here", "")
	if err != nil {
		t.Fatalf("seed message: %v", err)
	}
	broadcaster.toIdentity = nil

	return &reactionFixture{
		svc:         NewReactionService(reactions, messages, chats, broadcaster, zap.NewNop()),
		broadcaster: broadcaster,
		userA:       userA,
		userB:       userB,
		chatID:      chat.ID.Hex(),
		messageID:   msg.ID.Hex(),
	}
}

func TestAddOrReplaceKeepsOneReactionPerUser(t *testing.T) {
	f := newReactionFixture(t)
	ctx := context.Background()

	first, err := f.svc.AddOrReplace(ctx, f.userB.Hex(), f.messageID, "👍")
	if err != nil {
		t.Fatalf("AddOrReplace: %v", err)
	}

	second, err := f.svc.AddOrReplace(ctx, f.userB.Hex(), f.messageID, "❤️")
	if err != nil {
		t.Fatalf("AddOrReplace (replace): %v", err)
	}
	if second.ID != first.ID {
		t.Error("replacement created a second reaction record")
	}
	if second.Emoji != "❤️" {
		t.Errorf("emoji = %q, want ❤️", second.Emoji)
	}

	all, err := f.svc.ListForMessage(ctx, f.userA.Hex(), f.messageID)
	if err != nil {
		t.Fatalf("ListForMessage: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("message holds %d reactions, want 1", len(all))
	}
}

func TestAddOrReplaceBroadcastsToChatRoom(t *testing.T) {
	f := newReactionFixture(t)

	if _, err := f.svc.AddOrReplace(context.Background(), f.userB.Hex(), f.messageID, "😮"); err != nil {
		t.Fatalf("AddOrReplace: %v", err)
	}

	if len(f.broadcaster.toRoom) != 1 {
		t.Fatalf("published %d room events, want 1", len(f.broadcaster.toRoom))
	}
	pub := f.broadcaster.toRoom[0]
	if pub.chatID != f.chatID {
		t.Errorf("room = %q, want %q", pub.chatID, f.chatID)
	}
	if pub.ev.Event != event.EventReactionAdded {
		t.Errorf("event = %q, want %q", pub.ev.Event, event.EventReactionAdded)
	}
}

func TestAddOrReplaceValidation(t *testing.T) {
	f := newReactionFixture(t)
	ctx := context.Background()

	if _, err := f.svc.AddOrReplace(ctx, f.userB.Hex(), f.messageID, "🙃"); !errors.Is(err, ErrInvalidEmoji) {
		t.Errorf("unlisted emoji: err = %v, want ErrInvalidEmoji", err)
	}
	if _, err := f.svc.AddOrReplace(ctx, f.userB.Hex(), primitive.NewObjectID().Hex(), "👍"); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("unknown message: err = %v, want ErrMessageNotFound", err)
	}
	if _, err := f.svc.AddOrReplace(ctx, primitive.NewObjectID().Hex(), f.messageID, "👍"); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("non-participant: err = %v, want ErrNotParticipant", err)
	}
	if len(f.broadcaster.toRoom) != 0 {
		t.Errorf("published %d events after failed adds, want 0", len(f.broadcaster.toRoom))
	}
}

func TestRemoveMissingReactionIsNoOp(t *testing.T) {
	f := newReactionFixture(t)

	removed, err := f.svc.Remove(context.Background(), f.userB.Hex(), f.messageID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed != nil {
		t.Errorf("removed = %+v, want nil", removed)
	}
	if len(f.broadcaster.toRoom) != 0 {
		t.Errorf("published %d events for a no-op remove, want 0", len(f.broadcaster.toRoom))
	}
}

func TestRemoveBroadcastsOnlyWhenDeleted(t *testing.T) {
	f := newReactionFixture(t)
	ctx := context.Background()

	if _, err := f.svc.AddOrReplace(ctx, f.userB.Hex(), f.messageID, "😢"); err != nil {
		t.Fatalf("AddOrReplace: %v", err)
	}
	f.broadcaster.toRoom = nil

	removed, err := f.svc.Remove(ctx, f.userB.Hex(), f.messageID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed == nil {
		t.Fatal("removed = nil, want the deleted reaction")
	}

	if len(f.broadcaster.toRoom) != 1 {
		t.Fatalf("published %d room events, want 1", len(f.broadcaster.toRoom))
	}
	if f.broadcaster.toRoom[0].ev.Event != event.EventReactionRemoved {
		t.Errorf("event = %q, want %q", f.broadcaster.toRoom[0].ev.Event, event.EventReactionRemoved)
	}
}
