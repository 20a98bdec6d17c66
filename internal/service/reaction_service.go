package service

import (
	"context"
	"encoding/json"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/rahulm682/Chat-App/internal/event"
	"github.com/rahulm682/Chat-App/internal/model"
	"github.com/rahulm682/Chat-App/internal/repo"
)

// ReactionService enforces one reaction per (message, identity): adding is
// an upsert, removing a missing reaction is a no-op. Both require the
// identity to be a participant of the message's chat.
type ReactionService interface {
	AddOrReplace(ctx context.Context, identity, messageID, emoji string) (*model.Reaction, error)
	Remove(ctx context.Context, identity, messageID string) (*model.Reaction, error)
	ListForMessage(ctx context.Context, identity, messageID string) ([]model.Reaction, error)
}

type reactionService struct {
	reactions   repo.ReactionRepository
	messages    repo.MessageRepository
	chats       repo.ChatRepository
	broadcaster Broadcaster
	logger      *zap.Logger
}

func NewReactionService(
	reactions repo.ReactionRepository,
	messages repo.MessageRepository,
	chats repo.ChatRepository,
	broadcaster Broadcaster,
	logger *zap.Logger,
) ReactionService {
	return &reactionService{
		reactions:   reactions,
		messages:    messages,
		chats:       chats,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// authorize resolves the message and verifies the identity participates in
// its chat. Returns the message's chat id for broadcasting.
func (s *reactionService) authorize(ctx context.Context, identity, messageID string) (string, error) {
	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return "", err
	}
	if msg == nil {
		return "", ErrMessageNotFound
	}

	chat, err := s.chats.FindByID(ctx, msg.ChatID.Hex())
	if err != nil {
		return "", err
	}
	if chat == nil {
		return "", ErrChatNotFound
	}

	userOID, err := primitive.ObjectIDFromHex(identity)
	if err != nil {
		return "", repo.ErrInvalidID
	}
	if !chat.HasParticipant(userOID) {
		return "", ErrNotParticipant
	}

	return msg.ChatID.Hex(), nil
}

// AddOrReplace upserts the identity's reaction and broadcasts the resulting
// authoritative record to the chat room. Replacing never creates a second
// row for the same (message, identity).
func (s *reactionService) AddOrReplace(ctx context.Context, identity, messageID, emoji string) (*model.Reaction, error) {
	if !model.EmojiAllowed(emoji) {
		return nil, ErrInvalidEmoji
	}

	chatID, err := s.authorize(ctx, identity, messageID)
	if err != nil {
		return nil, err
	}

	reaction, err := s.reactions.Upsert(ctx, messageID, identity, emoji)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(reaction)
	if err == nil {
		ev := event.Marshal(event.EventReactionAdded, chatID, event.ReactionAddedPayload{
			MessageID: messageID,
			Reaction:  raw,
		})
		s.broadcaster.PublishToRoom(chatID, ev, "")
	}

	return reaction, nil
}

// Remove deletes the identity's reaction if present. Absence is success
// with a nil result and no broadcast.
func (s *reactionService) Remove(ctx context.Context, identity, messageID string) (*model.Reaction, error) {
	chatID, err := s.authorize(ctx, identity, messageID)
	if err != nil {
		return nil, err
	}

	reaction, err := s.reactions.Delete(ctx, messageID, identity)
	if err != nil {
		return nil, err
	}
	if reaction == nil {
		return nil, nil
	}

	ev := event.Marshal(event.EventReactionRemoved, chatID, event.ReactionRemovedPayload{
		MessageID:  messageID,
		IdentityID: identity,
	})
	s.broadcaster.PublishToRoom(chatID, ev, "")

	return reaction, nil
}

// ListForMessage returns a message's reactions for a participant.
func (s *reactionService) ListForMessage(ctx context.Context, identity, messageID string) ([]model.Reaction, error) {
	if _, err := s.authorize(ctx, identity, messageID); err != nil {
		return nil, err
	}
	return s.reactions.ForMessage(ctx, messageID)
}
