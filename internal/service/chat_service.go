package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/rahulm682/Chat-App/internal/model"
	"github.com/rahulm682/Chat-App/internal/repo"
)

// ChatService serves the chat list with derived unread counts and the
// access-or-create path for direct chats.
type ChatService interface {
	ListWithUnread(ctx context.Context, identity string) ([]model.ChatSummary, error)
	AccessDirect(ctx context.Context, identity, otherID string) (*model.Chat, bool, error)
}

type chatService struct {
	chats    repo.ChatRepository
	messages repo.MessageRepository
	users    repo.UserRepository
	logger   *zap.Logger
}

func NewChatService(
	chats repo.ChatRepository,
	messages repo.MessageRepository,
	users repo.UserRepository,
	logger *zap.Logger,
) ChatService {
	return &chatService{
		chats:    chats,
		messages: messages,
		users:    users,
		logger:   logger,
	}
}

// ListWithUnread returns the identity's chats, most recently active first,
// each with a latest-message preview and an unread count recomputed from
// the read sets on this very call.
func (s *chatService) ListWithUnread(ctx context.Context, identity string) ([]model.ChatSummary, error) {
	chats, err := s.chats.ChatsFor(ctx, identity)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.ChatSummary, 0, len(chats))
	for _, chat := range chats {
		chatID := chat.ID.Hex()

		unread, err := s.messages.CountUnread(ctx, chatID, identity)
		if err != nil {
			return nil, err
		}

		summary := model.ChatSummary{Chat: chat, UnreadCount: unread}
		if chat.LatestMessageID != nil {
			latest, err := s.messages.FindByID(ctx, chat.LatestMessageID.Hex())
			if err != nil {
				return nil, err
			}
			summary.LatestMessage = latest
		}

		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// AccessDirect finds or creates the 1:1 chat between the caller and another
// user. The bool result reports whether the chat was newly created.
func (s *chatService) AccessDirect(ctx context.Context, identity, otherID string) (*model.Chat, bool, error) {
	exists, err := s.users.Exists(ctx, otherID)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, ErrUserNotFound
	}

	return s.chats.AccessOrCreateDirect(ctx, identity, otherID)
}
