package service

import (
	"context"
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/rahulm682/Chat-App/internal/event"
	"github.com/rahulm682/Chat-App/internal/model"
	"github.com/rahulm682/Chat-App/internal/repo"
)

// MessageService implements the persist-then-publish pipeline and the
// read/unread reconciliation operations.
type MessageService interface {
	Send(ctx context.Context, senderID, chatID, content, msgType string) (*model.MessageWithReactions, error)
	History(ctx context.Context, identity, chatID string, page, limit int64) (*model.MessagePage, error)
	MarkChatRead(ctx context.Context, identity, chatID string) (int64, error)
	UnreadCounts(ctx context.Context, identity string) (map[string]int64, error)
}

type messageService struct {
	messages    repo.MessageRepository
	chats       repo.ChatRepository
	reactions   repo.ReactionRepository
	broadcaster Broadcaster
	logger      *zap.Logger
}

func NewMessageService(
	messages repo.MessageRepository,
	chats repo.ChatRepository,
	reactions repo.ReactionRepository,
	broadcaster Broadcaster,
	logger *zap.Logger,
) MessageService {
	return &messageService{
		messages:    messages,
		chats:       chats,
		reactions:   reactions,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Send persists a message and fans it out to every participant's identity
// channel. The order is fixed: persist, auto-mark viewers, publish the
// just-persisted record. Publishing only what storage committed is what
// keeps per-chat delivery order consistent with commit order.
func (s *messageService) Send(ctx context.Context, senderID, chatID, content, msgType string) (*model.MessageWithReactions, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	if msgType == "" {
		msgType = model.MessageTypeText
	}

	chat, err := s.chats.FindByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}

	senderOID, err := primitive.ObjectIDFromHex(senderID)
	if err != nil {
		return nil, repo.ErrInvalidID
	}
	if !chat.HasParticipant(senderOID) {
		return nil, ErrNotParticipant
	}

	now := time.Now().UTC()
	msg := &model.Message{
		ChatID:   chat.ID,
		SenderID: senderOID,
		Content:  content,
		Type:     msgType,
		// The sender has read their own message by definition; pre-adding
		// them is what keeps a sender's unread contribution at zero.
		ReadBy:    []primitive.ObjectID{senderOID},
		CreatedAt: now,
		UpdatedAt: now,
	}

	msgID, err := s.messages.Insert(ctx, msg)
	if err != nil {
		return nil, err
	}

	if err := s.chats.SetLatestMessage(ctx, chatID, msgID); err != nil {
		// The preview pointer is derived state; the next send repairs it.
		s.logger.Warn("latest-message update failed",
			zap.String("chat_id", chatID), zap.Error(err))
	}

	participants := hexIDs(chat.Participants)

	// Implicit read acknowledgment: participants actively viewing this chat
	// are added to the read set before the event goes out, so the message
	// never flashes unread for them.
	viewers := s.broadcaster.ViewersAmong(chatID, participants)
	viewers = without(viewers, senderID)
	if len(viewers) > 0 {
		if err := s.messages.AddToReadBy(ctx, msgID, viewers); err != nil {
			// A missed auto-mark degrades to "unread"; the explicit
			// mark-read path recovers it.
			s.logger.Warn("auto-mark on deliver failed",
				zap.String("message_id", msgID), zap.Error(err))
		} else {
			for _, v := range viewers {
				if oid, err := primitive.ObjectIDFromHex(v); err == nil {
					msg.ReadBy = append(msg.ReadBy, oid)
				}
			}
		}
	}

	full := &model.MessageWithReactions{Message: *msg, Reactions: []model.Reaction{}}

	payload, err := json.Marshal(full)
	if err == nil {
		ev := event.WsEvent{
			Event:   event.EventMessageCreated,
			ChatID:  chatID,
			Payload: payload,
		}
		s.broadcaster.PublishToIdentities(participants, ev)
	}

	return full, nil
}

// History returns one page of a chat's messages with reactions attached,
// re-ordered oldest-first for display. Storage serves newest-first so page 1
// is always the most recent window.
func (s *messageService) History(ctx context.Context, identity, chatID string, page, limit int64) (*model.MessagePage, error) {
	chat, err := s.chats.FindByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}

	userOID, err := primitive.ObjectIDFromHex(identity)
	if err != nil {
		return nil, repo.ErrInvalidID
	}
	if !chat.HasParticipant(userOID) {
		return nil, ErrNotParticipant
	}

	result, err := s.messages.Page(ctx, chatID, page, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(result.Data))
	for _, m := range result.Data {
		ids = append(ids, m.ID)
	}
	grouped, err := s.reactions.ForMessages(ctx, ids)
	if err != nil {
		return nil, err
	}

	// Reverse newest-first storage order into chronological display order.
	messages := make([]model.MessageWithReactions, 0, len(result.Data))
	for i := len(result.Data) - 1; i >= 0; i-- {
		m := result.Data[i]
		reactions := grouped[m.ID]
		if reactions == nil {
			reactions = []model.Reaction{}
		}
		messages = append(messages, model.MessageWithReactions{
			Message:   m,
			Reactions: reactions,
		})
	}

	return &model.MessagePage{
		Messages: messages,
		HasMore:  result.HasMore,
		Page:     result.Page,
		Total:    result.Total,
	}, nil
}

// MarkChatRead is the explicit read acknowledgment: the identity opened the
// chat. Idempotent; a second call with no new messages reports zero
// modified. A partial storage failure surfaces as an error and the caller
// may retry safely.
func (s *messageService) MarkChatRead(ctx context.Context, identity, chatID string) (int64, error) {
	chat, err := s.chats.FindByID(ctx, chatID)
	if err != nil {
		return 0, err
	}
	if chat == nil {
		return 0, ErrChatNotFound
	}

	userOID, err := primitive.ObjectIDFromHex(identity)
	if err != nil {
		return 0, repo.ErrInvalidID
	}
	if !chat.HasParticipant(userOID) {
		return 0, ErrNotParticipant
	}

	return s.messages.MarkChatRead(ctx, chatID, identity)
}

// UnreadCounts recomputes the identity's unread count for every chat it
// participates in. Always fresh, never cached: the read sets are the only
// source of truth.
func (s *messageService) UnreadCounts(ctx context.Context, identity string) (map[string]int64, error) {
	chats, err := s.chats.ChatsFor(ctx, identity)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(chats))
	for _, chat := range chats {
		id := chat.ID.Hex()
		count, err := s.messages.CountUnread(ctx, id, identity)
		if err != nil {
			return nil, err
		}
		counts[id] = count
	}
	return counts, nil
}

func hexIDs(oids []primitive.ObjectID) []string {
	out := make([]string, 0, len(oids))
	for _, oid := range oids {
		out = append(out, oid.Hex())
	}
	return out
}

func without(ids []string, exclude string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}
