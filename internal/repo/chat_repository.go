package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/rahulm682/Chat-App/internal/db"
	"github.com/rahulm682/Chat-App/internal/model"
)

type chatRepository struct {
	mongoRepo *db.Repository[model.Chat]
	logger    *zap.Logger
}

// ChatRepository reads chat documents and maintains the latest-message
// pointer used for chat-list previews. Participant sets are read-only here.
type ChatRepository interface {
	FindByID(ctx context.Context, chatID string) (*model.Chat, error)
	ChatsFor(ctx context.Context, identity string) ([]model.Chat, error)
	SetLatestMessage(ctx context.Context, chatID, messageID string) error
	AccessOrCreateDirect(ctx context.Context, a, b string) (*model.Chat, bool, error)
}

func NewChatRepository(repo *db.Repository[model.Chat], logger *zap.Logger) ChatRepository {
	return &chatRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

// FindByID fetches a chat document; returns nil (no error) when not found.
func (r *chatRepository) FindByID(ctx context.Context, chatID string) (*model.Chat, error) {
	if chatID == "" {
		return nil, ErrInvalidChatID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	chat, err := r.mongoRepo.FindByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, primitive.ErrInvalidHex) {
			r.logger.Debug("chat not found", zap.String("chat_id", chatID))
			return nil, nil
		}
		r.logger.Error("failed to fetch chat",
			zap.String("chat_id", chatID), zap.Error(err))
		return nil, fmt.Errorf("fetch chat: %w", err)
	}

	return chat, nil
}

// ChatsFor returns every chat the identity participates in, most recently
// active first.
func (r *chatRepository) ChatsFor(ctx context.Context, identity string) ([]model.Chat, error) {
	userOID, err := primitive.ObjectIDFromHex(identity)
	if err != nil {
		return nil, ErrInvalidID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("participants", userOID).Build()
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})

	chats, err := r.mongoRepo.FindAll(ctx, filter, opts)
	if err != nil {
		r.logger.Error("failed to list chats",
			zap.String("identity", identity), zap.Error(err))
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return chats, nil
}

// SetLatestMessage updates the chat-list preview pointer after a message is
// persisted, bumping updated_at so the chat sorts to the top.
func (r *chatRepository) SetLatestMessage(ctx context.Context, chatID, messageID string) error {
	chatOID, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return ErrInvalidChatID
	}
	msgOID, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return ErrInvalidID
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"latest_message": msgOID,
		"updated_at":     time.Now().UTC(),
	}}
	if _, err := r.mongoRepo.UpdateByIDRaw(ctx, chatOID, update); err != nil {
		return fmt.Errorf("set latest message: %w", err)
	}
	return nil
}

// AccessOrCreateDirect finds the 1:1 chat between two identities, creating
// it when absent. The bool result reports whether a new chat was created.
func (r *chatRepository) AccessOrCreateDirect(ctx context.Context, a, b string) (*model.Chat, bool, error) {
	aOID, err := primitive.ObjectIDFromHex(a)
	if err != nil {
		return nil, false, ErrInvalidID
	}
	bOID, err := primitive.ObjectIDFromHex(b)
	if err != nil {
		return nil, false, ErrInvalidID
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("is_group", false).
		All("participants", []primitive.ObjectID{aOID, bOID}).
		Build()

	chat, err := r.mongoRepo.FindOne(ctx, filter)
	if err == nil {
		return chat, false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, fmt.Errorf("access chat: %w", err)
	}

	now := time.Now().UTC()
	newChat := model.Chat{
		IsGroup:      false,
		Participants: []primitive.ObjectID{aOID, bOID},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	result, err := r.mongoRepo.Create(ctx, newChat)
	if err != nil {
		return nil, false, fmt.Errorf("create chat: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		newChat.ID = oid
	}

	r.logger.Info("direct chat created",
		zap.String("chat_id", newChat.ID.Hex()),
		zap.String("a", a), zap.String("b", b))
	return &newChat, true, nil
}
