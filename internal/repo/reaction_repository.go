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

type reactionRepository struct {
	mongoRepo *db.Repository[model.Reaction]
	logger    *zap.Logger
}

// ReactionRepository enforces one reaction per (message, identity) at the
// storage layer: Upsert replaces, never duplicates, and a unique compound
// index backs that up against concurrent writers.
type ReactionRepository interface {
	EnsureIndexes(ctx context.Context) error
	Upsert(ctx context.Context, messageID, identity, emoji string) (*model.Reaction, error)
	Delete(ctx context.Context, messageID, identity string) (*model.Reaction, error)
	ForMessage(ctx context.Context, messageID string) ([]model.Reaction, error)
	ForMessages(ctx context.Context, messageIDs []primitive.ObjectID) (map[primitive.ObjectID][]model.Reaction, error)
}

func NewReactionRepository(repo *db.Repository[model.Reaction], logger *zap.Logger) ReactionRepository {
	return &reactionRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

// EnsureIndexes creates the unique (message, user) index. Run at startup.
func (r *reactionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()
	return r.mongoRepo.EnsureUniqueIndex(ctx, "message", "user")
}

// Upsert adds or replaces the identity's reaction on a message and returns
// the authoritative post-update record. Two tabs of the same identity racing
// here converge on a single row: last write wins.
func (r *reactionRepository) Upsert(ctx context.Context, messageID, identity, emoji string) (*model.Reaction, error) {
	msgOID, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return nil, ErrInvalidID
	}
	userOID, err := primitive.ObjectIDFromHex(identity)
	if err != nil {
		return nil, ErrInvalidID
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	filter := bson.M{"message": msgOID, "user": userOID}
	set := bson.M{"emoji": emoji, "updated_at": now}
	setOnInsert := bson.M{"created_at": now}

	reaction, err := r.mongoRepo.FindOneAndUpsert(ctx, filter, set, setOnInsert)
	if err != nil {
		r.logger.Error("reaction upsert failed",
			zap.String("message_id", messageID),
			zap.String("identity", identity),
			zap.Error(err),
		)
		return nil, fmt.Errorf("upsert reaction: %w", err)
	}

	r.logger.Debug("reaction upserted",
		zap.String("message_id", messageID),
		zap.String("identity", identity),
		zap.String("emoji", emoji),
	)
	return reaction, nil
}

// Delete removes the identity's reaction from a message. A missing record is
// not an error: the result is simply nil, and the caller skips the broadcast.
func (r *reactionRepository) Delete(ctx context.Context, messageID, identity string) (*model.Reaction, error) {
	msgOID, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return nil, ErrInvalidID
	}
	userOID, err := primitive.ObjectIDFromHex(identity)
	if err != nil {
		return nil, ErrInvalidID
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := bson.M{"message": msgOID, "user": userOID}
	reaction, err := r.mongoRepo.FindOneAndDelete(ctx, filter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("delete reaction: %w", err)
	}
	return reaction, nil
}

// ForMessage lists a message's reactions, oldest first.
func (r *reactionRepository) ForMessage(ctx context.Context, messageID string) ([]model.Reaction, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().ObjectID("message", messageID).Build()
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	reactions, err := r.mongoRepo.FindAll(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	return reactions, nil
}

// ForMessages fetches reactions for a whole message page in one query,
// grouped by message id.
func (r *reactionRepository) ForMessages(ctx context.Context, messageIDs []primitive.ObjectID) (map[primitive.ObjectID][]model.Reaction, error) {
	grouped := make(map[primitive.ObjectID][]model.Reaction, len(messageIDs))
	if len(messageIDs) == 0 {
		return grouped, nil
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().In("message", messageIDs).Build()
	reactions, err := r.mongoRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}

	for _, reaction := range reactions {
		grouped[reaction.MessageID] = append(grouped[reaction.MessageID], reaction)
	}
	return grouped, nil
}
