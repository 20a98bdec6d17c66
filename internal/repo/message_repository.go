package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/rahulm682/Chat-App/internal/db"
	"github.com/rahulm682/Chat-App/internal/model"
)

var (
	ErrInvalidMessage   = errors.New("invalid message: message cannot be nil")
	ErrInvalidChatID    = errors.New("invalid chat ID: cannot be empty")
	ErrInvalidID        = errors.New("invalid object ID")
	ErrOperationTimeout = errors.New("operation timeout exceeded")
)

const (
	// Timeouts
	defaultWriteTimeout = 5 * time.Second
	defaultReadTimeout  = 30 * time.Second

	// Retry configuration
	maxRetries     = 3
	baseRetryDelay = 100 * time.Millisecond
	maxRetryDelay  = 2 * time.Second

	// Pagination
	defaultPageSize = 15
)

type messageRepository struct {
	mongoRepo *db.Repository[model.Message]
	logger    *zap.Logger
}

// MessageRepository owns the messages collection, including the read-cursor
// set that all unread computation derives from. Every mutation here is
// idempotent (set-add), so retrying after a transient failure is safe.
type MessageRepository interface {
	Insert(ctx context.Context, msg *model.Message) (string, error)
	FindByID(ctx context.Context, id string) (*model.Message, error)
	Page(ctx context.Context, chatID string, page, limit int64) (*db.PaginatedResult[model.Message], error)
	MarkChatRead(ctx context.Context, chatID, identity string) (int64, error)
	AddToReadBy(ctx context.Context, messageID string, identities []string) error
	CountUnread(ctx context.Context, chatID, identity string) (int64, error)
}

func NewMessageRepository(repo *db.Repository[model.Message], logger *zap.Logger) MessageRepository {
	return &messageRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

// -----------------------------------------------------------------------------
// Insert
// -----------------------------------------------------------------------------

// Insert persists a new message. The caller must have pre-added the sender
// to ReadBy; storage never sees a message its own sender has not read.
func (m *messageRepository) Insert(ctx context.Context, msg *model.Message) (string, error) {
	if msg == nil {
		return "", ErrInvalidMessage
	}
	if msg.ChatID.IsZero() {
		return "", ErrInvalidChatID
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return "", err
			}
		}

		result, err := m.mongoRepo.Create(ctx, *msg)
		if err == nil {
			insertedID := ""
			if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
				insertedID = oid.Hex()
				msg.ID = oid
			}

			m.logger.Info("message inserted",
				zap.String("inserted_id", insertedID),
				zap.String("chat_id", msg.ChatID.Hex()),
				zap.Int("attempt", attempt+1),
			)
			return insertedID, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}

		m.logger.Warn("insert attempt failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
		)
	}

	m.logger.Error("failed to insert message",
		zap.Error(lastErr),
		zap.String("chat_id", msg.ChatID.Hex()),
	)
	return "", fmt.Errorf("insert message failed: %w", lastErr)
}

// FindByID returns nil (no error) when the message does not exist.
func (m *messageRepository) FindByID(ctx context.Context, id string) (*model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	msg, err := m.mongoRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, primitive.ErrInvalidHex) {
			return nil, nil
		}
		return nil, fmt.Errorf("find message: %w", err)
	}
	return msg, nil
}

// -----------------------------------------------------------------------------
// Pagination
// -----------------------------------------------------------------------------

// Page fetches one page of a chat's history, newest first, ties broken by
// id so page boundaries stay stable. Callers reverse for display order.
func (m *messageRepository) Page(ctx context.Context, chatID string, page, limit int64) (*db.PaginatedResult[model.Message], error) {
	if chatID == "" {
		return nil, ErrInvalidChatID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	if limit < 1 {
		limit = defaultPageSize
	}

	filter := db.NewFilter().ObjectID("chat", chatID).Build()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return nil, err
			}
			m.logger.Warn("retrying message page fetch",
				zap.String("chat_id", chatID),
				zap.Int("attempt", attempt+1),
			)
		}

		result, err := m.mongoRepo.FindWithPagination(ctx, filter, db.PaginationParams{
			Page:     page,
			PageSize: limit,
			SortBy:   "created_at",
			SortDesc: true,
			TieBy:    "_id",
		})
		if err == nil {
			m.logger.Debug("messages paged",
				zap.String("chat_id", chatID),
				zap.Int("count", len(result.Data)),
				zap.Int64("total", result.Total),
				zap.Int64("page", result.Page),
			)
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	return nil, handleReadError(m.logger, lastErr, chatID)
}

// -----------------------------------------------------------------------------
// Read cursors
// -----------------------------------------------------------------------------

// MarkChatRead adds the identity to the read set of every message in the
// chat not already containing it, and returns how many were mutated.
// Calling it twice in a row with no new messages mutates zero: $addToSet on
// an already-present member is a no-op, which also makes retries safe after
// a partial failure.
func (m *messageRepository) MarkChatRead(ctx context.Context, chatID, identity string) (int64, error) {
	chatOID, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return 0, ErrInvalidChatID
	}
	userOID, err := primitive.ObjectIDFromHex(identity)
	if err != nil {
		return 0, ErrInvalidID
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := bson.M{"chat": chatOID, "read_by": bson.M{"$ne": userOID}}
	update := bson.M{"$addToSet": bson.M{"read_by": userOID}}

	result, err := m.mongoRepo.UpdateManyRaw(ctx, filter, update)
	if err != nil {
		m.logger.Error("mark chat read failed",
			zap.String("chat_id", chatID),
			zap.String("identity", identity),
			zap.Error(err),
		)
		return 0, fmt.Errorf("mark chat read: %w", err)
	}

	m.logger.Debug("chat marked read",
		zap.String("chat_id", chatID),
		zap.String("identity", identity),
		zap.Int64("modified", result.ModifiedCount),
	)
	return result.ModifiedCount, nil
}

// AddToReadBy adds the given identities to one message's read set. Used for
// implicit read acknowledgment at delivery time for participants currently
// viewing the chat.
func (m *messageRepository) AddToReadBy(ctx context.Context, messageID string, identities []string) error {
	if len(identities) == 0 {
		return nil
	}

	msgOID, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return ErrInvalidID
	}

	oids := make([]primitive.ObjectID, 0, len(identities))
	for _, id := range identities {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return ErrInvalidID
		}
		oids = append(oids, oid)
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	update := bson.M{"$addToSet": bson.M{"read_by": bson.M{"$each": oids}}}
	if _, err := m.mongoRepo.UpdateByIDRaw(ctx, msgOID, update); err != nil {
		return fmt.Errorf("add to read set: %w", err)
	}
	return nil
}

// CountUnread computes the identity's unread count for one chat directly
// from the read sets. There is no cached counter to drift: this query is
// the only source of truth for chat-list badges.
func (m *messageRepository) CountUnread(ctx context.Context, chatID, identity string) (int64, error) {
	chatOID, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return 0, ErrInvalidChatID
	}
	userOID, err := primitive.ObjectIDFromHex(identity)
	if err != nil {
		return 0, ErrInvalidID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := bson.M{"chat": chatOID, "read_by": bson.M{"$ne": userOID}}
	count, err := m.mongoRepo.Count(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// -----------------------------------------------------------------------------
// Shared helpers
// -----------------------------------------------------------------------------

func ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hadDeadline := ctx.Deadline(); hadDeadline {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func waitForRetry(ctx context.Context, attempt int) error {
	delay := time.Duration(1<<uint(attempt)) * baseRetryDelay
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are not retryable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return true
	}

	return false
}

func handleReadError(logger *zap.Logger, err error, chatID string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		logger.Error("read timeout", zap.String("chat_id", chatID))
		return ErrOperationTimeout
	}

	if errors.Is(err, context.Canceled) {
		logger.Debug("read cancelled", zap.String("chat_id", chatID))
		return err
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil // Not an error, just empty result
	}

	logger.Error("read failed", zap.Error(err), zap.String("chat_id", chatID))
	return fmt.Errorf("page messages failed: %w", err)
}
