package configuration

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/rahulm682/Chat-App/internal/auth"
	"github.com/rahulm682/Chat-App/internal/db"
	"github.com/rahulm682/Chat-App/internal/handler"
	"github.com/rahulm682/Chat-App/internal/hub"
	"github.com/rahulm682/Chat-App/internal/model"
	"github.com/rahulm682/Chat-App/internal/repo"
	"github.com/rahulm682/Chat-App/internal/service"
)

// Container wires the whole server together: storage, hub, services and
// handlers, with lifecycle tied to process start/stop.
type Container struct {
	Config          Config
	Logger          *zap.Logger
	Hub             *hub.Hub
	Verifier        *auth.Verifier
	Users           repo.UserRepository
	MessageHandler  handler.MessageHandler
	ChatHandler     handler.ChatHandler
	ReactionHandler handler.ReactionHandler
	MonitorHandler  handler.MonitorHandler

	// private - for cleanup
	mongoDB     *mongo.Database
	revocations *auth.RevocationStore
}

func BuildContainer() (*Container, error) {
	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	con, err := db.OpenConnection(config.Mongo.URI, config.Mongo.Database)
	if err != nil {
		return nil, fmt.Errorf("open mongo connection: %w", err)
	}

	messageRepo := repo.NewMessageRepository(
		db.NewRepository[model.Message](con, config.Mongo.MessagesCollection), logger)
	chatRepo := repo.NewChatRepository(
		db.NewRepository[model.Chat](con, config.Mongo.ChatsCollection), logger)
	reactionRepo := repo.NewReactionRepository(
		db.NewRepository[model.Reaction](con, config.Mongo.ReactionsCollection), logger)
	userRepo := repo.NewUserRepository(
		db.NewRepository[model.User](con, config.Mongo.UsersCollection))

	// The unique (message, user) index is what holds the one-reaction
	// invariant against concurrent writers.
	indexCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := reactionRepo.EnsureIndexes(indexCtx); err != nil {
		logger.Warn("reaction index creation failed", zap.Error(err))
	}

	var revocations *auth.RevocationStore
	if config.Auth.Revocation.Enabled {
		revocations, err = auth.OpenRevocationStore(indexCtx,
			config.Auth.Revocation.Addr,
			config.Auth.Revocation.Password,
			config.Auth.Revocation.DB,
		)
		if err != nil {
			return nil, fmt.Errorf("open revocation store: %w", err)
		}
	}
	verifier := auth.NewVerifier(config.Auth.JWTSecret, revocations, logger)

	h := hub.NewHub(logger)
	h.SetAllowedOrigins(config.Server.AllowedOrigins)

	messageService := service.NewMessageService(messageRepo, chatRepo, reactionRepo, h, logger)
	chatService := service.NewChatService(chatRepo, messageRepo, userRepo, logger)
	reactionService := service.NewReactionService(reactionRepo, messageRepo, chatRepo, h, logger)

	return &Container{
		Config:          *config,
		Logger:          logger,
		Hub:             h,
		Verifier:        verifier,
		Users:           userRepo,
		MessageHandler:  handler.NewMessageHandler(messageService),
		ChatHandler:     handler.NewChatHandler(chatService),
		ReactionHandler: handler.NewReactionHandler(reactionService),
		MonitorHandler:  handler.NewMonitorHandler(hub.NewMonitorService(h)),
		mongoDB:         con,
		revocations:     revocations,
	}, nil
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	// Stop the hub first (closes all WebSocket connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	if c.revocations != nil {
		_ = c.revocations.Close()
	}

	// Sync logger
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	// Close MongoDB connection pool
	if c.mongoDB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoDB.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	return nil
}
