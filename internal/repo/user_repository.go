package repo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rahulm682/Chat-App/internal/db"
	"github.com/rahulm682/Chat-App/internal/model"
)

// UserRepository resolves identities against the users collection. Account
// management is external; the handshake only needs to know the user exists.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	Exists(ctx context.Context, id string) (bool, error)
}

type userRepository struct {
	mongoRepo *db.Repository[model.User]
}

func NewUserRepository(repo *db.Repository[model.User]) UserRepository {
	return &userRepository{mongoRepo: repo}
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	user, err := r.mongoRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, primitive.ErrInvalidHex) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (r *userRepository) Exists(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	return r.mongoRepo.Exists(ctx, db.NewFilter().Eq("_id", oid).Build())
}
