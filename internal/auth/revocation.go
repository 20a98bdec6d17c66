package auth

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RevocationStore checks whether a token has been revoked. Revoked tokens
// are recorded by the external account service under their JWS signature.
type RevocationStore struct {
	rdb *redis.Client
}

func NewRevocationStore(rdb *redis.Client) *RevocationStore {
	return &RevocationStore{rdb: rdb}
}

// OpenRevocationStore connects to redis and verifies the connection.
func OpenRevocationStore(ctx context.Context, addr, password string, db int) (*RevocationStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, err
	}
	return &RevocationStore{rdb: rdb}, nil
}

// IsRevoked reports whether the token's signature is present in the store.
func (s *RevocationStore) IsRevoked(ctx context.Context, tokenString string) (bool, error) {
	sig, err := signatureOf(tokenString)
	if err != nil {
		return false, err
	}

	_, err = s.rdb.Get(ctx, "revoked:"+sig).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Close releases the redis connection pool.
func (s *RevocationStore) Close() error {
	return s.rdb.Close()
}
