package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("token invalid or expired")
	ErrRevokedToken = errors.New("token has been revoked")
)

// Claims carries the authenticated identity inside a signed token.
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// Verifier validates bearer credentials. Revocations is optional: when nil,
// no revocation lookup is performed.
type Verifier struct {
	secret      []byte
	revocations *RevocationStore
	logger      *zap.Logger
}

func NewVerifier(secret string, revocations *RevocationStore, logger *zap.Logger) *Verifier {
	return &Verifier{
		secret:      []byte(secret),
		revocations: revocations,
		logger:      logger,
	}
}

// Verify parses and validates a token string and returns the identity it was
// issued for. Any failure means the caller must refuse the connection or
// request before processing a single event.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrMissingToken
	}

	if v.revocations != nil {
		revoked, err := v.revocations.IsRevoked(ctx, tokenString)
		if err != nil {
			v.logger.Warn("revocation lookup failed", zap.Error(err))
			return "", fmt.Errorf("revocation lookup: %w", err)
		}
		if revoked {
			return "", ErrRevokedToken
		}
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	if claims.UserID == "" {
		return "", ErrInvalidToken
	}

	return claims.UserID, nil
}

// Sign issues a token for the given identity. Token issuance belongs to the
// external account service; this exists for tests and local tooling.
func (v *Verifier) Sign(identity string, registered jwt.RegisteredClaims) (string, error) {
	claims := &Claims{UserID: identity, RegisteredClaims: registered}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// signatureOf extracts the signature segment of a compact JWS, which is the
// revocation key.
func signatureOf(tokenString string) (string, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return "", ErrInvalidToken
	}
	return parts[2], nil
}
