package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/migchat/migchat-backend/pkg/apperrors"
)

const (
	// maxTokenAttempts bounds regeneration when a generated token
	// collides with an existing one (62^32 keyspace makes this
	// effectively unreachable; the unique constraint is the backstop).
	maxTokenAttempts = 3

	sessionKeyPrefix = "session:"
	sessionCacheTTL  = 24 * time.Hour
)

// SessionStore owns the token -> user identity mapping. Sessions are
// append-only and never expire in the current scope; Postgres is
// authoritative and Redis is a best-effort read-through cache.
type SessionStore struct {
	db     *sql.DB
	tokens *TokenGenerator
	cache  *redis.Client // nil disables caching
}

func NewSessionStore(db *sql.DB, tokens *TokenGenerator, cache *redis.Client) *SessionStore {
	return &SessionStore{db: db, tokens: tokens, cache: cache}
}

// Create issues a new session token for userID. A unique-constraint
// collision regenerates the token rather than dropping the request;
// after maxTokenAttempts the error surfaces as internal.
func (s *SessionStore) Create(ctx context.Context, userID int64) (string, error) {
	var lastErr error

	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := s.tokens.Generate()
		if err != nil {
			return "", apperrors.InternalWrap("failed to generate session token", err)
		}

		_, err = s.db.ExecContext(ctx,
			`INSERT INTO sessions (user_id, token) VALUES ($1, $2)`,
			userID, token,
		)
		if err == nil {
			s.cacheToken(ctx, token, userID)
			return token, nil
		}
		if !isUniqueViolation(err) {
			return "", apperrors.InternalWrap("failed to create session", err)
		}
		lastErr = err
	}

	return "", apperrors.InternalWrap("session token collisions exhausted retries", lastErr)
}

// Resolve maps a bearer token to a user id. Unknown tokens fail with
// ErrUnauthenticated. There is no expiry check; expires_at/revoked_at
// are a schema extension point, not part of this contract.
func (s *SessionStore) Resolve(ctx context.Context, token string) (int64, error) {
	if userID, ok := s.cachedToken(ctx, token); ok {
		return userID, nil
	}

	var userID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM sessions WHERE token = $1`, token,
	).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperrors.ErrUnauthenticated
		}
		return 0, apperrors.InternalWrap("failed to resolve session", err)
	}

	s.cacheToken(ctx, token, userID)
	return userID, nil
}

func (s *SessionStore) cacheToken(ctx context.Context, token string, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, sessionKeyPrefix+token, userID, sessionCacheTTL).Err(); err != nil {
		log.Printf("session cache set failed: %v", err)
	}
}

func (s *SessionStore) cachedToken(ctx context.Context, token string) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	val, err := s.cache.Get(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		return 0, false // cache miss or Redis down; Postgres decides
	}
	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return userID, true
}
