package services

import (
	"context"
	"database/sql"
	"errors"
	"runtime"

	"github.com/lib/pq"

	"github.com/migchat/migchat-backend/internal/models"
	"github.com/migchat/migchat-backend/pkg/apperrors"
	"github.com/migchat/migchat-backend/pkg/utils"
)

// uniqueViolation is the Postgres error code for unique-constraint
// violations (duplicate username, duplicate session token).
const uniqueViolation = pq.ErrorCode("23505")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// CredentialStore owns persisted user records and password verification.
type CredentialStore struct {
	db *sql.DB

	// Bounds concurrent Argon2 computations so CPU-bound hashing cannot
	// monopolize the scheduler under a burst of signups/logins.
	hashSem chan struct{}
}

func NewCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{
		db:      db,
		hashSem: make(chan struct{}, runtime.GOMAXPROCS(0)),
	}
}

// HashPassword computes the Argon2id hash of password. Failures here are
// internal faults, not user-facing validation errors.
func (s *CredentialStore) HashPassword(ctx context.Context, password string) (string, error) {
	select {
	case s.hashSem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-s.hashSem }()

	hash, err := utils.HashPassword(password)
	if err != nil {
		return "", apperrors.InternalWrap("failed to hash password", err)
	}
	return hash, nil
}

// Create inserts a new user. Usernames are unique and case-sensitive.
func (s *CredentialStore) Create(ctx context.Context, username, passwordHash string) (*models.User, error) {
	user := &models.User{Username: username, PasswordHash: passwordHash}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id, created_at`,
		username, passwordHash,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrUsernameTaken
		}
		return nil, apperrors.InternalWrap("failed to create user", err)
	}

	return user, nil
}

// VerifyCredentials checks username and password and returns the user id.
func (s *CredentialStore) VerifyCredentials(ctx context.Context, username, password string) (int64, error) {
	var userID int64
	var passwordHash string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM users WHERE username = $1`,
		username,
	).Scan(&userID, &passwordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperrors.ErrUserNotFound
		}
		return 0, apperrors.InternalWrap("failed to look up user", err)
	}

	select {
	case s.hashSem <- struct{}{}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	ok, err := utils.VerifyPassword(password, passwordHash)
	<-s.hashSem
	if err != nil {
		return 0, apperrors.InternalWrap("failed to verify password", err)
	}
	if !ok {
		return 0, apperrors.ErrInvalidPassword
	}

	return userID, nil
}

// Lookup resolves a username to its user id.
func (s *CredentialStore) Lookup(ctx context.Context, username string) (int64, error) {
	var userID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE username = $1`, username,
	).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperrors.ErrUserNotFound
		}
		return 0, apperrors.InternalWrap("failed to look up user", err)
	}
	return userID, nil
}

// UsernameByID resolves a user id to its username.
func (s *CredentialStore) UsernameByID(ctx context.Context, userID int64) (string, error) {
	var username string
	err := s.db.QueryRowContext(ctx,
		`SELECT username FROM users WHERE id = $1`, userID,
	).Scan(&username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperrors.ErrUserNotFound
		}
		return "", apperrors.InternalWrap("failed to look up user", err)
	}
	return username, nil
}

// UpdateUsername changes a user's username. Conflicts with another
// user's name surface as ErrUsernameTaken.
func (s *CredentialStore) UpdateUsername(ctx context.Context, userID int64, newUsername string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET username = $1 WHERE id = $2`, newUsername, userID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrUsernameTaken
		}
		return apperrors.InternalWrap("failed to update username", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}
