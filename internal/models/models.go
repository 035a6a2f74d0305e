package models

import "time"

// User is a row in the users table. Usernames are unique and
// case-sensitive; users are never hard-deleted.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session maps a bearer token to a user. One row per issued token; a
// user may hold multiple concurrent sessions (multi-device). Sessions
// have no expiry in the current scope.
type Session struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a direct message between two users. read_at is set when
// the recipient marks the conversation read.
type Message struct {
	ID         int64      `json:"id"`
	FromUserID int64      `json:"from_user_id"`
	ToUserID   int64      `json:"to_user_id"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}

// KeyBundle is a user's published long-term and medium-term public key
// material. At most one row per user; republishing replaces it and
// invalidates all previously stored one-time prekeys.
type KeyBundle struct {
	UserID                int64     `json:"user_id"`
	IdentityKey           string    `json:"identity_key"`
	SignedPrekey          string    `json:"signed_prekey"`
	SignedPrekeySignature string    `json:"signed_prekey_signature"`
	CreatedAt             time.Time `json:"created_at"`
}

// OneTimePrekey is a single-use public key. key_id is the ordinal
// within the publishing batch; once used is set it never reverts.
type OneTimePrekey struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	KeyID     int64     `json:"key_id"`
	PublicKey string    `json:"public_key"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}
