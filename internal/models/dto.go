package models

import "time"

type CreateAccountRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateAccountResponse struct {
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

type UpdateUsernameRequest struct {
	NewUsername string `json:"new_username"`
}

type UpdateUsernameResponse struct {
	Username  string    `json:"username"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SendMessageRequest struct {
	ToUsername string `json:"to_username"`
	Content    string `json:"content"`
}

type SendMessageResponse struct {
	MessageID int64     `json:"message_id"`
	CreatedAt time.Time `json:"created_at"`
}

type MessageResponse struct {
	ID           int64     `json:"id"`
	FromUsername string    `json:"from_username"`
	ToUsername   string    `json:"to_username"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
}

type ConversationResponse struct {
	Username        string    `json:"username"`
	LastMessage     string    `json:"last_message"`
	LastMessageTime time.Time `json:"last_message_time"`
	UnreadCount     int64     `json:"unread_count"`
}

// KeyBundlePayload is the client-supplied key material on upload and the
// server's response shape on a claim. Key strings are opaque to the
// server (base64 or hex encoded public key bytes).
type KeyBundlePayload struct {
	IdentityKey           string   `json:"identity_key"`
	SignedPrekey          string   `json:"signed_prekey"`
	SignedPrekeySignature string   `json:"signed_prekey_signature"`
	OneTimePrekeys        []string `json:"one_time_prekeys"`
}

type UploadKeysRequest struct {
	KeyBundle KeyBundlePayload `json:"key_bundle"`
}

type UploadKeysResponse struct {
	Success bool `json:"success"`
}

type GetKeysResponse struct {
	KeyBundle KeyBundlePayload `json:"key_bundle"`
}
