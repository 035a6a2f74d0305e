package handlers

import (
	"context"

	"github.com/migchat/migchat-backend/internal/models"
	"github.com/migchat/migchat-backend/internal/services"
)

// Service contracts the handlers depend on. The concrete types in
// internal/services satisfy them; tests substitute fakes.

type CredentialService interface {
	HashPassword(ctx context.Context, password string) (string, error)
	Create(ctx context.Context, username, passwordHash string) (*models.User, error)
	VerifyCredentials(ctx context.Context, username, password string) (int64, error)
	Lookup(ctx context.Context, username string) (int64, error)
	UsernameByID(ctx context.Context, userID int64) (string, error)
	UpdateUsername(ctx context.Context, userID int64, newUsername string) error
}

type SessionService interface {
	Create(ctx context.Context, userID int64) (string, error)
	Resolve(ctx context.Context, token string) (int64, error)
}

type MessageService interface {
	Send(ctx context.Context, fromUserID, toUserID int64, content string) (*models.Message, error)
	List(ctx context.Context, userID int64) ([]models.MessageResponse, error)
	ListWith(ctx context.Context, userID, otherUserID int64) ([]models.MessageResponse, error)
	Conversations(ctx context.Context, userID int64) ([]models.ConversationResponse, error)
	MarkRead(ctx context.Context, userID, otherUserID int64) (int64, error)
}

type KeyPublisher interface {
	Publish(ctx context.Context, userID int64, bundle models.KeyBundlePayload) error
}

type BundleClaimer interface {
	ClaimBundle(ctx context.Context, requestingUserID int64, targetUsername string) (*models.KeyBundlePayload, error)
}

var _ CredentialService = (*services.CredentialStore)(nil)
var _ SessionService = (*services.SessionStore)(nil)
var _ MessageService = (*services.MessageStore)(nil)
var _ KeyPublisher = (*services.KeyBundleStore)(nil)
var _ BundleClaimer = (*services.KeyExchangeService)(nil)
