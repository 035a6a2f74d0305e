package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/migchat/migchat-backend/internal/middleware"
	"github.com/migchat/migchat-backend/internal/models"
	"github.com/migchat/migchat-backend/internal/services"
	"github.com/migchat/migchat-backend/pkg/apperrors"
)

// MessageHandler serves direct message send/list/read-state endpoints.
type MessageHandler struct {
	Messages    MessageService
	Credentials CredentialService
	Hub         *services.Hub // nil disables realtime push
}

// Send delivers a message to a recipient identified by username.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, apperrors.ErrUnauthenticated)
		return
	}

	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Invalid("invalid request body"))
		return
	}
	if req.Content == "" {
		writeError(w, apperrors.Invalid("message content cannot be empty"))
		return
	}

	recipientID, err := h.Credentials.Lookup(r.Context(), req.ToUsername)
	if err != nil {
		writeError(w, err)
		return
	}

	msg, err := h.Messages.Send(r.Context(), userID, recipientID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	h.pushEvent(r.Context(), userID, recipientID, msg)

	writeJSON(w, http.StatusOK, models.SendMessageResponse{
		MessageID: msg.ID,
		CreatedAt: msg.CreatedAt,
	})
}

// pushEvent notifies the recipient's open connections. Best effort: the
// message is already persisted, so a push failure only logs.
func (h *MessageHandler) pushEvent(ctx context.Context, senderID, recipientID int64, msg *models.Message) {
	if h.Hub == nil {
		return
	}
	senderName, err := h.Credentials.UsernameByID(ctx, senderID)
	if err != nil {
		log.Printf("failed to resolve sender username for push: %v", err)
		return
	}
	event := services.MessageEvent{
		Type:         "message",
		MessageID:    msg.ID,
		FromUsername: senderName,
		ToUserID:     recipientID,
		Content:      msg.Content,
		Timestamp:    msg.CreatedAt,
	}
	if err := h.Hub.Publish(ctx, event); err != nil {
		log.Printf("failed to publish message event: %v", err)
	}
}

// List returns the caller's messages, optionally filtered to one peer
// via ?with_user=<username>.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, apperrors.ErrUnauthenticated)
		return
	}

	withUser := r.URL.Query().Get("with_user")
	if withUser == "" {
		messages, err := h.Messages.List(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messages)
		return
	}

	otherID, err := h.Credentials.Lookup(r.Context(), withUser)
	if err != nil {
		writeError(w, err)
		return
	}
	messages, err := h.Messages.ListWith(r.Context(), userID, otherID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// Conversations returns the caller's per-peer conversation summaries.
func (h *MessageHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, apperrors.ErrUnauthenticated)
		return
	}

	conversations, err := h.Messages.Conversations(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conversations)
}

// MarkRead marks all inbound messages from ?with_user=<username> read.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, apperrors.ErrUnauthenticated)
		return
	}

	withUser := r.URL.Query().Get("with_user")
	if withUser == "" {
		writeError(w, apperrors.Invalid("with_user parameter is required"))
		return
	}

	otherID, err := h.Credentials.Lookup(r.Context(), withUser)
	if err != nil {
		writeError(w, err)
		return
	}

	n, err := h.Messages.MarkRead(r.Context(), userID, otherID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"marked_read": n})
}
