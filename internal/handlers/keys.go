package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/migchat/migchat-backend/internal/middleware"
	"github.com/migchat/migchat-backend/internal/models"
	"github.com/migchat/migchat-backend/pkg/apperrors"
)

// KeysHandler serves key bundle publication and claims.
type KeysHandler struct {
	Publisher KeyPublisher
	Exchange  BundleClaimer
}

// UploadKeys publishes (or republishes) the caller's key bundle. A
// republish invalidates every previously stored one-time prekey.
func (h *KeysHandler) UploadKeys(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, apperrors.ErrUnauthenticated)
		return
	}

	var req models.UploadKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Invalid("invalid request body"))
		return
	}

	b := req.KeyBundle
	if b.IdentityKey == "" || b.SignedPrekey == "" || b.SignedPrekeySignature == "" {
		writeError(w, apperrors.Invalid("identity_key, signed_prekey and signed_prekey_signature are required"))
		return
	}

	if err := h.Publisher.Publish(r.Context(), userID, b); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.UploadKeysResponse{Success: true})
}

// GetKeys serves the target user's bundle to the caller, consuming one
// one-time prekey.
func (h *KeysHandler) GetKeys(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, apperrors.ErrUnauthenticated)
		return
	}

	username := chi.URLParam(r, "username")
	if username == "" {
		writeError(w, apperrors.Invalid("username is required"))
		return
	}

	bundle, err := h.Exchange.ClaimBundle(r.Context(), userID, username)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.GetKeysResponse{KeyBundle: *bundle})
}
