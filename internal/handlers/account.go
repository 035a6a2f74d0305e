package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/migchat/migchat-backend/internal/middleware"
	"github.com/migchat/migchat-backend/internal/models"
	"github.com/migchat/migchat-backend/pkg/apperrors"
	"github.com/migchat/migchat-backend/pkg/utils"
)

const minPasswordLength = 8

// AccountHandler serves account creation, login and username changes.
type AccountHandler struct {
	Credentials CredentialService
	Sessions    SessionService
}

// CreateAccount registers a user and issues the first session.
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Invalid("invalid request body"))
		return
	}

	req.Username = utils.NormalizeUsername(req.Username)
	if err := utils.ValidateUsername(req.Username); err != nil {
		writeError(w, apperrors.Invalid(err.Error()))
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, apperrors.Invalid("Password must be at least 8 characters"))
		return
	}

	hash, err := h.Credentials.HashPassword(r.Context(), req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.Credentials.Create(r.Context(), req.Username, hash)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.Sessions.Create(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.CreateAccountResponse{
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
	})
}

// Login verifies credentials and issues a new session. Existing sessions
// stay valid (multi-device).
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Invalid("invalid request body"))
		return
	}
	req.Username = utils.NormalizeUsername(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, apperrors.Invalid("username and password are required"))
		return
	}

	userID, err := h.Credentials.VerifyCredentials(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.Sessions.Create(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{
		Token:    token,
		UserID:   userID,
		Username: req.Username,
	})
}

// UpdateUsername changes the authenticated user's username.
func (h *AccountHandler) UpdateUsername(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, apperrors.ErrUnauthenticated)
		return
	}

	var req models.UpdateUsernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Invalid("invalid request body"))
		return
	}
	req.NewUsername = utils.NormalizeUsername(req.NewUsername)
	if err := utils.ValidateUsername(req.NewUsername); err != nil {
		writeError(w, apperrors.Invalid(err.Error()))
		return
	}

	if err := h.Credentials.UpdateUsername(r.Context(), userID, req.NewUsername); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.UpdateUsernameResponse{
		Username:  req.NewUsername,
		UpdatedAt: time.Now().UTC(),
	})
}
