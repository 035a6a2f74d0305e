package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/migchat/migchat-backend/pkg/apperrors"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("error encoding response: %v", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps an error to its HTTP status. Internal causes are
// logged but never serialized to the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Internal("internal server error")
	}

	status := http.StatusInternalServerError
	switch appErr.Code {
	case apperrors.CodeInvalid:
		status = http.StatusBadRequest
	case apperrors.CodeNotFound:
		status = http.StatusNotFound
	case apperrors.CodeConflict:
		status = http.StatusConflict
	case apperrors.CodeUnauthenticated:
		status = http.StatusUnauthorized
	}

	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		writeJSON(w, status, errorBody{Error: "internal server error"})
		return
	}
	writeJSON(w, status, errorBody{Error: appErr.Message})
}
