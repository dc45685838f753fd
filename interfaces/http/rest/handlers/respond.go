package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apperrors "bookgraph/pkg/errors"
)

// errorBody is the wire shape of every error response.
type errorBody struct {
	Detail string `json:"detail"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps application errors to HTTP statuses and emits a
// {"detail": ...} body.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	appErr := apperrors.GetAppError(err)
	if appErr == nil {
		logger.Error("unhandled error", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, errorBody{Detail: "internal server error"})
		return
	}
	if appErr.HTTPStatus >= 500 {
		logger.Error("request failed", zap.Error(err))
	}
	respondJSON(w, appErr.HTTPStatus, errorBody{Detail: appErr.Message})
}
