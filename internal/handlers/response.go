package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"SecondChance/internal/model"

	"go.uber.org/zap"
)

const (
	msgNotFound         = "Item not found"
	msgUpdated          = "Item updated successfully"
	msgDeleted          = "Item deleted successfully"
	msgStoreUnavailable = "store unavailable"
	msgInternal         = "internal error"
)

// MessageResponse — тело всех ответов с сообщением, включая ошибки.
type MessageResponse struct {
	Message string `json:"message"`
}

// RespondJSON пишет v как JSON с заданным статусом.
func RespondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RespondMessage пишет {"message": msg}.
func RespondMessage(w http.ResponseWriter, status int, msg string) {
	RespondJSON(w, status, MessageResponse{Message: msg})
}

// MapHTTPStatus сопоставляет вид ошибки со статусом ответа и сообщением для клиента.
func MapHTTPStatus(err error) (int, string) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, model.ErrFileTooLarge), errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, model.ErrFileTooLarge.Error()
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrUpload):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, model.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, msgStoreUnavailable
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// RespondError логирует ошибку (5xx — Errorw, 4xx — Warnw) и отвечает JSON-сообщением.
func RespondError(w http.ResponseWriter, logger *zap.SugaredLogger, r *http.Request, err error) {
	status, msg := MapHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Errorw("request failed", "method", r.Method, "uri", r.RequestURI, "status", status, "error", err)
	} else {
		logger.Warnw("request rejected", "method", r.Method, "uri", r.RequestURI, "status", status, "error", err)
	}
	RespondMessage(w, status, msg)
}
