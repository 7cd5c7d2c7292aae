package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/example/ec-storefront/internal/apperr"
	log "github.com/sirupsen/logrus"
)

// HTTPStatus maps an error kind to its response code.
func HTTPStatus(kind apperr.Kind) int {
	switch kind {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.InvalidArgument:
		return http.StatusBadRequest
	case apperr.InsufficientStock, apperr.Conflict:
		return http.StatusConflict
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	case apperr.Forbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// WriteError answers with the status of err's kind. Internal failures are
// logged and answered with a generic message.
func WriteError(w http.ResponseWriter, logger *log.Entry, err error) {
	status := HTTPStatus(apperr.KindOf(err))
	if status == http.StatusInternalServerError {
		logger.WithError(err).Error("request failed")
		WriteJSONError(w, "internal server error", status)
		return
	}
	WriteJSONError(w, err.Error(), status)
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func WriteJSONError(w http.ResponseWriter, message string, status int) {
	WriteJSON(w, status, map[string]string{"error": message})
}
