package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/cibounipi/mensabot/pkg/errors"
)

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps application error types to HTTP status codes
func respondWithAppError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case apperrors.ErrorTypeNotFound:
			respondWithError(w, http.StatusNotFound, appErr.Message)
		case apperrors.ErrorTypeValidation:
			respondWithError(w, http.StatusUnprocessableEntity, appErr.Message)
		case apperrors.ErrorTypeExternal:
			log.Error().Err(err).Msg("External dependency failed")
			respondWithError(w, http.StatusBadGateway, "upstream unavailable")
		default:
			log.Error().Err(err).Msg("Request failed")
			respondWithError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	log.Error().Err(err).Msg("Request failed")
	respondWithError(w, http.StatusInternalServerError, "internal server error")
}
