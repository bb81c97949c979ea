package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"vanisher/core"
	"vanisher/logger"
	"vanisher/models"
)

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, models.ErrorResponse{Message: message})
}

// respondWithRuleError maps the store/parse error taxonomy to HTTP
// statuses: duplicates conflict, bad positions are not found, malformed
// entries are bad requests, anything else is internal.
func respondWithRuleError(w http.ResponseWriter, err error) {
	var dup *core.DuplicateRuleError
	var notFound *core.NotFoundError
	var malformed *models.MalformedEntryError
	switch {
	case errors.As(err, &dup):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.As(err, &notFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &malformed):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error("Internal error handling rule operation: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
