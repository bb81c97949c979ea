package handlers

import (
	"encoding/json"
	"net/http"
	"vanisher/core"
	"vanisher/logger"

	"github.com/go-chi/chi/v5"
)

type ignoreRequest struct {
	URL string `json:"url"`
}

// RegisterIgnoreRoutes wires the quick-ignore actions: given an observed
// request URL, add a HOST or URL rule and exclude it immediately, even
// when the rule already existed.
func RegisterIgnoreRoutes(r chi.Router, v *core.Vanisher) {
	r.Post("/ignore/host", func(w http.ResponseWriter, req *http.Request) {
		ignoreAction(w, req, v.IgnoreHost)
	})
	r.Post("/ignore/url", func(w http.ResponseWriter, req *http.Request) {
		ignoreAction(w, req, v.IgnoreURL)
	})
}

func ignoreAction(w http.ResponseWriter, r *http.Request, action func(string) (core.AddResult, error)) {
	var req ignoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("ignoreAction: Error decoding request body: %v", err)
		respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	if req.URL == "" {
		respondWithError(w, http.StatusBadRequest, "url is required")
		return
	}

	result, err := action(req.URL)
	if err != nil {
		respondWithRuleError(w, err)
		return
	}

	status := http.StatusOK
	if result.Added {
		status = http.StatusCreated
	}
	respondWithJSON(w, status, result)
}
