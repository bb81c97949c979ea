package handlers

import (
	"net/http"
	"strconv"
	"vanisher/database"
	"vanisher/logger"
	"vanisher/models"

	"github.com/go-chi/chi/v5"
)

func RegisterTrafficRoutes(r chi.Router) {
	r.Get("/traffic", listTaggedTraffic)
	r.Delete("/traffic", clearTaggedTraffic)
}

type taggedTrafficResponse struct {
	Entries      []models.TaggedTraffic `json:"entries"`
	TotalRecords int64                  `json:"total_records"`
	Page         int                    `json:"page"`
	Limit        int                    `json:"limit"`
}

// listTaggedTraffic pages through the responses the proxy tagged.
func listTaggedTraffic(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 500 {
		limit = 50
	}

	entries, total, err := database.GetTaggedTrafficPaginated(limit, (page-1)*limit)
	if err != nil {
		logger.Error("listTaggedTraffic: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if entries == nil {
		entries = []models.TaggedTraffic{}
	}

	respondWithJSON(w, http.StatusOK, taggedTrafficResponse{
		Entries:      entries,
		TotalRecords: total,
		Page:         page,
		Limit:        limit,
	})
}

func clearTaggedTraffic(w http.ResponseWriter, r *http.Request) {
	n, err := database.ClearTaggedTraffic()
	if err != nil {
		logger.Error("clearTaggedTraffic: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	logger.Info("Cleared %d tagged traffic entries via API", n)
	respondWithJSON(w, http.StatusOK, map[string]int64{"cleared": n})
}
