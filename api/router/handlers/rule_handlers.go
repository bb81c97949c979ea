package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"vanisher/core"
	"vanisher/logger"
	"vanisher/models"

	"github.com/go-chi/chi/v5"
)

type ruleHandlers struct {
	vanisher *core.Vanisher
	lister   core.ExclusionLister
}

type entryRequest struct {
	Entry string `json:"entry"`
}

type positionsRequest struct {
	Positions []int `json:"positions"`
}

// listRules returns the ordered rule list plus the count of records
// skipped on the last load.
func (h *ruleHandlers) listRules(w http.ResponseWriter, r *http.Request) {
	rules := h.vanisher.Store().Rules()
	if rules == nil {
		rules = []models.Rule{}
	}
	respondWithJSON(w, http.StatusOK, models.RuleListResponse{
		Rules:   rules,
		Skipped: h.vanisher.SkippedOnLoad(),
	})
}

func (h *ruleHandlers) addRule(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("addRule: Error decoding request body: %v", err)
		respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	result, err := h.vanisher.AddEntry(req.Entry)
	if err != nil {
		respondWithRuleError(w, err)
		return
	}
	logger.Info("Rule added via API: %q at position %d", result.Rule.String(), result.Position)
	respondWithJSON(w, http.StatusCreated, result)
}

func parsePosition(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "position"))
}

func (h *ruleHandlers) editRule(w http.ResponseWriter, r *http.Request) {
	position, err := parsePosition(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid position parameter, must be an integer")
		return
	}

	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("editRule: Error decoding request body: %v", err)
		respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	result, err := h.vanisher.EditEntry(position, req.Entry)
	if err != nil {
		respondWithRuleError(w, err)
		return
	}
	logger.Info("Rule edited via API: position %d is now %q", position, result.Rule.String())
	respondWithJSON(w, http.StatusOK, result)
}

func (h *ruleHandlers) removeRule(w http.ResponseWriter, r *http.Request) {
	position, err := parsePosition(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid position parameter, must be an integer")
		return
	}

	if _, err := h.vanisher.RemoveRules([]int{position}); err != nil {
		respondWithRuleError(w, err)
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}

func (h *ruleHandlers) removeRules(w http.ResponseWriter, r *http.Request) {
	var req positionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("removeRules: Error decoding request body: %v", err)
		respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	if len(req.Positions) == 0 {
		respondWithError(w, http.StatusBadRequest, "positions is required")
		return
	}

	removed, err := h.vanisher.RemoveRules(req.Positions)
	if err != nil {
		respondWithRuleError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{"removed": len(removed)})
}

func (h *ruleHandlers) clearRules(w http.ResponseWriter, r *http.Request) {
	n, err := h.vanisher.ClearRules()
	if err != nil {
		respondWithRuleError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{"cleared": n})
}

// excludeRules replays the selected rules (all when positions is empty)
// against the host scope API and returns the batch summary.
func (h *ruleHandlers) excludeRules(w http.ResponseWriter, r *http.Request) {
	var req positionsRequest
	if r.Body != nil {
		// Body is optional; an empty selection means every rule.
		json.NewDecoder(r.Body).Decode(&req)
		r.Body.Close()
	}

	report, err := h.vanisher.ExcludePositions(req.Positions)
	if err != nil {
		respondWithRuleError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

func (h *ruleHandlers) saveRules(w http.ResponseWriter, r *http.Request) {
	if err := h.vanisher.Persist(); err != nil {
		logger.Error("saveRules: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Save failed")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

type syncStatusResponse struct {
	RuleCount    int      `json:"rule_count"`
	HostPatterns []string `json:"host_patterns"`
	Missing      []string `json:"missing,omitempty"`
}

// syncStatus compares the local rule set against what the host proxy
// currently excludes.
func (h *ruleHandlers) syncStatus(w http.ResponseWriter, r *http.Request) {
	if h.lister == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Host scope API is not configured")
		return
	}

	patterns, err := h.lister.ListExclusions()
	if err != nil {
		logger.Error("syncStatus: Error fetching host exclusion list: %v", err)
		respondWithError(w, http.StatusBadGateway, "Failed to fetch host exclusion list: "+err.Error())
		return
	}

	known := make(map[string]bool, len(patterns))
	for _, p := range patterns {
		known[p] = true
	}

	resp := syncStatusResponse{RuleCount: h.vanisher.Store().Len(), HostPatterns: patterns}
	for _, rule := range h.vanisher.Store().Rules() {
		for _, u := range core.ExclusionURLs(rule) {
			if !known[u] {
				resp.Missing = append(resp.Missing, u)
			}
		}
	}
	respondWithJSON(w, http.StatusOK, resp)
}
