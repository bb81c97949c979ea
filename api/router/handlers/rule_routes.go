package handlers

import (
	"vanisher/core"

	"github.com/go-chi/chi/v5"
)

func RegisterRuleRoutes(r chi.Router, v *core.Vanisher, lister core.ExclusionLister) {
	h := &ruleHandlers{vanisher: v, lister: lister}

	r.Get("/rules", h.listRules)
	r.Post("/rules", h.addRule)
	r.Put("/rules/{position}", h.editRule)
	r.Delete("/rules/{position}", h.removeRule)
	r.Post("/rules/remove", h.removeRules)
	r.Post("/rules/clear", h.clearRules)
	r.Post("/rules/exclude", h.excludeRules)
	r.Post("/rules/save", h.saveRules)
	r.Get("/sync/status", h.syncStatus)
}
