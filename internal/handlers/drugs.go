package handlers

import (
	"net/http"
	"strings"

	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/httpx"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/middleware"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/services"
)

type DrugHandler struct {
	RAG *services.DrugRAGService
}

func NewDrugHandler(svc *services.DrugRAGService) *DrugHandler { return &DrugHandler{RAG: svc} }

// Search resolves a drug keyword through cache and the external registry.
// Lookup failures degrade to an empty result, never an error status.
func (h *DrugHandler) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		httpx.JSONError(w, http.StatusBadRequest, "query_required", nil)
		return
	}

	res := h.RAG.Run(r.Context(), middleware.RequestIDFrom(r), q)
	httpx.OK(w, map[string]any{
		"items":       res.Items,
		"item_count":  res.ItemCount,
		"api_used":    res.APIUsed,
		"call_count":  res.CallCount,
		"drugContext": res.DrugContext,
	})
}
