package handlers

import (
	"net/http"
	"time"

	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/auth"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/httpx"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/services"
)

type HealthContextHandler struct {
	Context *services.HealthContextService
}

func NewHealthContextHandler(svc *services.HealthContextService) *HealthContextHandler {
	return &HealthContextHandler{Context: svc}
}

func (h *HealthContextHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())

	ctx, err := h.Context.Build(uid, time.Now())
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "store_error", nil)
		return
	}
	httpx.OK(w, map[string]any{
		"context": ctx,
		"prompt":  ctx.FormatForPrompt(),
	})
}
