package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/auth"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/httpx"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/services"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/usda"
)

const dniMaxFoods = 5

// FoodResolver is the nutrition lookup surface; satisfied by *usda.Client.
type FoodResolver interface {
	SearchAndGetNutrients(ctx context.Context, query string, maxFoods int) ([]usda.FoodProfile, error)
}

type DniHandler struct {
	DNI   *services.DniService
	Foods FoodResolver
}

func NewDniHandler(dni *services.DniService, foods FoodResolver) *DniHandler {
	return &DniHandler{DNI: dni, Foods: foods}
}

// Check resolves the named foods through the nutrition API and runs the
// drug-nutrient inference against the caller's active medications. Food
// lookup failures are skipped, not fatal.
func (h *DniHandler) Check(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())

	var input struct {
		Foods []string `json:"foods"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	var names []string
	for _, f := range input.Foods {
		if f = strings.TrimSpace(f); f != "" {
			names = append(names, f)
		}
	}
	if len(names) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "foods_required", nil)
		return
	}
	if len(names) > dniMaxFoods {
		names = names[:dniMaxFoods]
	}

	var profiles []usda.FoodProfile
	if h.Foods != nil {
		for _, name := range names {
			found, err := h.Foods.SearchAndGetNutrients(r.Context(), name, 1)
			if err != nil {
				log.Printf("[DNI] food lookup %q failed: %v", name, err)
				continue
			}
			profiles = append(profiles, found...)
		}
	}

	res := h.DNI.Check(uid, profiles)
	httpx.OK(w, map[string]any{
		"hasCautions": res.HasCautions,
		"cautions":    res.Cautions,
		"guide":       res.Guide,
	})
}
