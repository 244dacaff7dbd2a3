package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/auth"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/httpx"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/models"
)

type ProfileHandler struct{ DB *gorm.DB }

func NewProfileHandler(db *gorm.DB) *ProfileHandler { return &ProfileHandler{DB: db} }

func (h *ProfileHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.update(w, r)
	default:
		w.Header().Set("Allow", "GET,PUT")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	}
}

func (h *ProfileHandler) get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var profile models.Profile
	if err := h.DB.Where("user_id = ?", uid).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "profile_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "store_error", nil)
		return
	}
	httpx.OK(w, map[string]any{"profile": profileView(profile)})
}

func (h *ProfileHandler) update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var input struct {
		Nickname    *string  `json:"nickname"`
		BirthDate   *string  `json:"birth_date"`
		Gender      *string  `json:"gender"`
		HeightCm    *float64 `json:"height_cm"`
		WeightKg    *float64 `json:"weight_kg"`
		Conditions  *string  `json:"conditions"`
		Medications *string  `json:"medications"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	var profile models.Profile
	if err := h.DB.Where("user_id = ?", uid).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "profile_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "store_error", nil)
		return
	}

	if input.Nickname != nil {
		profile.Nickname = strings.TrimSpace(*input.Nickname)
	}
	if input.BirthDate != nil {
		if *input.BirthDate == "" {
			profile.BirthDate = nil
		} else {
			bd, err := time.Parse("2006-01-02", *input.BirthDate)
			if err != nil {
				httpx.JSONError(w, http.StatusBadRequest, "invalid_birth_date", nil)
				return
			}
			profile.BirthDate = &bd
		}
	}
	if input.Gender != nil {
		profile.Gender = *input.Gender
	}
	if input.HeightCm != nil {
		if *input.HeightCm <= 0 {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_height", nil)
			return
		}
		profile.HeightCm = input.HeightCm
	}
	if input.WeightKg != nil {
		if *input.WeightKg <= 0 {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_weight", nil)
			return
		}
		profile.WeightKg = input.WeightKg
	}
	if input.Conditions != nil {
		profile.Conditions = *input.Conditions
	}
	if input.Medications != nil {
		profile.Medications = *input.Medications
	}

	if err := h.DB.Save(&profile).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "store_error", nil)
		return
	}
	httpx.OK(w, map[string]any{"profile": profileView(profile)})
}

func profileView(p models.Profile) map[string]any {
	v := map[string]any{
		"chart_number": p.ChartNumber,
		"nickname":     p.Nickname,
		"gender":       p.Gender,
		"conditions":   p.Conditions,
		"medications":  p.Medications,
	}
	if p.BirthDate != nil {
		v["birth_date"] = p.BirthDate.Format("2006-01-02")
	}
	if p.HeightCm != nil {
		v["height_cm"] = *p.HeightCm
	}
	if p.WeightKg != nil {
		v["weight_kg"] = *p.WeightKg
	}
	return v
}
