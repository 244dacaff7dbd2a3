package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/auth"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/httpx"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/models"
)

// futureSlack tolerates client clock skew when rejecting future timestamps.
const futureSlack = 5 * time.Minute

type HealthLogHandler struct {
	DB       *gorm.DB
	Location *time.Location
}

func NewHealthLogHandler(db *gorm.DB, loc *time.Location) *HealthLogHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &HealthLogHandler{DB: db, Location: loc}
}

func (h *HealthLogHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	case http.MethodPut:
		h.update(w, r)
	case http.MethodDelete:
		h.del(w, r)
	default:
		w.Header().Set("Allow", "GET,POST,PUT,DELETE")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	}
}

// logPayload is the request shape shared by create and update. Category picks
// which field group is honored; everything else is ignored by construction.
type logPayload struct {
	Category string `json:"category"`
	LoggedAt string `json:"logged_at"`
	Note     string `json:"note"`

	MealDescription string `json:"meal_description"`
	ImageURL        string `json:"image_url"`

	ExerciseType    string   `json:"exercise_type"`
	DurationMinutes *int     `json:"duration_minutes"`
	HeartRate       *int     `json:"heart_rate"`
	WeightKg        *float64 `json:"weight_kg"`
	Reps            *int     `json:"reps"`
	Sets            *int     `json:"sets"`

	SleepDurationHours *float64 `json:"sleep_duration_hours"`

	MedicationName string `json:"medication_name"`
}

func (h *HealthLogHandler) parseLoggedAt(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	// date-only input lands at local midnight
	return time.ParseInLocation("2006-01-02", raw, h.Location)
}

// buildLog validates the payload against its category and constructs the row
// through the typed per-category inputs.
func (h *HealthLogHandler) buildLog(userID uint, p logPayload) (models.HealthLog, string) {
	if !models.ValidCategory(p.Category) {
		return models.HealthLog{}, "invalid_category"
	}
	loggedAt, err := h.parseLoggedAt(p.LoggedAt)
	if err != nil {
		return models.HealthLog{}, "invalid_logged_at"
	}
	if loggedAt.After(time.Now().Add(futureSlack)) {
		return models.HealthLog{}, "logged_at_in_future"
	}

	switch p.Category {
	case models.CategoryMeal:
		if strings.TrimSpace(p.MealDescription) == "" && p.ImageURL == "" {
			return models.HealthLog{}, "meal_description_required"
		}
		return models.NewMealLog(userID, loggedAt, models.MealInput{
			Description: strings.TrimSpace(p.MealDescription),
			ImageURL:    p.ImageURL,
			Note:        p.Note,
		}), ""
	case models.CategoryExercise:
		if strings.TrimSpace(p.ExerciseType) == "" {
			return models.HealthLog{}, "exercise_type_required"
		}
		if p.DurationMinutes != nil && *p.DurationMinutes <= 0 {
			return models.HealthLog{}, "invalid_duration"
		}
		if p.HeartRate != nil && (*p.HeartRate <= 0 || *p.HeartRate > 300) {
			return models.HealthLog{}, "invalid_heart_rate"
		}
		return models.NewExerciseLog(userID, loggedAt, models.ExerciseInput{
			Type:            strings.TrimSpace(p.ExerciseType),
			DurationMinutes: p.DurationMinutes,
			HeartRate:       p.HeartRate,
			WeightKg:        p.WeightKg,
			Reps:            p.Reps,
			Sets:            p.Sets,
			Note:            p.Note,
		}), ""
	case models.CategorySleep:
		if p.SleepDurationHours == nil || *p.SleepDurationHours <= 0 || *p.SleepDurationHours > 24 {
			return models.HealthLog{}, "invalid_sleep_duration"
		}
		return models.NewSleepLog(userID, loggedAt, models.SleepInput{
			DurationHours: *p.SleepDurationHours,
			Note:          p.Note,
		}), ""
	case models.CategoryMedication:
		if strings.TrimSpace(p.MedicationName) == "" {
			return models.HealthLog{}, "medication_name_required"
		}
		return models.NewMedicationLog(userID, loggedAt, models.MedicationInput{
			Name: strings.TrimSpace(p.MedicationName),
			Note: p.Note,
		}), ""
	}
	return models.HealthLog{}, "invalid_category"
}

func (h *HealthLogHandler) create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var p logPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	row, code := h.buildLog(uid, p)
	if code != "" {
		httpx.JSONError(w, http.StatusBadRequest, code, nil)
		return
	}
	if err := h.DB.Create(&row).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "store_error", nil)
		return
	}
	httpx.OK(w, map[string]any{"log": logView(row)})
}

func (h *HealthLogHandler) list(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	q := h.DB.Where("user_id = ?", uid)

	if sd := r.URL.Query().Get("start_date"); sd != "" {
		start, err := time.ParseInLocation("2006-01-02", sd, h.Location)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_start_date", nil)
			return
		}
		q = q.Where("logged_at >= ?", start)
	}
	if ed := r.URL.Query().Get("end_date"); ed != "" {
		end, err := time.ParseInLocation("2006-01-02", ed, h.Location)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_end_date", nil)
			return
		}
		q = q.Where("logged_at < ?", end.AddDate(0, 0, 1))
	}
	if c := r.URL.Query().Get("category"); c != "" {
		if !models.ValidCategory(c) {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_category", nil)
			return
		}
		q = q.Where("category = ?", c)
	}

	var rows []models.HealthLog
	if err := q.Order("logged_at desc").Limit(500).Find(&rows).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "store_error", nil)
		return
	}
	views := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		views = append(views, logView(row))
	}
	httpx.OK(w, map[string]any{"logs": views})
}

func (h *HealthLogHandler) update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var p struct {
		ID uint `json:"id"`
		logPayload
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if p.ID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "id_required", nil)
		return
	}

	var existing models.HealthLog
	if err := h.DB.Where("id = ? AND user_id = ?", p.ID, uid).First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "log_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "store_error", nil)
		return
	}
	// category is immutable after creation
	if p.Category != "" && p.Category != existing.Category {
		httpx.JSONError(w, http.StatusBadRequest, "category_immutable", nil)
		return
	}
	p.Category = existing.Category
	if p.LoggedAt == "" {
		p.LoggedAt = existing.LoggedAt.Format(time.RFC3339)
	}

	row, code := h.buildLog(uid, p.logPayload)
	if code != "" {
		httpx.JSONError(w, http.StatusBadRequest, code, nil)
		return
	}
	row.ID = existing.ID
	row.CreatedAt = existing.CreatedAt
	if err := h.DB.Save(&row).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "store_error", nil)
		return
	}
	httpx.OK(w, map[string]any{"log": logView(row)})
}

func (h *HealthLogHandler) del(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, err := strconv.ParseUint(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	res := h.DB.Where("id = ? AND user_id = ?", id, uid).Delete(&models.HealthLog{})
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "store_error", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "log_not_found", nil)
		return
	}
	httpx.OK(w, nil)
}

func logView(l models.HealthLog) map[string]any {
	v := map[string]any{
		"id":        l.ID,
		"category":  l.Category,
		"logged_at": l.LoggedAt.Format(time.RFC3339),
	}
	if l.Note != "" {
		v["note"] = l.Note
	}
	switch l.Category {
	case models.CategoryMeal:
		v["meal_description"] = l.MealDescription
		if l.ImageURL != "" {
			v["image_url"] = l.ImageURL
		}
	case models.CategoryExercise:
		v["exercise_type"] = l.ExerciseType
		if l.DurationMinutes != nil {
			v["duration_minutes"] = *l.DurationMinutes
		}
		if l.HeartRate != nil {
			v["heart_rate"] = *l.HeartRate
		}
		if l.WeightKg != nil {
			v["weight_kg"] = *l.WeightKg
		}
		if l.Reps != nil {
			v["reps"] = *l.Reps
		}
		if l.Sets != nil {
			v["sets"] = *l.Sets
		}
	case models.CategorySleep:
		if l.SleepDurationHours != nil {
			v["sleep_duration_hours"] = *l.SleepDurationHours
		}
	case models.CategoryMedication:
		v["medication_name"] = l.MedicationName
	}
	return v
}
