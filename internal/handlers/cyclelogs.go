package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/auth"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/httpx"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/services"
)

type CycleLogHandler struct {
	Cycles *services.CycleService
}

func NewCycleLogHandler(svc *services.CycleService) *CycleLogHandler {
	return &CycleLogHandler{Cycles: svc}
}

func (h *CycleLogHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.act(w, r)
	default:
		w.Header().Set("Allow", "GET,POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	}
}

func (h *CycleLogHandler) list(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	rows, err := h.Cycles.List(uid, 0)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "store_error", nil)
		return
	}
	pred, err := h.Cycles.Predict(uid, time.Now())
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "store_error", nil)
		return
	}
	payload := map[string]any{"cycles": rows}
	if pred != nil {
		payload["prediction"] = pred
	}
	httpx.OK(w, payload)
}

func (h *CycleLogHandler) act(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var input struct {
		Action    string  `json:"action"`
		Date      string  `json:"date"`
		ID        uint    `json:"id"`
		StartDate *string `json:"start_date"`
		EndDate   *string `json:"end_date"`
		Note      *string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if input.Date == "" {
		input.Date = time.Now().In(h.Cycles.Location).Format("2006-01-02")
	}
	note := ""
	if input.Note != nil {
		note = *input.Note
	}

	switch input.Action {
	case "start":
		row, err := h.Cycles.Start(uid, input.Date, note)
		if err != nil {
			if errors.Is(err, services.ErrOngoingCycleExists) {
				httpx.JSONError(w, http.StatusBadRequest, "ongoing_cycle_exists", nil)
				return
			}
			httpx.JSONError(w, http.StatusBadRequest, "invalid_start", nil)
			return
		}
		httpx.OK(w, map[string]any{"cycle": row})
	case "end":
		row, err := h.Cycles.End(uid, input.Date)
		if err != nil {
			if errors.Is(err, services.ErrNoOngoingCycle) {
				httpx.JSONError(w, http.StatusNotFound, "no_ongoing_cycle", nil)
				return
			}
			httpx.JSONError(w, http.StatusBadRequest, "invalid_end", nil)
			return
		}
		httpx.OK(w, map[string]any{"cycle": row})
	case "update":
		if input.ID == 0 {
			httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
			return
		}
		row, err := h.Cycles.Update(uid, input.ID, input.StartDate, input.EndDate, input.Note)
		if err != nil {
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			case errors.Is(err, services.ErrOngoingCycleExists):
				httpx.JSONError(w, http.StatusBadRequest, "ongoing_cycle_exists", nil)
			default:
				httpx.JSONError(w, http.StatusBadRequest, "invalid_update", nil)
			}
			return
		}
		httpx.OK(w, map[string]any{"cycle": row})
	default:
		httpx.JSONError(w, http.StatusBadRequest, "unknown_action", nil)
	}
}
