package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/auth"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/httpx"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/services"
)

type GroupCalendarHandler struct {
	Calendar *services.GroupCalendarService
}

func NewGroupCalendarHandler(svc *services.GroupCalendarService) *GroupCalendarHandler {
	return &GroupCalendarHandler{Calendar: svc}
}

func (h *GroupCalendarHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())

	groupID, err := strconv.ParseUint(r.URL.Query().Get("group_id"), 10, 64)
	if err != nil || groupID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_group_id", nil)
		return
	}
	start := r.URL.Query().Get("start_date")
	end := r.URL.Query().Get("end_date")
	if start == "" || end == "" {
		httpx.JSONError(w, http.StatusBadRequest, "start_date_and_end_date_required", nil)
		return
	}

	cal, err := h.Calendar.GetCalendar(uint(groupID), uid, start, end)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotGroupMember):
			httpx.JSONError(w, http.StatusForbidden, "not_a_group_member", nil)
		case errors.Is(err, services.ErrInvalidRange):
			httpx.JSONError(w, http.StatusBadRequest, "invalid_range", nil)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "store_error", nil)
		}
		return
	}
	httpx.OK(w, map[string]any{
		"days":        cal.Days,
		"summary":     cal.Summary,
		"ai_briefing": cal.AIBriefing,
	})
}
