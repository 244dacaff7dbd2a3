package handlers

import (
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/auth"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/httpx"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/models"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/services"
)

type RankingHandler struct {
	DB      *gorm.DB
	Ranking *services.RankingService
}

func NewRankingHandler(db *gorm.DB, svc *services.RankingService) *RankingHandler {
	return &RankingHandler{DB: db, Ranking: svc}
}

func (h *RankingHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())

	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().In(h.Ranking.Location).Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		// invalid dates default to today rather than erroring
		date = time.Now().In(h.Ranking.Location).Format("2006-01-02")
	}

	chart := h.callerChartNumber(uid)
	res, err := h.Ranking.GetRanking(date, chart)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "store_error", nil)
		return
	}
	httpx.OK(w, map[string]any{
		"date":    res.Date,
		"source":  res.Source,
		"ranking": res.Ranking,
		"me":      res.Me,
	})
}

func (h *RankingHandler) callerChartNumber(uid uint) string {
	var profile models.Profile
	if err := h.DB.Select("chart_number").Where("user_id = ?", uid).First(&profile).Error; err != nil {
		return ""
	}
	return profile.ChartNumber
}
