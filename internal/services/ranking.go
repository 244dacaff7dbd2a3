package services

import (
	"errors"
	"log"
	"math"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/models"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/score"
)

// RankingSourceScores and RankingSourceRealtime name where a ranking came from:
// the persisted health_scores snapshot, or live aggregation over raw logs.
const (
	RankingSourceScores   = "health_scores"
	RankingSourceRealtime = "realtime"
)

const rankingTopN = 10

type RankingEntry struct {
	Rank              int     `json:"rank"`
	ChartNumberMasked string  `json:"chart_number_masked"`
	Nickname          string  `json:"nickname"`
	Score             float64 `json:"score"`
}

type MyRank struct {
	Rank              int     `json:"rank"`
	Score             float64 `json:"score"`
	ChartNumberMasked string  `json:"chart_number_masked"`
}

type RankingResult struct {
	Date    string         `json:"date"`
	Source  string         `json:"source"`
	Ranking []RankingEntry `json:"ranking"`
	Me      *MyRank        `json:"me"`
}

// RankingService ranks users by daily health score. It prefers precomputed
// health_scores rows and falls back to live aggregation of the day's logs.
type RankingService struct {
	DB       *gorm.DB
	Location *time.Location
}

func NewRankingService(db *gorm.DB, loc *time.Location) *RankingService {
	if loc == nil {
		loc = time.UTC
	}
	return &RankingService{DB: db, Location: loc}
}

// GetRanking builds the top-10 board for a date plus the caller's own position.
//
// Tie semantics differ on purpose between the two views: the top-10 list uses
// positional rank (index+1 after a stable sort), while Me.Rank uses
// count-of-strictly-greater-scores + 1, so tied users share the same "my rank"
// number. Both behaviors are covered by tests.
func (s *RankingService) GetRanking(dateStr string, callerChartNumber string) (*RankingResult, error) {
	var existing []models.HealthScore
	if err := s.DB.Where("score_date = ?", dateStr).
		Order("score desc").
		Limit(rankingTopN).
		Find(&existing).Error; err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return s.rankFromScores(dateStr, callerChartNumber, existing)
	}
	return s.rankRealtime(dateStr, callerChartNumber)
}

func (s *RankingService) rankFromScores(dateStr, callerChartNumber string, rows []models.HealthScore) (*RankingResult, error) {
	chartNumbers := make([]string, 0, len(rows))
	for _, r := range rows {
		chartNumbers = append(chartNumbers, r.ChartNumber)
	}
	nicknames := s.nicknamesByChart(chartNumbers)

	ranking := make([]RankingEntry, 0, len(rows))
	for i, r := range rows {
		ranking = append(ranking, RankingEntry{
			Rank:              i + 1,
			ChartNumberMasked: score.MaskChartNumber(r.ChartNumber),
			Nickname:          nicknames[r.ChartNumber],
			Score:             r.Score,
		})
	}

	me := s.myRankFromScores(dateStr, callerChartNumber)
	return &RankingResult{Date: dateStr, Source: RankingSourceScores, Ranking: ranking, Me: me}, nil
}

// myRankFromScores computes the caller's rank as (count of strictly greater
// scores) + 1. Missing caller rows degrade to nil, never an error.
func (s *RankingService) myRankFromScores(dateStr, callerChartNumber string) *MyRank {
	if callerChartNumber == "" {
		return nil
	}
	var mine models.HealthScore
	err := s.DB.Where("chart_number = ? AND score_date = ?", callerChartNumber, dateStr).First(&mine).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[Ranking] my score lookup failed: %v", err)
		}
		return nil
	}
	var greater int64
	if err := s.DB.Model(&models.HealthScore{}).
		Where("score_date = ? AND score > ?", dateStr, mine.Score).
		Count(&greater).Error; err != nil {
		log.Printf("[Ranking] rank count failed: %v", err)
		return nil
	}
	return &MyRank{
		Rank:              int(greater) + 1,
		Score:             mine.Score,
		ChartNumberMasked: score.MaskChartNumber(callerChartNumber),
	}
}

type dayPresence struct {
	meal, exercise, medication bool
}

func (s *RankingService) rankRealtime(dateStr, callerChartNumber string) (*RankingResult, error) {
	day, err := time.ParseInLocation("2006-01-02", dateStr, s.Location)
	if err != nil {
		return nil, err
	}
	dayStart := day
	dayEnd := day.AddDate(0, 0, 1)

	var dayLogs []models.HealthLog
	if err := s.DB.Select("user_id", "category", "logged_at").
		Where("logged_at >= ? AND logged_at < ?", dayStart, dayEnd).
		Find(&dayLogs).Error; err != nil {
		return nil, err
	}

	presence := map[uint]*dayPresence{}
	for _, l := range dayLogs {
		p := presence[l.UserID]
		if p == nil {
			p = &dayPresence{}
			presence[l.UserID] = p
		}
		switch l.Category {
		case models.CategoryMeal:
			p.meal = true
		case models.CategoryExercise:
			p.exercise = true
		case models.CategoryMedication:
			p.medication = true
		}
	}
	if len(presence) == 0 {
		// no live logs: the caller may still have a snapshot score
		me := s.myRankFromScores(dateStr, callerChartNumber)
		return &RankingResult{Date: dateStr, Source: RankingSourceRealtime, Ranking: []RankingEntry{}, Me: me}, nil
	}

	userIDs := make([]uint, 0, len(presence))
	for uid := range presence {
		userIDs = append(userIDs, uid)
	}

	var profiles []models.Profile
	if err := s.DB.Where("user_id IN ?", userIDs).Find(&profiles).Error; err != nil {
		return nil, err
	}
	chartByUser := map[uint]string{}
	nickByChart := map[string]string{}
	for _, p := range profiles {
		chartByUser[p.UserID] = p.ChartNumber
		nickByChart[p.ChartNumber] = nicknameOrDefault(p.Nickname)
	}

	// streak window: the ranked day plus 7 trailing days of logs
	streakStart := dayStart.AddDate(0, 0, -7)
	var streakLogs []models.HealthLog
	if err := s.DB.Select("user_id", "logged_at").
		Where("user_id IN ? AND logged_at >= ? AND logged_at < ?", userIDs, streakStart, dayEnd).
		Find(&streakLogs).Error; err != nil {
		return nil, err
	}
	dayLogRows := make([]score.DayLog, 0, len(streakLogs))
	for _, l := range streakLogs {
		dayLogRows = append(dayLogRows, score.DayLog{UserID: l.UserID, Date: score.DateIn(l.LoggedAt, s.Location)})
	}

	type scored struct {
		chart    string
		nickname string
		score    float64
	}
	scores := make([]scored, 0, len(userIDs))
	for uid, p := range presence {
		chart, ok := chartByUser[uid]
		if !ok {
			continue
		}
		streak := score.ComputeStreakDays(dayLogRows, uid, dateStr)
		val := score.ComputeDailyScore(p.medication, p.exercise, p.meal, streak)
		scores = append(scores, scored{chart: chart, nickname: nickByChart[chart], score: val})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	ranking := make([]RankingEntry, 0, rankingTopN)
	for i, sc := range scores {
		if i >= rankingTopN {
			break
		}
		ranking = append(ranking, RankingEntry{
			Rank:              i + 1,
			ChartNumberMasked: score.MaskChartNumber(sc.chart),
			Nickname:          sc.nickname,
			Score:             round2(sc.score),
		})
	}

	var me *MyRank
	if callerChartNumber != "" {
		for i, sc := range scores {
			if sc.chart == callerChartNumber {
				me = &MyRank{
					Rank:              i + 1,
					Score:             round2(sc.score),
					ChartNumberMasked: score.MaskChartNumber(sc.chart),
				}
				break
			}
		}
	}
	return &RankingResult{Date: dateStr, Source: RankingSourceRealtime, Ranking: ranking, Me: me}, nil
}

func (s *RankingService) nicknamesByChart(chartNumbers []string) map[string]string {
	out := map[string]string{}
	var profiles []models.Profile
	if err := s.DB.Where("chart_number IN ?", chartNumbers).Find(&profiles).Error; err != nil {
		log.Printf("[Ranking] profile lookup failed: %v", err)
	}
	for _, p := range profiles {
		out[p.ChartNumber] = nicknameOrDefault(p.Nickname)
	}
	for _, cn := range chartNumbers {
		if _, ok := out[cn]; !ok {
			out[cn] = nicknameOrDefault("")
		}
	}
	return out
}

func nicknameOrDefault(n string) string {
	if n == "" {
		return "회원"
	}
	return n
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
