package services

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/models"
)

func seedRankedUser(t *testing.T, gdb *gorm.DB, n int, nickname string) (models.User, models.Profile) {
	t.Helper()
	u := models.User{Email: fmt.Sprintf("rank%d@example.com", n), Password: "x"}
	if err := gdb.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	p := models.Profile{UserID: u.ID, ChartNumber: fmt.Sprintf("CN%04d", n), Nickname: nickname}
	if err := gdb.Create(&p).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return u, p
}

func TestGetRankingPrefersSnapshotRows(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewRankingService(gdb, time.UTC)

	_, p1 := seedRankedUser(t, gdb, 1, "철수")
	_, p2 := seedRankedUser(t, gdb, 2, "")
	_, p3 := seedRankedUser(t, gdb, 3, "영희")

	rows := []models.HealthScore{
		{ChartNumber: p1.ChartNumber, ScoreDate: "2026-03-01", Score: 70},
		{ChartNumber: p2.ChartNumber, ScoreDate: "2026-03-01", Score: 105},
		{ChartNumber: p3.ChartNumber, ScoreDate: "2026-03-01", Score: 40},
		// a different date must not leak in
		{ChartNumber: p1.ChartNumber, ScoreDate: "2026-03-02", Score: 999},
	}
	if err := gdb.Create(&rows).Error; err != nil {
		t.Fatalf("seed scores: %v", err)
	}

	res, err := svc.GetRanking("2026-03-01", p3.ChartNumber)
	if err != nil {
		t.Fatalf("GetRanking: %v", err)
	}
	if res.Source != RankingSourceScores {
		t.Fatalf("source = %q, want %q", res.Source, RankingSourceScores)
	}
	if len(res.Ranking) != 3 {
		t.Fatalf("got %d entries, want 3", len(res.Ranking))
	}
	if res.Ranking[0].Score != 105 || res.Ranking[0].Rank != 1 {
		t.Errorf("top entry = %+v, want score 105 rank 1", res.Ranking[0])
	}
	if res.Ranking[0].Nickname != "회원" {
		t.Errorf("empty nickname should default to 회원, got %q", res.Ranking[0].Nickname)
	}
	if res.Ranking[1].Nickname != "철수" {
		t.Errorf("second entry nickname = %q, want 철수", res.Ranking[1].Nickname)
	}
	if res.Ranking[0].ChartNumberMasked != "CN0***" {
		t.Errorf("masked chart = %q, want CN0***", res.Ranking[0].ChartNumberMasked)
	}
	if res.Me == nil {
		t.Fatal("expected me entry for caller with a snapshot row")
	}
	if res.Me.Rank != 3 || res.Me.Score != 40 {
		t.Errorf("me = %+v, want rank 3 score 40", res.Me)
	}
}

func TestGetRankingTiedScoresShareMyRank(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewRankingService(gdb, time.UTC)

	var charts []string
	for i := 1; i <= 3; i++ {
		_, p := seedRankedUser(t, gdb, i, "")
		charts = append(charts, p.ChartNumber)
	}
	rows := []models.HealthScore{
		{ChartNumber: charts[0], ScoreDate: "2026-03-05", Score: 100},
		{ChartNumber: charts[1], ScoreDate: "2026-03-05", Score: 100},
		{ChartNumber: charts[2], ScoreDate: "2026-03-05", Score: 70},
	}
	if err := gdb.Create(&rows).Error; err != nil {
		t.Fatalf("seed scores: %v", err)
	}

	// both tied users report my-rank 1
	for _, cn := range charts[:2] {
		res, err := svc.GetRanking("2026-03-05", cn)
		if err != nil {
			t.Fatalf("GetRanking(%s): %v", cn, err)
		}
		if res.Me == nil || res.Me.Rank != 1 {
			t.Errorf("caller %s me = %+v, want rank 1", cn, res.Me)
		}
	}
	// third user sits behind both tied rows
	res, err := svc.GetRanking("2026-03-05", charts[2])
	if err != nil {
		t.Fatalf("GetRanking: %v", err)
	}
	if res.Me == nil || res.Me.Rank != 3 {
		t.Errorf("me = %+v, want rank 3", res.Me)
	}
	// the list itself stays positional: ranks 1, 2, 3
	for i, e := range res.Ranking {
		if e.Rank != i+1 {
			t.Errorf("ranking[%d].Rank = %d, want %d", i, e.Rank, i+1)
		}
	}
}

func TestGetRankingSnapshotCallerWithoutRow(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewRankingService(gdb, time.UTC)

	_, p1 := seedRankedUser(t, gdb, 1, "")
	if err := gdb.Create(&models.HealthScore{ChartNumber: p1.ChartNumber, ScoreDate: "2026-03-01", Score: 70}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, err := svc.GetRanking("2026-03-01", "CN9999")
	if err != nil {
		t.Fatalf("GetRanking: %v", err)
	}
	if res.Me != nil {
		t.Errorf("me = %+v, want nil for caller without a score row", res.Me)
	}
}

func TestGetRankingRealtimeFallback(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewRankingService(gdb, time.UTC)

	u1, _ := seedRankedUser(t, gdb, 1, "가")
	u2, p2 := seedRankedUser(t, gdb, 2, "나")

	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	logs := []models.HealthLog{
		// u1: all three categories today
		models.NewMedicationLog(u1.ID, day, models.MedicationInput{Name: "아스피린"}),
		models.NewExerciseLog(u1.ID, day.Add(time.Hour), models.ExerciseInput{Type: "런닝"}),
		models.NewMealLog(u1.ID, day.Add(2*time.Hour), models.MealInput{Description: "샐러드"}),
		// u2: meal only
		models.NewMealLog(u2.ID, day, models.MealInput{Description: "김밥"}),
		// outside the window
		models.NewMealLog(u2.ID, day.AddDate(0, 0, 1), models.MealInput{Description: "내일"}),
	}
	if err := gdb.Create(&logs).Error; err != nil {
		t.Fatalf("seed logs: %v", err)
	}

	res, err := svc.GetRanking("2026-03-10", p2.ChartNumber)
	if err != nil {
		t.Fatalf("GetRanking: %v", err)
	}
	if res.Source != RankingSourceRealtime {
		t.Fatalf("source = %q, want %q", res.Source, RankingSourceRealtime)
	}
	if len(res.Ranking) != 2 {
		t.Fatalf("got %d entries, want 2", len(res.Ranking))
	}
	// u1: full day = (0.4+0.3+0.3)*100 + streak 1*2 + 5 = 107
	if res.Ranking[0].Score != 107 {
		t.Errorf("top score = %v, want 107", res.Ranking[0].Score)
	}
	if res.Ranking[0].ChartNumberMasked != "CN0***" {
		t.Errorf("masked = %q", res.Ranking[0].ChartNumberMasked)
	}
	// u2: meal only = 30 + streak 1*2 = 32
	if res.Ranking[1].Score != 32 {
		t.Errorf("second score = %v, want 32", res.Ranking[1].Score)
	}
	if res.Me == nil || res.Me.Rank != 2 || res.Me.Score != 32 {
		t.Errorf("me = %+v, want rank 2 score 32", res.Me)
	}
}

func TestGetRankingRealtimeUsesStreakWindow(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewRankingService(gdb, time.UTC)

	u1, _ := seedRankedUser(t, gdb, 1, "")

	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	logs := []models.HealthLog{
		models.NewMealLog(u1.ID, day, models.MealInput{Description: "오늘"}),
		models.NewMealLog(u1.ID, day.AddDate(0, 0, -1), models.MealInput{Description: "어제"}),
		models.NewMealLog(u1.ID, day.AddDate(0, 0, -2), models.MealInput{Description: "그제"}),
	}
	if err := gdb.Create(&logs).Error; err != nil {
		t.Fatalf("seed logs: %v", err)
	}

	res, err := svc.GetRanking("2026-03-10", "")
	if err != nil {
		t.Fatalf("GetRanking: %v", err)
	}
	// meal 30 + streak 3*2 = 36
	if len(res.Ranking) != 1 || res.Ranking[0].Score != 36 {
		t.Fatalf("ranking = %+v, want single entry with score 36", res.Ranking)
	}
}

func TestGetRankingEmptyDay(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewRankingService(gdb, time.UTC)

	res, err := svc.GetRanking("2026-03-10", "")
	if err != nil {
		t.Fatalf("GetRanking: %v", err)
	}
	if res.Source != RankingSourceRealtime {
		t.Errorf("source = %q", res.Source)
	}
	if len(res.Ranking) != 0 {
		t.Errorf("expected empty ranking, got %d", len(res.Ranking))
	}
	if res.Me != nil {
		t.Errorf("me should be nil, got %+v", res.Me)
	}
}

func TestGetRankingBadDate(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewRankingService(gdb, time.UTC)
	if _, err := svc.GetRanking("10-03-2026", ""); err == nil {
		t.Fatal("expected error for malformed date")
	}
}
