package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/models"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/score"
)

const (
	contextWindowDays = 7

	// caps applied before any text reaches a downstream prompt
	mealDescriptionMaxRunes = 200
	dietSummaryMaxRunes     = 1500

	highIntensityHeartRate     = 160
	moderateIntensityHeartRate = 120
)

// Exercise intensity buckets.
const (
	IntensityHigh     = "고강도"
	IntensityModerate = "중강도"
	IntensityLow      = "저강도"
)

type ExerciseEntry struct {
	Type            string `json:"type"`
	DurationMinutes *int   `json:"duration_minutes,omitempty"`
	HeartRate       *int   `json:"heart_rate,omitempty"`
	Intensity       string `json:"intensity"`
}

// DayContext is one calendar day of the rollup.
type DayContext struct {
	Date            string          `json:"date"`
	SleepHours      *float64        `json:"sleep_hours,omitempty"`
	Exercises       []ExerciseEntry `json:"exercises,omitempty"`
	Meals           []string        `json:"meals,omitempty"`
	MealPhotoCount  int             `json:"meal_photo_count"`
	MedicationCount int             `json:"medication_count"`
}

// Trend values for today's score versus a week earlier.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

type HealthContext struct {
	Days                 []DayContext `json:"days"`
	SleepAvgHours        *float64     `json:"sleep_avg_hours,omitempty"`
	ExerciseSessionCount int          `json:"exercise_session_count"`
	ExerciseTotalMinutes int          `json:"exercise_total_minutes"`
	AdherenceDays        int          `json:"adherence_days"`
	ExpectedDailyMeds    int          `json:"expected_daily_meds"`
	ScoreTrend           string       `json:"score_trend,omitempty"`
}

// HealthContextService builds the 7-trailing-day rollup injected into AI
// prompts. It reads raw logs plus score snapshots and schedules; every text
// field is length-capped before leaving this package.
type HealthContextService struct {
	DB       *gorm.DB
	Location *time.Location
}

func NewHealthContextService(db *gorm.DB, loc *time.Location) *HealthContextService {
	if loc == nil {
		loc = time.UTC
	}
	return &HealthContextService{DB: db, Location: loc}
}

// Build assembles the rollup for the window ending at `today` (inclusive).
func (s *HealthContextService) Build(userID uint, today time.Time) (*HealthContext, error) {
	todayLocal := today.In(s.Location)
	dayStart := time.Date(todayLocal.Year(), todayLocal.Month(), todayLocal.Day(), 0, 0, 0, 0, s.Location)
	windowStart := dayStart.AddDate(0, 0, -(contextWindowDays - 1))
	windowEnd := dayStart.AddDate(0, 0, 1)

	var logs []models.HealthLog
	if err := s.DB.Where("user_id = ? AND logged_at >= ? AND logged_at < ?", userID, windowStart, windowEnd).
		Order("logged_at asc").
		Find(&logs).Error; err != nil {
		return nil, err
	}

	byDate := map[string]*DayContext{}
	days := make([]DayContext, 0, contextWindowDays)
	for i := 0; i < contextWindowDays; i++ {
		d := windowStart.AddDate(0, 0, i).Format("2006-01-02")
		days = append(days, DayContext{Date: d})
		byDate[d] = &days[i]
	}

	sleepSums := map[string]float64{}
	sleepCounts := map[string]int{}
	for _, l := range logs {
		d := score.DateIn(l.LoggedAt, s.Location)
		day, ok := byDate[d]
		if !ok {
			continue
		}
		switch l.Category {
		case models.CategorySleep:
			if l.SleepDurationHours != nil {
				sleepSums[d] += *l.SleepDurationHours
				sleepCounts[d]++
			}
		case models.CategoryExercise:
			day.Exercises = append(day.Exercises, ExerciseEntry{
				Type:            l.ExerciseType,
				DurationMinutes: l.DurationMinutes,
				HeartRate:       l.HeartRate,
				Intensity:       classifyIntensity(l.HeartRate, l.DurationMinutes),
			})
		case models.CategoryMeal:
			if desc := strings.TrimSpace(l.MealDescription); desc != "" {
				day.Meals = append(day.Meals, clipText(desc, mealDescriptionMaxRunes))
			}
			if l.ImageURL != "" {
				day.MealPhotoCount++
			}
		case models.CategoryMedication:
			day.MedicationCount++
		}
	}
	// multiple sleep logs on one day average out
	for d, day := range byDate {
		if n := sleepCounts[d]; n > 0 {
			avg := sleepSums[d] / float64(n)
			day.SleepHours = &avg
		}
	}

	ctx := &HealthContext{Days: days}
	var sleepTotal float64
	var sleepDays int
	for _, day := range days {
		if day.SleepHours != nil {
			sleepTotal += *day.SleepHours
			sleepDays++
		}
		ctx.ExerciseSessionCount += len(day.Exercises)
		for _, e := range day.Exercises {
			if e.DurationMinutes != nil {
				ctx.ExerciseTotalMinutes += *e.DurationMinutes
			}
		}
		if day.MedicationCount > 0 {
			ctx.AdherenceDays++
		}
	}
	if sleepDays > 0 {
		avg := round2(sleepTotal / float64(sleepDays))
		ctx.SleepAvgHours = &avg
	}

	ctx.ExpectedDailyMeds = s.expectedDailyMeds(userID)
	ctx.ScoreTrend = s.scoreTrend(userID, dayStart)
	return ctx, nil
}

// expectedDailyMeds counts active medication schedules; errors degrade to 0.
func (s *HealthContextService) expectedDailyMeds(userID uint) int {
	var n int64
	err := s.DB.Model(&models.Schedule{}).
		Where("user_id = ? AND category = ? AND is_active = ?", userID, models.CategoryMedication, true).
		Count(&n).Error
	if err != nil {
		log.Printf("[HealthContext] schedule count failed: %v", err)
		return 0
	}
	return int(n)
}

// scoreTrend compares today's snapshot score to the one from a week earlier.
// Either endpoint missing yields an empty trend.
func (s *HealthContextService) scoreTrend(userID uint, dayStart time.Time) string {
	var profile models.Profile
	if err := s.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[HealthContext] profile lookup failed: %v", err)
		}
		return ""
	}
	today := dayStart.Format("2006-01-02")
	weekAgo := dayStart.AddDate(0, 0, -contextWindowDays).Format("2006-01-02")

	scoreOn := func(date string) (float64, bool) {
		var row models.HealthScore
		err := s.DB.Where("chart_number = ? AND score_date = ?", profile.ChartNumber, date).First(&row).Error
		if err != nil {
			return 0, false
		}
		return row.Score, true
	}
	now, ok1 := scoreOn(today)
	then, ok2 := scoreOn(weekAgo)
	if !ok1 || !ok2 {
		return ""
	}
	switch {
	case now > then:
		return TrendUp
	case now < then:
		return TrendDown
	default:
		return TrendStable
	}
}

func classifyIntensity(heartRate, durationMinutes *int) string {
	if heartRate != nil {
		switch {
		case *heartRate >= highIntensityHeartRate:
			return IntensityHigh
		case *heartRate >= moderateIntensityHeartRate:
			return IntensityModerate
		}
		return IntensityLow
	}
	if durationMinutes != nil && *durationMinutes >= 60 {
		return IntensityModerate
	}
	return IntensityLow
}

// FormatForPrompt renders the rollup as Korean prompt text. The diet section is
// capped so raw food descriptions can never blow up the prompt.
func (c *HealthContext) FormatForPrompt() string {
	var b strings.Builder
	b.WriteString("【최근 7일 건강 기록 요약】\n")

	if c.SleepAvgHours != nil {
		fmt.Fprintf(&b, "수면: 평균 %.1f시간\n", *c.SleepAvgHours)
	} else {
		b.WriteString("수면: 기록 없음\n")
	}

	fmt.Fprintf(&b, "운동: %d회", c.ExerciseSessionCount)
	if c.ExerciseTotalMinutes > 0 {
		fmt.Fprintf(&b, ", 총 %d분", c.ExerciseTotalMinutes)
	}
	if high := c.countIntensity(IntensityHigh); high > 0 {
		fmt.Fprintf(&b, " (고강도 %d회)", high)
	}
	b.WriteString("\n")

	var diet strings.Builder
	for _, day := range c.Days {
		if len(day.Meals) == 0 {
			continue
		}
		fmt.Fprintf(&diet, "- %s: %s", day.Date, strings.Join(day.Meals, " / "))
		if day.MealPhotoCount > 0 {
			fmt.Fprintf(&diet, " (사진 %d장)", day.MealPhotoCount)
		}
		diet.WriteString("\n")
	}
	if diet.Len() > 0 {
		b.WriteString("식단:\n")
		b.WriteString(clipText(strings.TrimRight(diet.String(), "\n"), dietSummaryMaxRunes))
		b.WriteString("\n")
	} else {
		b.WriteString("식단: 기록 없음\n")
	}

	fmt.Fprintf(&b, "복약: 최근 7일 중 %d일 기록", c.AdherenceDays)
	if c.ExpectedDailyMeds > 0 {
		fmt.Fprintf(&b, " (하루 예정 %d건)", c.ExpectedDailyMeds)
	}
	b.WriteString("\n")

	switch c.ScoreTrend {
	case TrendUp:
		b.WriteString("건강 점수 추이: 일주일 전보다 상승\n")
	case TrendDown:
		b.WriteString("건강 점수 추이: 일주일 전보다 하락\n")
	case TrendStable:
		b.WriteString("건강 점수 추이: 일주일 전과 비슷\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (c *HealthContext) countIntensity(level string) int {
	n := 0
	for _, day := range c.Days {
		for _, e := range day.Exercises {
			if e.Intensity == level {
				n++
			}
		}
	}
	return n
}
