// Package score computes the daily gamified health score. Pure functions, no
// I/O: the ranking service feeds it presence flags and streaks aggregated from
// raw logs.
//
// Formula: S = (sum of category weights present) * 100 + streak*2 + fullDayBonus.
// Weights: medication 0.4, exercise 0.3, meal 0.3. Presence counts, not volume:
// a second meal log the same day changes nothing. Logging all three of
// medication, exercise and meal the same day adds a flat 5.
package score

import "time"

const (
	WeightMedication  = 0.4
	WeightExercise    = 0.3
	WeightMeal        = 0.3
	StreakBonusPerDay = 2
	FullDayBonus      = 5
	BaseScale         = 100
)

// ComputeDailyScore returns the score for one user-day given category presence
// and the trailing streak length.
func ComputeDailyScore(hasMedication, hasExercise, hasMeal bool, streakDays int) float64 {
	dataPart := 0.0
	if hasMedication {
		dataPart += WeightMedication
	}
	if hasExercise {
		dataPart += WeightExercise
	}
	if hasMeal {
		dataPart += WeightMeal
	}
	streakBonus := float64(streakDays * StreakBonusPerDay)
	fullDayBonus := 0.0
	if hasMedication && hasExercise && hasMeal {
		fullDayBonus = FullDayBonus
	}
	return dataPart*BaseScale + streakBonus + fullDayBonus
}

// DayLog is the minimal log shape streak computation needs.
type DayLog struct {
	UserID uint
	Date   string // YYYY-MM-DD in the canonical app timezone
}

// ComputeStreakDays counts consecutive calendar days with at least one log of
// any category, walking backward from upToDate inclusive. The first empty day
// stops the walk; no log on upToDate itself means streak 0.
//
// Dates must already be truncated in one canonical timezone by the caller, or
// streaks will misalign at day boundaries.
func ComputeStreakDays(logs []DayLog, userID uint, upToDate string) int {
	days := make(map[string]bool)
	for _, l := range logs {
		if l.UserID == userID && l.Date != "" {
			days[l.Date] = true
		}
	}
	cursor, err := time.Parse("2006-01-02", upToDate)
	if err != nil {
		return 0
	}
	streak := 0
	for days[cursor.Format("2006-01-02")] {
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}

// MaskChartNumber hides all but the first 3 characters of a chart number for
// shared views: "D76850" -> "D76***". Anything shorter than 4 characters is
// fully masked.
func MaskChartNumber(chartNumber string) string {
	if len(chartNumber) < 4 {
		return "***"
	}
	return chartNumber[:3] + "***"
}

// DateIn truncates an instant to its calendar date in loc.
func DateIn(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02")
}
