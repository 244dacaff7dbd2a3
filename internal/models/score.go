package models

import "time"

// HealthScore is a persisted daily score snapshot keyed by chart number. It acts
// as a cache in front of the live score computation; the ranking endpoint prefers
// it and falls back to aggregating raw logs when a date has no rows.
type HealthScore struct {
	ID          uint   `gorm:"primaryKey"`
	ChartNumber string `gorm:"not null;index:idx_health_scores_date_chart,unique"`
	ScoreDate   string `gorm:"not null;index:idx_health_scores_date_chart,unique;index"` // YYYY-MM-DD
	Score       float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
