package models

import "time"

// CycleLog is one menstrual cycle entry. EndDate nil means the cycle is ongoing;
// at most one ongoing row may exist per user (enforced in the service layer
// inside a transaction, plus the partial unique index below on postgres).
type CycleLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"-"`
	StartDate   string    `gorm:"not null" json:"start_date"` // YYYY-MM-DD
	EndDate     *string   `json:"end_date"`
	CycleLength *int      `json:"cycle_length"` // days from previous cycle start, derived
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"-"`
}
