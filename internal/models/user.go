package models

import "time"

// User & profile models
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Email     string `gorm:"unique;not null;index"`
	Password  string `gorm:"not null"` // bcrypt hash
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile carries the display identity and free-text health background for a user.
// ChartNumber is the pseudonymous identifier used everywhere a user is shown to
// other users; the raw user id never leaves the server.
type Profile struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      uint   `gorm:"not null;uniqueIndex"`
	User        User   `gorm:"foreignKey:UserID"`
	ChartNumber string `gorm:"not null;uniqueIndex"`
	Nickname    string
	BirthDate   *time.Time
	Gender      string
	HeightCm    *float64
	WeightKg    *float64
	Conditions  string // free text
	Medications string // free text
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
