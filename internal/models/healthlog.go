package models

import "time"

// Log categories. Category is immutable once a row is created.
const (
	CategoryMeal       = "meal"
	CategoryExercise   = "exercise"
	CategoryMedication = "medication"
	CategorySleep      = "sleep"
)

// ValidCategory reports whether c is one of the four log categories.
func ValidCategory(c string) bool {
	switch c {
	case CategoryMeal, CategoryExercise, CategoryMedication, CategorySleep:
		return true
	}
	return false
}

// HealthLog is one user action record. The row keeps nullable category-specific
// columns for store parity, but rows are only ever built through the typed
// per-category inputs below, so an exercise log can never carry meal fields.
type HealthLog struct {
	ID       uint      `gorm:"primaryKey"`
	UserID   uint      `gorm:"not null;index"`
	User     User      `gorm:"foreignKey:UserID"`
	Category string    `gorm:"not null;index"`
	LoggedAt time.Time `gorm:"not null;index"`
	Note     string

	// meal
	MealDescription string
	ImageURL        string

	// exercise
	ExerciseType    string
	DurationMinutes *int
	HeartRate       *int
	WeightKg        *float64
	Reps            *int
	Sets            *int

	// sleep
	SleepDurationHours *float64

	// medication
	MedicationName string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MealInput, ExerciseInput, SleepInput, and MedicationInput are the only ways to
// build a HealthLog. Each carries just the fields its category allows.
type MealInput struct {
	Description string
	ImageURL    string
	Note        string
}

type ExerciseInput struct {
	Type            string
	DurationMinutes *int
	HeartRate       *int
	WeightKg        *float64
	Reps            *int
	Sets            *int
	Note            string
}

type SleepInput struct {
	DurationHours float64
	Note          string
}

type MedicationInput struct {
	Name string
	Note string
}

func NewMealLog(userID uint, loggedAt time.Time, in MealInput) HealthLog {
	return HealthLog{UserID: userID, Category: CategoryMeal, LoggedAt: loggedAt, Note: in.Note, MealDescription: in.Description, ImageURL: in.ImageURL}
}

func NewExerciseLog(userID uint, loggedAt time.Time, in ExerciseInput) HealthLog {
	return HealthLog{UserID: userID, Category: CategoryExercise, LoggedAt: loggedAt, Note: in.Note, ExerciseType: in.Type, DurationMinutes: in.DurationMinutes, HeartRate: in.HeartRate, WeightKg: in.WeightKg, Reps: in.Reps, Sets: in.Sets}
}

func NewSleepLog(userID uint, loggedAt time.Time, in SleepInput) HealthLog {
	h := in.DurationHours
	return HealthLog{UserID: userID, Category: CategorySleep, LoggedAt: loggedAt, Note: in.Note, SleepDurationHours: &h}
}

func NewMedicationLog(userID uint, loggedAt time.Time, in MedicationInput) HealthLog {
	return HealthLog{UserID: userID, Category: CategoryMedication, LoggedAt: loggedAt, Note: in.Note, MedicationName: in.Name}
}

// Schedule is a recurring reminder definition; active medication schedules feed
// the expected-daily-dose figure in the health context rollup.
type Schedule struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;index"`
	Category  string `gorm:"not null"`
	Frequency string
	IsActive  bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
