package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/models"
)

var (
	// ErrOngoingCycleExists means a start action raced or repeated while a
	// cycle is still open.
	ErrOngoingCycleExists = errors.New("an ongoing cycle already exists")
	// ErrNoOngoingCycle means an end action found nothing to close.
	ErrNoOngoingCycle = errors.New("no ongoing cycle to end")
)

const (
	defaultCycleLength = 28
	predictionWindow   = 6
	lateThresholdDays  = 3
)

// Prediction confidence grades, driven purely by how many completed cycle
// lengths back the average.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

type CyclePrediction struct {
	NextStartDate  string `json:"next_start_date"`
	AvgCycleLength int    `json:"avg_cycle_length"`
	Confidence     string `json:"confidence"`
	IsLate         bool   `json:"is_late"`
	DaysLate       int    `json:"days_late,omitempty"`
}

// CycleService manages menstrual cycle entries. The at-most-one-ongoing
// invariant is enforced with a guarded read inside a transaction, so two
// racing start actions cannot both commit an open row.
type CycleService struct {
	DB       *gorm.DB
	Location *time.Location
}

func NewCycleService(db *gorm.DB, loc *time.Location) *CycleService {
	if loc == nil {
		loc = time.UTC
	}
	return &CycleService{DB: db, Location: loc}
}

// Start opens a new cycle. CycleLength on the new row is derived from the gap
// to the previous cycle's start date when one exists.
func (s *CycleService) Start(userID uint, startDate, note string) (*models.CycleLog, error) {
	start, err := s.parseDate(startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start_date: %w", err)
	}

	row := models.CycleLog{UserID: userID, StartDate: startDate, Note: note}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var open int64
		if err := tx.Model(&models.CycleLog{}).
			Where("user_id = ? AND end_date IS NULL", userID).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return ErrOngoingCycleExists
		}

		var prev models.CycleLog
		err := tx.Where("user_id = ?", userID).
			Order("start_date desc").
			First(&prev).Error
		switch {
		case err == nil:
			prevStart, perr := s.parseDate(prev.StartDate)
			if perr == nil {
				if days := int(start.Sub(prevStart).Hours() / 24); days > 0 {
					row.CycleLength = &days
				}
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// first cycle: no length to derive
		default:
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// End closes the ongoing cycle.
func (s *CycleService) End(userID uint, endDate string) (*models.CycleLog, error) {
	end, err := s.parseDate(endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end_date: %w", err)
	}

	var row models.CycleLog
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND end_date IS NULL", userID).
			First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoOngoingCycle
			}
			return err
		}
		start, perr := s.parseDate(row.StartDate)
		if perr == nil && end.Before(start) {
			return errors.New("end_date before start_date")
		}
		row.EndDate = &endDate
		return tx.Save(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Update edits a cycle's dates or note. Nil fields are left unchanged; a nil
// end date pointer keeps the stored value, an empty string clears it back to
// ongoing. CycleLength is not rederived on edits.
func (s *CycleService) Update(userID, cycleID uint, startDate, endDate, note *string) (*models.CycleLog, error) {
	var row models.CycleLog
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", cycleID, userID).
			First(&row).Error; err != nil {
			return err
		}
		if startDate != nil {
			if _, err := s.parseDate(*startDate); err != nil {
				return fmt.Errorf("invalid start_date: %w", err)
			}
			row.StartDate = *startDate
		}
		if endDate != nil {
			if *endDate == "" {
				var open int64
				if err := tx.Model(&models.CycleLog{}).
					Where("user_id = ? AND end_date IS NULL AND id <> ?", userID, row.ID).
					Count(&open).Error; err != nil {
					return err
				}
				if open > 0 {
					return ErrOngoingCycleExists
				}
				row.EndDate = nil
			} else {
				if _, err := s.parseDate(*endDate); err != nil {
					return fmt.Errorf("invalid end_date: %w", err)
				}
				row.EndDate = endDate
			}
		}
		if row.EndDate != nil {
			start, serr := s.parseDate(row.StartDate)
			end, eerr := s.parseDate(*row.EndDate)
			if serr == nil && eerr == nil && end.Before(start) {
				return errors.New("end_date before start_date")
			}
		}
		if note != nil {
			row.Note = *note
		}
		return tx.Save(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns the user's cycles, newest first.
func (s *CycleService) List(userID uint, limit int) ([]models.CycleLog, error) {
	if limit <= 0 {
		limit = 24
	}
	var rows []models.CycleLog
	err := s.DB.Where("user_id = ?", userID).
		Order("start_date desc").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Predict estimates the next cycle start from the average of up to the six
// most recent derived lengths, defaulting to 28 days with no history.
func (s *CycleService) Predict(userID uint, today time.Time) (*CyclePrediction, error) {
	rows, err := s.List(userID, predictionWindow+1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var lengths []int
	for _, r := range rows {
		if r.CycleLength != nil && *r.CycleLength > 0 {
			lengths = append(lengths, *r.CycleLength)
		}
		if len(lengths) == predictionWindow {
			break
		}
	}

	avg := defaultCycleLength
	if len(lengths) > 0 {
		sum := 0
		for _, l := range lengths {
			sum += l
		}
		avg = (sum + len(lengths)/2) / len(lengths)
	}

	lastStart, err := s.parseDate(rows[0].StartDate)
	if err != nil {
		return nil, fmt.Errorf("corrupt start_date on cycle %d: %w", rows[0].ID, err)
	}
	next := lastStart.AddDate(0, 0, avg)

	pred := &CyclePrediction{
		NextStartDate:  next.Format("2006-01-02"),
		AvgCycleLength: avg,
		Confidence:     confidenceFor(len(lengths)),
	}

	todayLocal := today.In(s.Location)
	todayDate := time.Date(todayLocal.Year(), todayLocal.Month(), todayLocal.Day(), 0, 0, 0, 0, s.Location)
	if overdue := int(todayDate.Sub(next).Hours() / 24); overdue >= lateThresholdDays {
		pred.IsLate = true
		pred.DaysLate = overdue
	}
	return pred, nil
}

func confidenceFor(samples int) string {
	switch {
	case samples >= 4:
		return ConfidenceHigh
	case samples >= 2:
		return ConfidenceMedium
	}
	return ConfidenceLow
}

func (s *CycleService) parseDate(d string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", d, s.Location)
}
