package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/models"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/score"
)

// ErrNotGroupMember is returned when the requester does not belong to the group.
var ErrNotGroupMember = errors.New("not a group member")

// ErrInvalidRange covers malformed or out-of-bounds date ranges.
var ErrInvalidRange = errors.New("invalid date range")

const calendarMaxRangeDays = 62

// DayPresence is the complete per-day output of the group calendar. Only these
// three booleans ever leave the aggregation: no counts, no names, no values.
// Any new log field stays invisible here unless explicitly added.
type DayPresence struct {
	Meal       bool `json:"meal"`
	Exercise   bool `json:"exercise"`
	Medication bool `json:"medication"`
}

type GroupCalendar struct {
	Days       map[string]DayPresence `json:"days"`
	Summary    string                 `json:"summary"`
	AIBriefing string                 `json:"ai_briefing"`
}

// GroupCalendarService aggregates a group's activity into boolean-only day
// buckets. Sleep logs are deliberately excluded from the shared view.
type GroupCalendarService struct {
	DB       *gorm.DB
	Location *time.Location
}

func NewGroupCalendarService(db *gorm.DB, loc *time.Location) *GroupCalendarService {
	if loc == nil {
		loc = time.UTC
	}
	return &GroupCalendarService{DB: db, Location: loc}
}

// GetCalendar builds the presence calendar over [startDate, endDate] for a
// group the requester belongs to.
func (s *GroupCalendarService) GetCalendar(groupID, requesterID uint, startDate, endDate string) (*GroupCalendar, error) {
	member, err := s.isMember(groupID, requesterID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotGroupMember
	}

	start, err := time.ParseInLocation("2006-01-02", startDate, s.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: bad start_date", ErrInvalidRange)
	}
	end, err := time.ParseInLocation("2006-01-02", endDate, s.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: bad end_date", ErrInvalidRange)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end_date before start_date", ErrInvalidRange)
	}
	if end.Sub(start) > calendarMaxRangeDays*24*time.Hour {
		return nil, fmt.Errorf("%w: exceeds %d days", ErrInvalidRange, calendarMaxRangeDays)
	}

	var memberIDs []uint
	if err := s.DB.Model(&models.GroupMember{}).
		Where("group_id = ?", groupID).
		Pluck("user_id", &memberIDs).Error; err != nil {
		return nil, err
	}

	days := map[string]DayPresence{}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days[d.Format("2006-01-02")] = DayPresence{}
	}

	var logs []models.HealthLog
	if err := s.DB.Select("user_id", "category", "logged_at").
		Where("user_id IN ? AND category IN ? AND logged_at >= ? AND logged_at < ?",
			memberIDs,
			[]string{models.CategoryMeal, models.CategoryExercise, models.CategoryMedication},
			start, end.AddDate(0, 0, 1)).
		Find(&logs).Error; err != nil {
		return nil, err
	}

	for _, l := range logs {
		d := score.DateIn(l.LoggedAt, s.Location)
		p, ok := days[d]
		if !ok {
			continue
		}
		switch l.Category {
		case models.CategoryMeal:
			p.Meal = true
		case models.CategoryExercise:
			p.Exercise = true
		case models.CategoryMedication:
			p.Medication = true
		}
		days[d] = p
	}

	summary := summarizePresence(days)
	return &GroupCalendar{Days: days, Summary: summary, AIBriefing: briefingFromSummary(days)}, nil
}

func (s *GroupCalendarService) isMember(groupID, userID uint) (bool, error) {
	var n int64
	err := s.DB.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// summarizePresence counts days-with-activity per category. It reads only the
// booleans, never the underlying logs.
func summarizePresence(days map[string]DayPresence) string {
	var meal, exercise, medication int
	for _, p := range days {
		if p.Meal {
			meal++
		}
		if p.Exercise {
			exercise++
		}
		if p.Medication {
			medication++
		}
	}
	return fmt.Sprintf("%d일 중 식사 기록 %d일, 운동 %d일, 복약 %d일", len(days), meal, exercise, medication)
}

func briefingFromSummary(days map[string]DayPresence) string {
	total := len(days)
	if total == 0 {
		return "조회 기간에 활동 기록이 없습니다."
	}
	var exercise, medication int
	for _, p := range days {
		if p.Exercise {
			exercise++
		}
		if p.Medication {
			medication++
		}
	}
	var parts []string
	if exercise*2 >= total {
		parts = append(parts, "운동이 꾸준히 이어지고 있어요")
	} else if exercise == 0 {
		parts = append(parts, "이 기간에는 운동 기록이 없어요")
	} else {
		parts = append(parts, fmt.Sprintf("운동은 %d일 기록되었어요", exercise))
	}
	if medication*2 >= total {
		parts = append(parts, "복약도 잘 지켜지고 있습니다")
	} else if medication == 0 {
		parts = append(parts, "복약 기록은 없습니다")
	} else {
		parts = append(parts, fmt.Sprintf("복약은 %d일 기록되었습니다", medication))
	}
	return strings.Join(parts, ". ") + "."
}
