package models

import "time"

// Weekday enumerates teaching days. Sunday is not a teaching day.
type Weekday string

const (
	WeekdayMonday    Weekday = "MON"
	WeekdayTuesday   Weekday = "TUE"
	WeekdayWednesday Weekday = "WED"
	WeekdayThursday  Weekday = "THU"
	WeekdayFriday    Weekday = "FRI"
	WeekdaySaturday  Weekday = "SAT"
)

// Weekdays lists teaching days in institutional order.
var Weekdays = []Weekday{
	WeekdayMonday, WeekdayTuesday, WeekdayWednesday,
	WeekdayThursday, WeekdayFriday, WeekdaySaturday,
}

var weekdayLabels = map[Weekday]string{
	WeekdayMonday:    "Segunda-feira",
	WeekdayTuesday:   "Terça-feira",
	WeekdayWednesday: "Quarta-feira",
	WeekdayThursday:  "Quinta-feira",
	WeekdayFriday:    "Sexta-feira",
	WeekdaySaturday:  "Sábado",
}

// ValidWeekday reports whether the value is a teaching day.
func ValidWeekday(d Weekday) bool {
	_, ok := weekdayLabels[d]
	return ok
}

// Label returns the Portuguese display name for the weekday.
func (d Weekday) Label() string {
	if label, ok := weekdayLabels[d]; ok {
		return label
	}
	return string(d)
}

// ScheduleSlot is one recurring weekly class commitment: professor,
// discipline and class group bound to a weekday and time range.
// Start and End are wall-clock times in "15:04" format; Start < End.
type ScheduleSlot struct {
	ID           string    `db:"id" json:"id"`
	ProfessorID  string    `db:"professor_id" json:"professor_id"`
	DisciplineID string    `db:"discipline_id" json:"discipline_id"`
	ClassID      string    `db:"class_id" json:"class_id"`
	Weekday      Weekday   `db:"weekday" json:"weekday"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	// Joined for display.
	ProfessorName  string `db:"professor_name" json:"professor_name,omitempty"`
	DisciplineName string `db:"discipline_name" json:"discipline_name,omitempty"`
	ClassCode      string `db:"class_code" json:"class_code,omitempty"`
}

// ScheduleSlotFilter captures filtering options for listing slots.
type ScheduleSlotFilter struct {
	ProfessorID  string
	DisciplineID string
	ClassID      string
	Weekday      Weekday
	Page         int
	PageSize     int
}
