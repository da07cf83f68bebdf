package models

import "time"

// ClassShift enumerates the daily shift a class group attends.
type ClassShift string

const (
	ShiftMorning   ClassShift = "MORNING"
	ShiftAfternoon ClassShift = "AFTERNOON"
	ShiftEvening   ClassShift = "EVENING"
	ShiftFullTime  ClassShift = "FULLTIME"
)

// ValidShift reports whether the value is a known shift.
func ValidShift(s ClassShift) bool {
	switch s {
	case ShiftMorning, ShiftAfternoon, ShiftEvening, ShiftFullTime:
		return true
	}
	return false
}

// Class represents a class group (turma) such as "TSI 2024.1".
type Class struct {
	ID        string     `db:"id" json:"id"`
	Code      string     `db:"code" json:"code"`
	Course    string     `db:"course" json:"course"`
	Period    string     `db:"period" json:"period"`
	Shift     ClassShift `db:"shift" json:"shift"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// ClassFilter captures filtering options for listing classes.
type ClassFilter struct {
	Search   string
	Course   string
	Shift    ClassShift
	Page     int
	PageSize int
}
