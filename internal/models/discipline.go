package models

import "time"

// Discipline represents a course subject offered by the institution.
type Discipline struct {
	ID                     string    `db:"id" json:"id"`
	Name                   string    `db:"name" json:"name"`
	WorkloadHours          int       `db:"workload_hours" json:"workload_hours"`
	Description            *string   `db:"description" json:"description,omitempty"`
	ResponsibleProfessorID string    `db:"responsible_professor_id" json:"responsible_professor_id"`
	CreatedAt              time.Time `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time `db:"updated_at" json:"updated_at"`

	// Joined for display.
	ResponsibleProfessorName string `db:"responsible_professor_name" json:"responsible_professor_name,omitempty"`
}

// DisciplineFilter captures filtering options for listing disciplines.
type DisciplineFilter struct {
	Search      string
	ProfessorID string
	Page        int
	PageSize    int
}
