package models

import "time"

// Professor links a system user to an institutional teaching record.
// Siape is the unique staff registration number; CPF the national ID.
type Professor struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	Siape        string    `db:"siape" json:"siape"`
	CPF          string    `db:"cpf" json:"cpf"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	Coordination string    `db:"coordination" json:"coordination"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	// Joined from users for display.
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
}

// ProfessorFilter captures filtering options for listing professors.
type ProfessorFilter struct {
	Search       string
	Coordination string
	ExcludeID    string
	Page         int
	PageSize     int
}
