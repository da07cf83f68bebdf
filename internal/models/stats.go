package models

// StatusCounts holds swap request totals broken down by status.
type StatusCounts struct {
	Total     int `db:"total" json:"total"`
	Pending   int `db:"pending" json:"pending"`
	Approved  int `db:"approved" json:"approved"`
	Cancelled int `db:"cancelled" json:"cancelled"`
}

// ProfessorSwapCount ranks a professor by swap requests made.
type ProfessorSwapCount struct {
	ProfessorID string `db:"professor_id" json:"professor_id"`
	Name        string `db:"name" json:"name"`
	Siape       string `db:"siape" json:"siape"`
	Count       int    `db:"count" json:"count"`
}

// DisciplineSwapCount ranks a discipline by swap volume.
type DisciplineSwapCount struct {
	DisciplineID string `db:"discipline_id" json:"discipline_id"`
	Name         string `db:"name" json:"name"`
	Count        int    `db:"count" json:"count"`
}

// PeriodBucket is one bar of a time-bucketed histogram.
type PeriodBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// WeekdayBucket counts swaps whose slot falls on a given teaching day.
type WeekdayBucket struct {
	Weekday Weekday `json:"weekday"`
	Label   string  `json:"label"`
	Count   int     `json:"count"`
}
