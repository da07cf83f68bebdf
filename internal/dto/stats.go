package dto

import "github.com/ifsertao/permuta-api/internal/models"

// StatsResponse is the full statistics payload consumed by the
// coordination dashboard and report renderers.
type StatsResponse struct {
	Counts               models.StatusCounts          `json:"counts"`
	PendingWithoutMakeUp int                          `json:"pending_without_make_up"`
	TopProfessors        []models.ProfessorSwapCount  `json:"top_professors"`
	TopDisciplines       []models.DisciplineSwapCount `json:"top_disciplines"`
	MonthlyHistogram     []models.PeriodBucket        `json:"monthly_histogram"`
	WeekdayHistogram     []models.WeekdayBucket       `json:"weekday_histogram"`
	WindowDays           int                          `json:"window_days"`
	GeneratedFromCache   bool                         `json:"generated_from_cache"`
}
