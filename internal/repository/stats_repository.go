package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ifsertao/permuta-api/internal/models"
)

// StatsRepository runs read-only aggregate queries over swap requests.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository constructs the repository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// CountsByStatus returns swap totals per status within the window.
func (r *StatsRepository) CountsByStatus(ctx context.Context, since time.Time) (models.StatusCounts, error) {
	const query = `SELECT
	COUNT(*) AS total,
	COUNT(*) FILTER (WHERE status = 'PENDING') AS pending,
	COUNT(*) FILTER (WHERE status = 'APPROVED') AS approved,
	COUNT(*) FILTER (WHERE status = 'CANCELLED') AS cancelled
	FROM swap_requests WHERE requested_at >= $1`
	var counts models.StatusCounts
	if err := r.db.GetContext(ctx, &counts, query, since); err != nil {
		return models.StatusCounts{}, fmt.Errorf("count swaps by status: %w", err)
	}
	return counts, nil
}

// TopProfessors ranks professors by swap requests made within the window.
func (r *StatsRepository) TopProfessors(ctx context.Context, since time.Time, limit int) ([]models.ProfessorSwapCount, error) {
	if limit <= 0 {
		limit = 5
	}
	const query = `SELECT p.id AS professor_id, u.full_name AS name, p.siape AS siape, COUNT(s.id) AS count
	FROM swap_requests s
	JOIN professors p ON p.id = s.requester_id
	JOIN users u ON u.id = p.user_id
	WHERE s.requested_at >= $1
	GROUP BY p.id, u.full_name, p.siape
	ORDER BY count DESC, u.full_name
	LIMIT $2`
	var rows []models.ProfessorSwapCount
	if err := r.db.SelectContext(ctx, &rows, query, since, limit); err != nil {
		return nil, fmt.Errorf("top professors: %w", err)
	}
	return rows, nil
}

// TopDisciplines ranks disciplines by swap volume within the window.
func (r *StatsRepository) TopDisciplines(ctx context.Context, since time.Time, limit int) ([]models.DisciplineSwapCount, error) {
	if limit <= 0 {
		limit = 5
	}
	const query = `SELECT d.id AS discipline_id, d.name AS name, COUNT(s.id) AS count
	FROM swap_requests s
	JOIN schedule_slots sl ON sl.id = s.slot_id
	JOIN disciplines d ON d.id = sl.discipline_id
	WHERE s.requested_at >= $1
	GROUP BY d.id, d.name
	ORDER BY count DESC, d.name
	LIMIT $2`
	var rows []models.DisciplineSwapCount
	if err := r.db.SelectContext(ctx, &rows, query, since, limit); err != nil {
		return nil, fmt.Errorf("top disciplines: %w", err)
	}
	return rows, nil
}

// CountRequestedBetween counts swaps requested in [from, to).
func (r *StatsRepository) CountRequestedBetween(ctx context.Context, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM swap_requests WHERE requested_at >= $1 AND requested_at < $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, from, to); err != nil {
		return 0, fmt.Errorf("count swaps between: %w", err)
	}
	return count, nil
}

type weekdayCountRow struct {
	Weekday models.Weekday `db:"weekday"`
	Count   int            `db:"count"`
}

// WeekdayCounts groups swaps by the weekday of the swapped slot. Days
// without swaps are absent; the caller zero-fills.
func (r *StatsRepository) WeekdayCounts(ctx context.Context, since time.Time) (map[models.Weekday]int, error) {
	const query = `SELECT sl.weekday AS weekday, COUNT(s.id) AS count
	FROM swap_requests s
	JOIN schedule_slots sl ON sl.id = s.slot_id
	WHERE s.requested_at >= $1
	GROUP BY sl.weekday`
	var rows []weekdayCountRow
	if err := r.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("weekday counts: %w", err)
	}
	counts := make(map[models.Weekday]int, len(rows))
	for _, row := range rows {
		counts[row.Weekday] = row.Count
	}
	return counts, nil
}
