package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ifsertao/permuta-api/internal/models"
)

const slotSelectColumns = `sl.id, sl.professor_id, sl.discipline_id, sl.class_id, sl.weekday,
       sl.start_time, sl.end_time, sl.created_at, sl.updated_at,
       u.full_name AS professor_name, d.name AS discipline_name, c.code AS class_code`

const slotFromClause = `FROM schedule_slots sl
       JOIN professors p ON p.id = sl.professor_id
       JOIN users u ON u.id = p.user_id
       JOIN disciplines d ON d.id = sl.discipline_id
       JOIN classes c ON c.id = sl.class_id`

// ScheduleSlotRepository persists weekly schedule slots.
type ScheduleSlotRepository struct {
	db *sqlx.DB
}

// NewScheduleSlotRepository constructs the repository.
func NewScheduleSlotRepository(db *sqlx.DB) *ScheduleSlotRepository {
	return &ScheduleSlotRepository{db: db}
}

// Create inserts a schedule slot row.
func (r *ScheduleSlotRepository) Create(ctx context.Context, slot *models.ScheduleSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = now
	}
	slot.UpdatedAt = now
	const query = `INSERT INTO schedule_slots (id, professor_id, discipline_id, class_id, weekday, start_time, end_time, created_at, updated_at)
	VALUES (:id, :professor_id, :discipline_id, :class_id, :weekday, :start_time, :end_time, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create schedule slot: %w", err)
	}
	return nil
}

// FindByID fetches a slot with display fields.
func (r *ScheduleSlotRepository) FindByID(ctx context.Context, id string) (*models.ScheduleSlot, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE sl.id = $1", slotSelectColumns, slotFromClause)
	var slot models.ScheduleSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// List returns slots matching the filter in timetable order.
func (r *ScheduleSlotRepository) List(ctx context.Context, filter models.ScheduleSlotFilter) ([]models.ScheduleSlot, int, error) {
	conditions := []string{"1=1"}
	args := make([]interface{}, 0, 4)
	if filter.ProfessorID != "" {
		args = append(args, filter.ProfessorID)
		conditions = append(conditions, fmt.Sprintf("sl.professor_id = $%d", len(args)))
	}
	if filter.DisciplineID != "" {
		args = append(args, filter.DisciplineID)
		conditions = append(conditions, fmt.Sprintf("sl.discipline_id = $%d", len(args)))
	}
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		conditions = append(conditions, fmt.Sprintf("sl.class_id = $%d", len(args)))
	}
	if filter.Weekday != "" {
		args = append(args, filter.Weekday)
		conditions = append(conditions, fmt.Sprintf("sl.weekday = $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}

	query := fmt.Sprintf(`SELECT %s %s WHERE %s
	ORDER BY c.code, sl.weekday, sl.start_time LIMIT %d OFFSET %d`,
		slotSelectColumns, slotFromClause, where, size, (page-1)*size)
	var slots []models.ScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedule slots: %w", err)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM schedule_slots sl WHERE %s`, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedule slots: %w", err)
	}
	return slots, total, nil
}

// Update mutates a slot record.
func (r *ScheduleSlotRepository) Update(ctx context.Context, slot *models.ScheduleSlot) error {
	slot.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedule_slots
	SET professor_id = :professor_id, discipline_id = :discipline_id, class_id = :class_id,
	    weekday = :weekday, start_time = :start_time, end_time = :end_time, updated_at = :updated_at
	WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, slot)
	if err != nil {
		return fmt.Errorf("update schedule slot: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check schedule slot update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a slot, rejected with ErrRestricted while swap requests
// reference it.
func (r *ScheduleSlotRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedule_slots WHERE id = $1`, id)
	if err != nil {
		if restrictViolation(err) {
			return ErrRestricted
		}
		return fmt.Errorf("delete schedule slot: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check schedule slot delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
