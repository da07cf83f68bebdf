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

const disciplineSelectColumns = `d.id, d.name, d.workload_hours, d.description, d.responsible_professor_id,
       d.created_at, d.updated_at, u.full_name AS responsible_professor_name`

// DisciplineRepository persists discipline records.
type DisciplineRepository struct {
	db *sqlx.DB
}

// NewDisciplineRepository constructs the repository.
func NewDisciplineRepository(db *sqlx.DB) *DisciplineRepository {
	return &DisciplineRepository{db: db}
}

// Create inserts a discipline row.
func (r *DisciplineRepository) Create(ctx context.Context, discipline *models.Discipline) error {
	if discipline.ID == "" {
		discipline.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if discipline.CreatedAt.IsZero() {
		discipline.CreatedAt = now
	}
	discipline.UpdatedAt = now
	const query = `INSERT INTO disciplines (id, name, workload_hours, description, responsible_professor_id, created_at, updated_at)
	VALUES (:id, :name, :workload_hours, :description, :responsible_professor_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, discipline); err != nil {
		return fmt.Errorf("create discipline: %w", err)
	}
	return nil
}

// FindByID fetches a discipline with the responsible professor's name.
func (r *DisciplineRepository) FindByID(ctx context.Context, id string) (*models.Discipline, error) {
	query := fmt.Sprintf(`SELECT %s FROM disciplines d
	JOIN professors p ON p.id = d.responsible_professor_id
	JOIN users u ON u.id = p.user_id
	WHERE d.id = $1`, disciplineSelectColumns)
	var discipline models.Discipline
	if err := r.db.GetContext(ctx, &discipline, query, id); err != nil {
		return nil, err
	}
	return &discipline, nil
}

// List returns disciplines plus the total count for pagination.
func (r *DisciplineRepository) List(ctx context.Context, filter models.DisciplineFilter) ([]models.Discipline, int, error) {
	conditions := []string{"1=1"}
	args := make([]interface{}, 0, 2)
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("LOWER(d.name) LIKE $%d", len(args)))
	}
	if filter.ProfessorID != "" {
		args = append(args, filter.ProfessorID)
		conditions = append(conditions, fmt.Sprintf("d.responsible_professor_id = $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	query := fmt.Sprintf(`SELECT %s FROM disciplines d
	JOIN professors p ON p.id = d.responsible_professor_id
	JOIN users u ON u.id = p.user_id
	WHERE %s ORDER BY d.name LIMIT %d OFFSET %d`, disciplineSelectColumns, where, size, (page-1)*size)
	var disciplines []models.Discipline
	if err := r.db.SelectContext(ctx, &disciplines, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list disciplines: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf(`SELECT COUNT(*) FROM disciplines d WHERE %s`, where), args...); err != nil {
		return nil, 0, fmt.Errorf("count disciplines: %w", err)
	}
	return disciplines, total, nil
}

// Update mutates a discipline record.
func (r *DisciplineRepository) Update(ctx context.Context, discipline *models.Discipline) error {
	discipline.UpdatedAt = time.Now().UTC()
	const query = `UPDATE disciplines
	SET name = :name, workload_hours = :workload_hours, description = :description,
	    responsible_professor_id = :responsible_professor_id, updated_at = :updated_at
	WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, discipline)
	if err != nil {
		return fmt.Errorf("update discipline: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check discipline update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a discipline, rejected with ErrRestricted while schedule
// slots reference it.
func (r *DisciplineRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM disciplines WHERE id = $1`, id)
	if err != nil {
		if restrictViolation(err) {
			return ErrRestricted
		}
		return fmt.Errorf("delete discipline: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check discipline delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
