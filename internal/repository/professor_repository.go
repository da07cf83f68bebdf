package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ifsertao/permuta-api/internal/models"
)

// ErrRestricted signals a delete rejected by a RESTRICT foreign key:
// the record is referenced by historical swap data and must be kept.
var ErrRestricted = errors.New("record referenced by dependent rows")

func restrictViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

const professorSelectColumns = `p.id, p.user_id, p.siape, p.cpf, p.phone, p.coordination, p.created_at, p.updated_at,
       u.full_name AS full_name, u.email AS email`

// ProfessorRepository persists professor records.
type ProfessorRepository struct {
	db *sqlx.DB
}

// NewProfessorRepository constructs the repository.
func NewProfessorRepository(db *sqlx.DB) *ProfessorRepository {
	return &ProfessorRepository{db: db}
}

// Create inserts a professor row.
func (r *ProfessorRepository) Create(ctx context.Context, professor *models.Professor) error {
	if professor.ID == "" {
		professor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if professor.CreatedAt.IsZero() {
		professor.CreatedAt = now
	}
	professor.UpdatedAt = now
	const query = `INSERT INTO professors (id, user_id, siape, cpf, phone, coordination, created_at, updated_at)
	VALUES (:id, :user_id, :siape, :cpf, :phone, :coordination, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, professor); err != nil {
		return fmt.Errorf("create professor: %w", err)
	}
	return nil
}

// FindByID fetches a professor with user display fields.
func (r *ProfessorRepository) FindByID(ctx context.Context, id string) (*models.Professor, error) {
	query := fmt.Sprintf(`SELECT %s FROM professors p JOIN users u ON u.id = p.user_id WHERE p.id = $1`, professorSelectColumns)
	var professor models.Professor
	if err := r.db.GetContext(ctx, &professor, query, id); err != nil {
		return nil, err
	}
	return &professor, nil
}

// FindByUserID resolves the professor record behind a system user.
func (r *ProfessorRepository) FindByUserID(ctx context.Context, userID string) (*models.Professor, error) {
	query := fmt.Sprintf(`SELECT %s FROM professors p JOIN users u ON u.id = p.user_id WHERE p.user_id = $1`, professorSelectColumns)
	var professor models.Professor
	if err := r.db.GetContext(ctx, &professor, query, userID); err != nil {
		return nil, err
	}
	return &professor, nil
}

// List returns professors plus the total count for pagination.
func (r *ProfessorRepository) List(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, int, error) {
	conditions := []string{"1=1"}
	args := make([]interface{}, 0, 3)
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.full_name) LIKE $%d OR p.siape LIKE $%d)", len(args), len(args)))
	}
	if filter.Coordination != "" {
		args = append(args, filter.Coordination)
		conditions = append(conditions, fmt.Sprintf("p.coordination = $%d", len(args)))
	}
	if filter.ExcludeID != "" {
		args = append(args, filter.ExcludeID)
		conditions = append(conditions, fmt.Sprintf("p.id <> $%d", len(args)))
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

	query := fmt.Sprintf(`SELECT %s FROM professors p JOIN users u ON u.id = p.user_id
	WHERE %s ORDER BY u.full_name LIMIT %d OFFSET %d`, professorSelectColumns, where, size, (page-1)*size)
	var professors []models.Professor
	if err := r.db.SelectContext(ctx, &professors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list professors: %w", err)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM professors p JOIN users u ON u.id = p.user_id WHERE %s`, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count professors: %w", err)
	}
	return professors, total, nil
}

// ExistsBySiape reports whether a professor with the SIAPE number exists.
func (r *ProfessorRepository) ExistsBySiape(ctx context.Context, siape, excludeID string) (bool, error) {
	return r.exists(ctx, "siape", siape, excludeID)
}

// ExistsByCPF reports whether a professor with the CPF exists.
func (r *ProfessorRepository) ExistsByCPF(ctx context.Context, cpf, excludeID string) (bool, error) {
	return r.exists(ctx, "cpf", cpf, excludeID)
}

func (r *ProfessorRepository) exists(ctx context.Context, column, value, excludeID string) (bool, error) {
	query := fmt.Sprintf(`SELECT 1 FROM professors WHERE %s = $1`, column)
	args := []interface{}{value}
	if excludeID != "" {
		query += ` AND id <> $2`
		args = append(args, excludeID)
	}
	query += ` LIMIT 1`
	var one int
	err := r.db.GetContext(ctx, &one, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check professor %s: %w", column, err)
	}
	return true, nil
}

// Update mutates the professor's editable fields.
func (r *ProfessorRepository) Update(ctx context.Context, professor *models.Professor) error {
	professor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE professors
	SET siape = :siape, cpf = :cpf, phone = :phone, coordination = :coordination, updated_at = :updated_at
	WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, professor)
	if err != nil {
		return fmt.Errorf("update professor: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check professor update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a professor. Rejected with ErrRestricted while swap
// requests or schedule slots still reference the record.
func (r *ProfessorRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM professors WHERE id = $1`, id)
	if err != nil {
		if restrictViolation(err) {
			return ErrRestricted
		}
		return fmt.Errorf("delete professor: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check professor delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
