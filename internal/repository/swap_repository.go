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

// ErrDuplicateMakeUp signals that a make-up session already exists for the
// swap request (unique index on swap_request_id).
var ErrDuplicateMakeUp = errors.New("make-up session already registered")

const swapSelectColumns = `s.id, s.requester_id, s.substitute_id, s.slot_id, s.class_date, s.reason, s.status,
       s.requested_at, s.decided_at, s.decided_by,
       ru.full_name AS requester_name, su.full_name AS substitute_name,
       d.name AS discipline_name, c.code AS class_code,
       sl.weekday AS slot_weekday, sl.start_time AS slot_start_time, sl.end_time AS slot_end_time`

const swapFromClause = `FROM swap_requests s
       JOIN professors rp ON rp.id = s.requester_id
       JOIN users ru ON ru.id = rp.user_id
       JOIN professors sp ON sp.id = s.substitute_id
       JOIN users su ON su.id = sp.user_id
       JOIN schedule_slots sl ON sl.id = s.slot_id
       JOIN disciplines d ON d.id = sl.discipline_id
       JOIN classes c ON c.id = sl.class_id`

// SwapRepository persists swap requests and their make-up sessions.
type SwapRepository struct {
	db *sqlx.DB
}

// NewSwapRepository constructs the repository.
func NewSwapRepository(db *sqlx.DB) *SwapRepository {
	return &SwapRepository{db: db}
}

// Create inserts a new swap request row.
func (r *SwapRepository) Create(ctx context.Context, swap *models.SwapRequest) error {
	if swap.ID == "" {
		swap.ID = uuid.NewString()
	}
	if swap.Status == "" {
		swap.Status = models.SwapStatusPending
	}
	if swap.RequestedAt.IsZero() {
		swap.RequestedAt = time.Now().UTC()
	}
	const query = `INSERT INTO swap_requests
	(id, requester_id, substitute_id, slot_id, class_date, reason, status, requested_at, decided_at, decided_by)
	VALUES (:id, :requester_id, :substitute_id, :slot_id, :class_date, :reason, :status, :requested_at, :decided_at, :decided_by)`
	if _, err := r.db.NamedExecContext(ctx, query, swap); err != nil {
		return fmt.Errorf("create swap request: %w", err)
	}
	return nil
}

// GetByID fetches a swap request with display fields and its make-up session.
func (r *SwapRepository) GetByID(ctx context.Context, id string) (*models.SwapRequest, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.id = $1", swapSelectColumns, swapFromClause)
	var swap models.SwapRequest
	if err := r.db.GetContext(ctx, &swap, query, id); err != nil {
		return nil, err
	}
	makeUp, err := r.GetMakeUp(ctx, swap.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	swap.MakeUp = makeUp
	return &swap, nil
}

// List returns swap requests matching the filter, newest first, with
// make-up sessions hydrated in one extra round trip.
func (r *SwapRepository) List(ctx context.Context, filter models.SwapFilter) ([]models.SwapRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString("SELECT " + swapSelectColumns + " " + swapFromClause)

	conditions := make([]string, 0, 4)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("s.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.RequesterID != "" {
		args = append(args, filter.RequesterID)
		conditions = append(conditions, fmt.Sprintf("s.requester_id = $%d", len(args)))
	}
	if filter.SubstituteID != "" {
		args = append(args, filter.SubstituteID)
		conditions = append(conditions, fmt.Sprintf("s.substitute_id = $%d", len(args)))
	}
	if filter.InvolvedProfessorID != "" {
		args = append(args, filter.InvolvedProfessorID)
		conditions = append(conditions, fmt.Sprintf("(s.requester_id = $%d OR s.substitute_id = $%d)", len(args), len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("s.requested_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("s.requested_at < $%d", len(args)))
	}
	if filter.ClassDateFrom != nil && filter.ClassDateTo != nil {
		args = append(args, *filter.ClassDateFrom, *filter.ClassDateTo)
		fromArg, toArg := len(args)-1, len(args)
		conditions = append(conditions, fmt.Sprintf(
			"((s.class_date >= $%d AND s.class_date < $%d) OR EXISTS (SELECT 1 FROM make_up_sessions m WHERE m.swap_request_id = s.id AND m.date >= $%d AND m.date < $%d))",
			fromArg, toArg, fromArg, toArg))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY s.requested_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var swaps []models.SwapRequest
	if err := r.db.SelectContext(ctx, &swaps, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list swap requests: %w", err)
	}
	if err := r.attachMakeUps(ctx, swaps); err != nil {
		return nil, err
	}
	return swaps, nil
}

func (r *SwapRepository) attachMakeUps(ctx context.Context, swaps []models.SwapRequest) error {
	if len(swaps) == 0 {
		return nil
	}
	ids := make([]string, len(swaps))
	for i := range swaps {
		ids[i] = swaps[i].ID
	}
	const query = `SELECT id, swap_request_id, date, note, created_at
	FROM make_up_sessions WHERE swap_request_id = ANY($1)`
	var sessions []models.MakeUpSession
	if err := r.db.SelectContext(ctx, &sessions, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("load make-up sessions: %w", err)
	}
	bySwap := make(map[string]*models.MakeUpSession, len(sessions))
	for i := range sessions {
		session := sessions[i]
		bySwap[session.SwapRequestID] = &session
	}
	for i := range swaps {
		swaps[i].MakeUp = bySwap[swaps[i].ID]
	}
	return nil
}

// UpdateSwapStatusParams groups the columns mutated by a status transition.
// ExpectStatus guards the update: the transition commits only while the row
// still holds one of the expected statuses, so racing confirm/cancel calls
// cannot silently overwrite each other.
type UpdateSwapStatusParams struct {
	ID           string
	Status       models.SwapStatus
	ExpectStatus []models.SwapStatus
	DecidedBy    string
	DecidedAt    time.Time
}

// UpdateStatus persists a guarded status transition. Returns sql.ErrNoRows
// when the guard did not match, leaving re-read and classification to the
// caller.
func (r *SwapRepository) UpdateStatus(ctx context.Context, params UpdateSwapStatusParams) error {
	if len(params.ExpectStatus) == 0 {
		return fmt.Errorf("update swap status: expected status guard required")
	}
	args := []interface{}{params.Status, params.DecidedBy, params.DecidedAt, params.ID}
	placeholders := make([]string, len(params.ExpectStatus))
	for i, status := range params.ExpectStatus {
		args = append(args, status)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	query := fmt.Sprintf(`UPDATE swap_requests
	SET status = $1, decided_by = $2, decided_at = $3
	WHERE id = $4 AND status IN (%s)`, strings.Join(placeholders, ","))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update swap status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check swap status update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateMakeUp inserts the make-up session for a swap request. The unique
// index on swap_request_id enforces the one-to-one relation; a violation is
// reported as ErrDuplicateMakeUp.
func (r *SwapRepository) CreateMakeUp(ctx context.Context, makeUp *models.MakeUpSession) error {
	if makeUp.ID == "" {
		makeUp.ID = uuid.NewString()
	}
	if makeUp.CreatedAt.IsZero() {
		makeUp.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO make_up_sessions (id, swap_request_id, date, note, created_at)
	VALUES (:id, :swap_request_id, :date, :note, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, makeUp); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateMakeUp
		}
		return fmt.Errorf("create make-up session: %w", err)
	}
	return nil
}

// GetMakeUp fetches the make-up session attached to a swap request.
func (r *SwapRepository) GetMakeUp(ctx context.Context, swapID string) (*models.MakeUpSession, error) {
	const query = `SELECT id, swap_request_id, date, note, created_at
	FROM make_up_sessions WHERE swap_request_id = $1`
	var makeUp models.MakeUpSession
	if err := r.db.GetContext(ctx, &makeUp, query, swapID); err != nil {
		return nil, err
	}
	return &makeUp, nil
}
