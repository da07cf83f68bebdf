package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/ifsertao/permuta-api/internal/models"
)

func newSwapRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func swapRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "requester_id", "substitute_id", "slot_id", "class_date", "reason", "status",
		"requested_at", "decided_at", "decided_by",
		"requester_name", "substitute_name", "discipline_name", "class_code",
		"slot_weekday", "slot_start_time", "slot_end_time",
	})
}

func TestSwapRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newSwapRepoMock(t)
	defer cleanup()

	repo := NewSwapRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO swap_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	swap := &models.SwapRequest{
		RequesterID:  "prof-a",
		SubstituteID: "prof-b",
		SlotID:       "slot-1",
		ClassDate:    time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		Reason:       "congresso",
	}
	require.NoError(t, repo.Create(context.Background(), swap))
	require.NotEmpty(t, swap.ID)
	require.Equal(t, models.SwapStatusPending, swap.Status)
	require.False(t, swap.RequestedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryGetByIDHydratesMakeUp(t *testing.T) {
	db, mock, cleanup := newSwapRepoMock(t)
	defer cleanup()

	repo := NewSwapRepository(db)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT s.id, s.requester_id")).
		WithArgs("swap-1").
		WillReturnRows(swapRows().AddRow(
			"swap-1", "prof-a", "prof-b", "slot-1", now, "congresso", "PENDING",
			now, nil, nil,
			"Ana Lima", "Bruno Souza", "Algoritmos", "TSI 2024.1",
			"MON", "08:00", "10:00",
		))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, swap_request_id, date, note, created_at")).
		WithArgs("swap-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "swap_request_id", "date", "note", "created_at"}).
			AddRow("m-1", "swap-1", now, "sábado letivo", now))

	swap, err := repo.GetByID(context.Background(), "swap-1")
	require.NoError(t, err)
	require.Equal(t, "Ana Lima", swap.RequesterName)
	require.True(t, swap.HasMakeUp())
	require.Equal(t, "m-1", swap.MakeUp.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryGetByIDWithoutMakeUp(t *testing.T) {
	db, mock, cleanup := newSwapRepoMock(t)
	defer cleanup()

	repo := NewSwapRepository(db)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT s.id, s.requester_id")).
		WithArgs("swap-1").
		WillReturnRows(swapRows().AddRow(
			"swap-1", "prof-a", "prof-b", "slot-1", now, "congresso", "PENDING",
			now, nil, nil,
			"Ana Lima", "Bruno Souza", "Algoritmos", "TSI 2024.1",
			"MON", "08:00", "10:00",
		))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, swap_request_id, date, note, created_at")).
		WithArgs("swap-1").
		WillReturnError(sql.ErrNoRows)

	swap, err := repo.GetByID(context.Background(), "swap-1")
	require.NoError(t, err)
	require.False(t, swap.HasMakeUp())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newSwapRepoMock(t)
	defer cleanup()

	repo := NewSwapRepository(db)
	now := time.Now()
	from := now.AddDate(0, 0, -30)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT s.id, s.requester_id")).
		WithArgs("PENDING", "prof-a", from).
		WillReturnRows(swapRows().AddRow(
			"swap-1", "prof-a", "prof-b", "slot-1", now, "congresso", "PENDING",
			now, nil, nil,
			"Ana Lima", "Bruno Souza", "Algoritmos", "TSI 2024.1",
			"MON", "08:00", "10:00",
		))
	mock.ExpectQuery(regexp.QuoteMeta("FROM make_up_sessions WHERE swap_request_id = ANY")).
		WithArgs(pq.Array([]string{"swap-1"})).
		WillReturnRows(sqlmock.NewRows([]string{"id", "swap_request_id", "date", "note", "created_at"}))

	swaps, err := repo.List(context.Background(), models.SwapFilter{
		Status:              []models.SwapStatus{models.SwapStatusPending},
		InvolvedProfessorID: "prof-a",
		From:                &from,
	})
	require.NoError(t, err)
	require.Len(t, swaps, 1)
	require.False(t, swaps[0].HasMakeUp())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryListFiltersByClassDate(t *testing.T) {
	db, mock, cleanup := newSwapRepoMock(t)
	defer cleanup()

	repo := NewSwapRepository(db)
	from := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	classDate := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	// The window matches the class date or the make-up date.
	mock.ExpectQuery(regexp.QuoteMeta("(s.class_date >= $1 AND s.class_date < $2) OR EXISTS (SELECT 1 FROM make_up_sessions m WHERE m.swap_request_id = s.id AND m.date >= $1 AND m.date < $2)")).
		WithArgs(from, to).
		WillReturnRows(swapRows().AddRow(
			"swap-1", "prof-a", "prof-b", "slot-1", classDate, "congresso", "APPROVED",
			time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC), nil, nil,
			"Ana Lima", "Bruno Souza", "Algoritmos", "TSI 2024.1",
			"MON", "08:00", "10:00",
		))
	mock.ExpectQuery(regexp.QuoteMeta("FROM make_up_sessions WHERE swap_request_id = ANY")).
		WithArgs(pq.Array([]string{"swap-1"})).
		WillReturnRows(sqlmock.NewRows([]string{"id", "swap_request_id", "date", "note", "created_at"}))

	swaps, err := repo.List(context.Background(), models.SwapFilter{
		ClassDateFrom: &from,
		ClassDateTo:   &to,
	})
	require.NoError(t, err)
	require.Len(t, swaps, 1)
	require.Equal(t, "swap-1", swaps[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryUpdateStatusGuard(t *testing.T) {
	db, mock, cleanup := newSwapRepoMock(t)
	defer cleanup()

	repo := NewSwapRepository(db)
	decidedAt := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE swap_requests")).
		WithArgs("APPROVED", "user-b", decidedAt, "swap-1", "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatus(context.Background(), UpdateSwapStatusParams{
		ID:           "swap-1",
		Status:       models.SwapStatusApproved,
		ExpectStatus: []models.SwapStatus{models.SwapStatusPending},
		DecidedBy:    "user-b",
		DecidedAt:    decidedAt,
	}))

	// The guard misses when the row changed status concurrently.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE swap_requests")).
		WithArgs("CANCELLED", "user-a", decidedAt, "swap-1", "PENDING", "APPROVED").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateStatus(context.Background(), UpdateSwapStatusParams{
		ID:           "swap-1",
		Status:       models.SwapStatusCancelled,
		ExpectStatus: []models.SwapStatus{models.SwapStatusPending, models.SwapStatusApproved},
		DecidedBy:    "user-a",
		DecidedAt:    decidedAt,
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryUpdateStatusRequiresGuard(t *testing.T) {
	db, _, cleanup := newSwapRepoMock(t)
	defer cleanup()

	repo := NewSwapRepository(db)
	err := repo.UpdateStatus(context.Background(), UpdateSwapStatusParams{ID: "swap-1", Status: models.SwapStatusApproved})
	require.Error(t, err)
}

func TestSwapRepositoryCreateMakeUpDuplicate(t *testing.T) {
	db, mock, cleanup := newSwapRepoMock(t)
	defer cleanup()

	repo := NewSwapRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO make_up_sessions")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.CreateMakeUp(context.Background(), &models.MakeUpSession{
		SwapRequestID: "swap-1",
		Date:          time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, ErrDuplicateMakeUp)
	require.NoError(t, mock.ExpectationsWereMet())
}
