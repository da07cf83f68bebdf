package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ifsertao/permuta-api/internal/dto"
	"github.com/ifsertao/permuta-api/internal/models"
	appErrors "github.com/ifsertao/permuta-api/pkg/errors"
)

type calendarSlotListerStub struct {
	slots  []models.ScheduleSlot
	filter models.ScheduleSlotFilter
}

func (s *calendarSlotListerStub) List(ctx context.Context, filter models.ScheduleSlotFilter) ([]models.ScheduleSlot, int, error) {
	s.filter = filter
	result := make([]models.ScheduleSlot, 0, len(s.slots))
	for _, slot := range s.slots {
		if filter.ProfessorID != "" && slot.ProfessorID != filter.ProfessorID {
			continue
		}
		result = append(result, slot)
	}
	return result, len(result), nil
}

type calendarSwapListerStub struct {
	swaps  []models.SwapRequest
	filter models.SwapFilter
}

func (s *calendarSwapListerStub) List(ctx context.Context, filter models.SwapFilter) ([]models.SwapRequest, error) {
	s.filter = filter
	result := make([]models.SwapRequest, 0, len(s.swaps))
	for _, swap := range s.swaps {
		if filter.InvolvedProfessorID != "" &&
			swap.RequesterID != filter.InvolvedProfessorID && swap.SubstituteID != filter.InvolvedProfessorID {
			continue
		}
		if filter.From != nil && swap.RequestedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !swap.RequestedAt.Before(*filter.To) {
			continue
		}
		if filter.ClassDateFrom != nil && filter.ClassDateTo != nil {
			classInWindow := inWindow(swap.ClassDate, *filter.ClassDateFrom, *filter.ClassDateTo)
			makeUpInWindow := swap.MakeUp != nil && inWindow(swap.MakeUp.Date, *filter.ClassDateFrom, *filter.ClassDateTo)
			if !classInWindow && !makeUpInWindow {
				continue
			}
		}
		result = append(result, swap)
	}
	return result, nil
}

func inWindow(date, from, to time.Time) bool {
	return !date.Before(from) && date.Before(to)
}

func newCalendarFixture() (*CalendarService, *calendarSlotListerStub, *calendarSwapListerStub) {
	slots := &calendarSlotListerStub{slots: []models.ScheduleSlot{
		{
			ID:             "slot-1",
			ProfessorID:    "prof-a",
			Weekday:        models.WeekdayMonday,
			StartTime:      "08:00",
			EndTime:        "10:00",
			DisciplineName: "Algoritmos",
			ClassCode:      "TSI 2024.1",
		},
	}}
	swaps := &calendarSwapListerStub{}
	professors := &professorStub{
		byUserID: map[string]*models.Professor{
			"user-a": {ID: "prof-a", UserID: "user-a", FullName: "Ana Lima"},
		},
	}
	svc := NewCalendarService(slots, swaps, professors, nil)
	// Tuesday 2026-03-03; the default window starts at that midnight.
	svc.now = func() time.Time { return time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC) }
	return svc, slots, swaps
}

func TestCalendarExpandsWeeklySlots(t *testing.T) {
	svc, _, _ := newCalendarFixture()

	// 09..15/03 contains exactly one Monday.
	events, err := svc.Events(context.Background(), dto.CalendarQuery{From: "2026-03-09", To: "2026-03-15"}, coordinatorClaims())
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "2026-03-09", events[0].Date)
	require.Equal(t, "class", events[0].Kind)
	require.Equal(t, "Algoritmos (TSI 2024.1)", events[0].Title)
	require.Equal(t, "#3788d8", events[0].Color)
}

func TestCalendarOverlaysSwaps(t *testing.T) {
	svc, _, swaps := newCalendarFixture()
	swaps.swaps = []models.SwapRequest{{
		ID:             "swap-1",
		SlotID:         "slot-1",
		Status:         models.SwapStatusApproved,
		ClassDate:      time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		DisciplineName: "Algoritmos",
		ClassCode:      "TSI 2024.1",
		SubstituteName: "Bruno Souza",
	}}

	events, err := svc.Events(context.Background(), dto.CalendarQuery{From: "2026-03-09", To: "2026-03-15"}, coordinatorClaims())
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "swap", events[0].Kind)
	require.Equal(t, "swap-1", events[0].SwapID)
	require.Equal(t, "Algoritmos (TSI 2024.1) - permuta com Bruno Souza", events[0].Title)
	require.Equal(t, "#10b981", events[0].Color)
}

func TestCalendarIncludesMakeUpSessions(t *testing.T) {
	svc, _, swaps := newCalendarFixture()
	swaps.swaps = []models.SwapRequest{{
		ID:             "swap-1",
		SlotID:         "slot-1",
		Status:         models.SwapStatusApproved,
		ClassDate:      time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		DisciplineName: "Algoritmos",
		ClassCode:      "TSI 2024.1",
		SubstituteName: "Bruno Souza",
		MakeUp: &models.MakeUpSession{
			SwapRequestID: "swap-1",
			Date:          time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		},
	}}

	events, err := svc.Events(context.Background(), dto.CalendarQuery{From: "2026-03-09", To: "2026-03-15"}, coordinatorClaims())
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "make_up", events[1].Kind)
	require.Equal(t, "2026-03-14", events[1].Date)
	require.Equal(t, "Reposição: Algoritmos (TSI 2024.1)", events[1].Title)
}

func TestCalendarShowsSwapsRequestedBeforeWindow(t *testing.T) {
	svc, _, swaps := newCalendarFixture()
	// Requested weeks ahead of the class date it affects.
	swaps.swaps = []models.SwapRequest{{
		ID:             "swap-1",
		SlotID:         "slot-1",
		RequesterID:    "prof-a",
		SubstituteID:   "prof-b",
		Status:         models.SwapStatusApproved,
		RequestedAt:    time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC),
		ClassDate:      time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		DisciplineName: "Algoritmos",
		ClassCode:      "TSI 2024.1",
		SubstituteName: "Bruno Souza",
		MakeUp: &models.MakeUpSession{
			SwapRequestID: "swap-1",
			Date:          time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		},
	}}

	events, err := svc.Events(context.Background(), dto.CalendarQuery{From: "2026-03-09", To: "2026-03-15"}, coordinatorClaims())
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "swap", events[0].Kind)
	require.Equal(t, "make_up", events[1].Kind)
	require.Nil(t, swaps.filter.From)
	require.Nil(t, swaps.filter.To)
	require.NotNil(t, swaps.filter.ClassDateFrom)
	require.NotNil(t, swaps.filter.ClassDateTo)
}

func TestCalendarShowsMakeUpWhenClassDateOutsideWindow(t *testing.T) {
	svc, _, swaps := newCalendarFixture()
	swaps.swaps = []models.SwapRequest{{
		ID:             "swap-1",
		SlotID:         "slot-1",
		Status:         models.SwapStatusApproved,
		ClassDate:      time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		DisciplineName: "Algoritmos",
		ClassCode:      "TSI 2024.1",
		MakeUp: &models.MakeUpSession{
			SwapRequestID: "swap-1",
			Date:          time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		},
	}}

	events, err := svc.Events(context.Background(), dto.CalendarQuery{From: "2026-03-09", To: "2026-03-15"}, coordinatorClaims())
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "class", events[0].Kind)
	require.Equal(t, "make_up", events[1].Kind)
	require.Equal(t, "2026-03-14", events[1].Date)
}

func TestCalendarSkipsMakeUpOfCancelledSwap(t *testing.T) {
	svc, _, swaps := newCalendarFixture()
	swaps.swaps = []models.SwapRequest{{
		ID:        "swap-1",
		SlotID:    "slot-1",
		Status:    models.SwapStatusCancelled,
		ClassDate: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		MakeUp: &models.MakeUpSession{
			SwapRequestID: "swap-1",
			Date:          time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		},
	}}

	events, err := svc.Events(context.Background(), dto.CalendarQuery{From: "2026-03-09", To: "2026-03-15"}, coordinatorClaims())
	require.NoError(t, err)
	for _, event := range events {
		require.NotEqual(t, "make_up", event.Kind)
	}
}

func TestCalendarScopesProfessors(t *testing.T) {
	svc, slots, swaps := newCalendarFixture()

	_, err := svc.Events(context.Background(), dto.CalendarQuery{}, requesterClaims())
	require.NoError(t, err)
	require.Equal(t, "prof-a", slots.filter.ProfessorID)
	require.Equal(t, "prof-a", swaps.filter.InvolvedProfessorID)

	_, err = svc.Events(context.Background(), dto.CalendarQuery{}, coordinatorClaims())
	require.NoError(t, err)
	require.Empty(t, slots.filter.ProfessorID)
}

func TestCalendarWindowValidation(t *testing.T) {
	svc, _, _ := newCalendarFixture()

	_, err := svc.Events(context.Background(), dto.CalendarQuery{From: "2026-03-15", To: "2026-03-09"}, coordinatorClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Events(context.Background(), dto.CalendarQuery{From: "2026-01-01", To: "2026-12-31"}, coordinatorClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Events(context.Background(), dto.CalendarQuery{From: "09/03/2026"}, coordinatorClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
