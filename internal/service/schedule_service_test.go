package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ifsertao/permuta-api/internal/models"
	"github.com/ifsertao/permuta-api/internal/repository"
	appErrors "github.com/ifsertao/permuta-api/pkg/errors"
)

type scheduleSlotRepoStub struct {
	slots      map[string]*models.ScheduleSlot
	restricted map[string]bool
}

func newScheduleSlotRepoStub() *scheduleSlotRepoStub {
	return &scheduleSlotRepoStub{slots: make(map[string]*models.ScheduleSlot), restricted: make(map[string]bool)}
}

func (s *scheduleSlotRepoStub) Create(ctx context.Context, slot *models.ScheduleSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	stored := *slot
	s.slots[slot.ID] = &stored
	return nil
}

func (s *scheduleSlotRepoStub) FindByID(ctx context.Context, id string) (*models.ScheduleSlot, error) {
	slot, ok := s.slots[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *slot
	return &copied, nil
}

func (s *scheduleSlotRepoStub) List(ctx context.Context, filter models.ScheduleSlotFilter) ([]models.ScheduleSlot, int, error) {
	result := make([]models.ScheduleSlot, 0, len(s.slots))
	for _, slot := range s.slots {
		if filter.ProfessorID != "" && slot.ProfessorID != filter.ProfessorID {
			continue
		}
		result = append(result, *slot)
	}
	return result, len(result), nil
}

func (s *scheduleSlotRepoStub) Update(ctx context.Context, slot *models.ScheduleSlot) error {
	stored := *slot
	s.slots[slot.ID] = &stored
	return nil
}

func (s *scheduleSlotRepoStub) Delete(ctx context.Context, id string) error {
	if s.restricted[id] {
		return repository.ErrRestricted
	}
	delete(s.slots, id)
	return nil
}

type classFinderStub struct {
	classes map[string]*models.Class
}

func (s *classFinderStub) FindByID(ctx context.Context, id string) (*models.Class, error) {
	class, ok := s.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *class
	return &copied, nil
}

type disciplineFinderStub struct {
	disciplines map[string]*models.Discipline
}

func (s *disciplineFinderStub) FindByID(ctx context.Context, id string) (*models.Discipline, error) {
	discipline, ok := s.disciplines[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *discipline
	return &copied, nil
}

func newScheduleFixture() (*ScheduleService, *scheduleSlotRepoStub) {
	repo := newScheduleSlotRepoStub()
	professors := &professorStub{
		byID: map[string]*models.Professor{
			"prof-a": {ID: "prof-a", UserID: "user-a"},
		},
		byUserID: map[string]*models.Professor{
			"user-a": {ID: "prof-a", UserID: "user-a"},
		},
	}
	classes := &classFinderStub{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", Code: "TSI 2024.1"},
	}}
	disciplines := &disciplineFinderStub{disciplines: map[string]*models.Discipline{
		"disc-1": {ID: "disc-1", Name: "Algoritmos"},
	}}
	svc := NewScheduleService(repo, professors, classes, disciplines, NewValidator(), nil)
	return svc, repo
}

func validSlotRequest() ScheduleSlotRequest {
	return ScheduleSlotRequest{
		ProfessorID:  "prof-a",
		DisciplineID: "disc-1",
		ClassID:      "class-1",
		Weekday:      "mon",
		StartTime:    "08:00",
		EndTime:      "10:00",
	}
}

func TestScheduleServiceCreate(t *testing.T) {
	svc, _ := newScheduleFixture()

	slot, err := svc.Create(context.Background(), validSlotRequest())
	require.NoError(t, err)
	require.NotEmpty(t, slot.ID)
	require.Equal(t, models.WeekdayMonday, slot.Weekday)
}

func TestScheduleServiceCreateRejectsBadTimes(t *testing.T) {
	svc, _ := newScheduleFixture()

	req := validSlotRequest()
	req.StartTime = "10:00"
	req.EndTime = "08:00"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	req = validSlotRequest()
	req.StartTime = "8h00"
	_, err = svc.Create(context.Background(), req)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceCreateRejectsUnknownWeekday(t *testing.T) {
	svc, _ := newScheduleFixture()

	req := validSlotRequest()
	req.Weekday = "SUN"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceCreateChecksReferences(t *testing.T) {
	svc, _ := newScheduleFixture()

	req := validSlotRequest()
	req.ProfessorID = "ghost"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	req = validSlotRequest()
	req.DisciplineID = "ghost"
	_, err = svc.Create(context.Background(), req)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	req = validSlotRequest()
	req.ClassID = "ghost"
	_, err = svc.Create(context.Background(), req)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceListMine(t *testing.T) {
	svc, repo := newScheduleFixture()
	repo.slots["slot-1"] = &models.ScheduleSlot{ID: "slot-1", ProfessorID: "prof-a"}
	repo.slots["slot-2"] = &models.ScheduleSlot{ID: "slot-2", ProfessorID: "prof-b"}

	slots, err := svc.ListMine(context.Background(), &models.JWTClaims{UserID: "user-a", Role: models.RoleProfessor})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	require.Equal(t, "slot-1", slots[0].ID)
}

func TestScheduleServiceListMineUnlinkedUser(t *testing.T) {
	svc, _ := newScheduleFixture()

	_, err := svc.ListMine(context.Background(), &models.JWTClaims{UserID: "user-x", Role: models.RoleProfessor})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceUpdate(t *testing.T) {
	svc, _ := newScheduleFixture()
	slot, err := svc.Create(context.Background(), validSlotRequest())
	require.NoError(t, err)

	req := validSlotRequest()
	req.Weekday = "TUE"
	req.StartTime = "14:00"
	req.EndTime = "16:00"
	updated, err := svc.Update(context.Background(), slot.ID, req)
	require.NoError(t, err)
	require.Equal(t, models.WeekdayTuesday, updated.Weekday)
	require.Equal(t, "14:00", updated.StartTime)
}

func TestScheduleServiceDeleteProtected(t *testing.T) {
	svc, repo := newScheduleFixture()
	slot, err := svc.Create(context.Background(), validSlotRequest())
	require.NoError(t, err)
	repo.restricted[slot.ID] = true

	err = svc.Delete(context.Background(), slot.ID)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrProtected.Code, appErrors.FromError(err).Code)
}
