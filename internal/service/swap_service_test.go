package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ifsertao/permuta-api/internal/dto"
	"github.com/ifsertao/permuta-api/internal/models"
	"github.com/ifsertao/permuta-api/internal/repository"
	appErrors "github.com/ifsertao/permuta-api/pkg/errors"
)

type swapRepoStub struct {
	swaps   map[string]*models.SwapRequest
	makeUps map[string]*models.MakeUpSession
	filter  models.SwapFilter

	// Read paths join in display names the way the SQL select does.
	professorNames map[string]string
	slotsByID      map[string]*models.ScheduleSlot
}

func newSwapRepoStub() *swapRepoStub {
	return &swapRepoStub{
		swaps:   make(map[string]*models.SwapRequest),
		makeUps: make(map[string]*models.MakeUpSession),
	}
}

func (s *swapRepoStub) hydrate(swap *models.SwapRequest) {
	swap.RequesterName = s.professorNames[swap.RequesterID]
	swap.SubstituteName = s.professorNames[swap.SubstituteID]
	if slot, ok := s.slotsByID[swap.SlotID]; ok {
		swap.DisciplineName = slot.DisciplineName
		swap.ClassCode = slot.ClassCode
		swap.SlotWeekday = slot.Weekday
		swap.SlotStartTime = slot.StartTime
		swap.SlotEndTime = slot.EndTime
	}
}

func (s *swapRepoStub) Create(ctx context.Context, swap *models.SwapRequest) error {
	if swap.ID == "" {
		swap.ID = uuid.NewString()
	}
	stored := *swap
	s.swaps[swap.ID] = &stored
	return nil
}

func (s *swapRepoStub) GetByID(ctx context.Context, id string) (*models.SwapRequest, error) {
	swap, ok := s.swaps[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *swap
	s.hydrate(&copied)
	if makeUp, ok := s.makeUps[id]; ok {
		m := *makeUp
		copied.MakeUp = &m
	}
	return &copied, nil
}

func (s *swapRepoStub) List(ctx context.Context, filter models.SwapFilter) ([]models.SwapRequest, error) {
	s.filter = filter
	result := make([]models.SwapRequest, 0, len(s.swaps))
	for id, swap := range s.swaps {
		copied := *swap
		s.hydrate(&copied)
		if makeUp, ok := s.makeUps[id]; ok {
			m := *makeUp
			copied.MakeUp = &m
		}
		result = append(result, copied)
	}
	return result, nil
}

func (s *swapRepoStub) UpdateStatus(ctx context.Context, params repository.UpdateSwapStatusParams) error {
	swap, ok := s.swaps[params.ID]
	if !ok {
		return sql.ErrNoRows
	}
	matched := false
	for _, expected := range params.ExpectStatus {
		if swap.Status == expected {
			matched = true
			break
		}
	}
	if !matched {
		return sql.ErrNoRows
	}
	swap.Status = params.Status
	swap.DecidedBy = &params.DecidedBy
	swap.DecidedAt = &params.DecidedAt
	return nil
}

func (s *swapRepoStub) CreateMakeUp(ctx context.Context, makeUp *models.MakeUpSession) error {
	if _, exists := s.makeUps[makeUp.SwapRequestID]; exists {
		return repository.ErrDuplicateMakeUp
	}
	if makeUp.ID == "" {
		makeUp.ID = uuid.NewString()
	}
	stored := *makeUp
	s.makeUps[makeUp.SwapRequestID] = &stored
	return nil
}

func (s *swapRepoStub) GetMakeUp(ctx context.Context, swapID string) (*models.MakeUpSession, error) {
	makeUp, ok := s.makeUps[swapID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *makeUp
	return &copied, nil
}

type slotFinderStub struct {
	slots map[string]*models.ScheduleSlot
}

func (s *slotFinderStub) FindByID(ctx context.Context, id string) (*models.ScheduleSlot, error) {
	slot, ok := s.slots[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *slot
	return &copied, nil
}

type professorStub struct {
	byID     map[string]*models.Professor
	byUserID map[string]*models.Professor
}

func (p *professorStub) FindByID(ctx context.Context, id string) (*models.Professor, error) {
	professor, ok := p.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *professor
	return &copied, nil
}

func (p *professorStub) FindByUserID(ctx context.Context, userID string) (*models.Professor, error) {
	professor, ok := p.byUserID[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *professor
	return &copied, nil
}

type eventRecorder struct {
	events []SwapEvent
	err    error
}

func (r *eventRecorder) HandleSwapEvent(ctx context.Context, event SwapEvent) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

type swapFixture struct {
	repo       *swapRepoStub
	slots      *slotFinderStub
	professors *professorStub
	consumer   *eventRecorder
	svc        *SwapService

	requester  *models.Professor
	substitute *models.Professor
	slot       *models.ScheduleSlot
}

func newSwapFixture() *swapFixture {
	requester := &models.Professor{ID: "prof-a", UserID: "user-a", FullName: "Ana Lima", Email: "ana@example.edu"}
	substitute := &models.Professor{ID: "prof-b", UserID: "user-b", FullName: "Bruno Souza", Email: "bruno@example.edu"}
	slot := &models.ScheduleSlot{
		ID:             "slot-1",
		ProfessorID:    requester.ID,
		Weekday:        models.WeekdayMonday,
		StartTime:      "08:00",
		EndTime:        "10:00",
		DisciplineName: "Algoritmos",
		ClassCode:      "TSI 2024.1",
	}

	repo := newSwapRepoStub()
	repo.professorNames = map[string]string{
		requester.ID:  requester.FullName,
		substitute.ID: substitute.FullName,
	}
	repo.slotsByID = map[string]*models.ScheduleSlot{slot.ID: slot}
	slots := &slotFinderStub{slots: map[string]*models.ScheduleSlot{slot.ID: slot}}
	professors := &professorStub{
		byID:     map[string]*models.Professor{requester.ID: requester, substitute.ID: substitute},
		byUserID: map[string]*models.Professor{requester.UserID: requester, substitute.UserID: substitute},
	}
	consumer := &eventRecorder{}
	svc := NewSwapService(repo, slots, professors, consumer, nil, nil)

	return &swapFixture{
		repo:       repo,
		slots:      slots,
		professors: professors,
		consumer:   consumer,
		svc:        svc,
		requester:  requester,
		substitute: substitute,
		slot:       slot,
	}
}

func requesterClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-a", Role: models.RoleProfessor}
}

func substituteClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-b", Role: models.RoleProfessor}
}

func coordinatorClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-c", Role: models.RoleCoordinator}
}

func createRequest() dto.CreateSwapRequest {
	return dto.CreateSwapRequest{
		SlotID:       "slot-1",
		SubstituteID: "prof-b",
		ClassDate:    "2026-03-09",
		Reason:       "congresso",
	}
}

func TestSwapServiceCreate(t *testing.T) {
	f := newSwapFixture()

	swap, err := f.svc.Create(context.Background(), createRequest(), requesterClaims())
	require.NoError(t, err)
	require.Equal(t, models.SwapStatusPending, swap.Status)
	require.Equal(t, f.requester.ID, swap.RequesterID)
	require.Equal(t, f.substitute.ID, swap.SubstituteID)
	require.Len(t, f.consumer.events, 1)
	require.Equal(t, EventSwapRequested, f.consumer.events[0].Type)
}

func TestSwapServiceCreateRejectsSelfSubstitution(t *testing.T) {
	f := newSwapFixture()
	req := createRequest()
	req.SubstituteID = f.requester.ID

	_, err := f.svc.Create(context.Background(), req, requesterClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	require.Empty(t, f.consumer.events)
}

func TestSwapServiceCreateRejectsForeignSlot(t *testing.T) {
	f := newSwapFixture()

	// The substitute does not own slot-1, so for them it reads as absent.
	_, err := f.svc.Create(context.Background(), createRequest(), substituteClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSwapServiceConfirmRequiresMakeUp(t *testing.T) {
	f := newSwapFixture()
	swap, err := f.svc.Create(context.Background(), createRequest(), requesterClaims())
	require.NoError(t, err)

	_, err = f.svc.Confirm(context.Background(), swap.ID, substituteClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrMissingMakeUp.Code, appErrors.FromError(err).Code)

	_, err = f.svc.RegisterMakeUp(context.Background(), swap.ID, dto.RegisterMakeUpRequest{Date: "2026-03-16"}, requesterClaims())
	require.NoError(t, err)

	result, err := f.svc.Confirm(context.Background(), swap.ID, substituteClaims())
	require.NoError(t, err)
	require.True(t, result.Changed)
	require.Equal(t, string(models.SwapStatusApproved), result.Status)
}

func TestSwapServiceConfirmIsIdempotent(t *testing.T) {
	f := newSwapFixture()
	swap, _ := f.svc.Create(context.Background(), createRequest(), requesterClaims())
	_, err := f.svc.RegisterMakeUp(context.Background(), swap.ID, dto.RegisterMakeUpRequest{Date: "2026-03-16"}, requesterClaims())
	require.NoError(t, err)
	_, err = f.svc.Confirm(context.Background(), swap.ID, substituteClaims())
	require.NoError(t, err)

	eventsBefore := len(f.consumer.events)
	result, err := f.svc.Confirm(context.Background(), swap.ID, substituteClaims())
	require.NoError(t, err)
	require.False(t, result.Changed)
	require.Len(t, f.consumer.events, eventsBefore)
}

func TestSwapServiceConfirmOnlyBySubstitute(t *testing.T) {
	f := newSwapFixture()
	swap, _ := f.svc.Create(context.Background(), createRequest(), requesterClaims())
	_, err := f.svc.RegisterMakeUp(context.Background(), swap.ID, dto.RegisterMakeUpRequest{Date: "2026-03-16"}, requesterClaims())
	require.NoError(t, err)

	_, err = f.svc.Confirm(context.Background(), swap.ID, requesterClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSwapServiceConfirmAfterCancel(t *testing.T) {
	f := newSwapFixture()
	swap, _ := f.svc.Create(context.Background(), createRequest(), requesterClaims())
	_, err := f.svc.Cancel(context.Background(), swap.ID, requesterClaims())
	require.NoError(t, err)

	_, err = f.svc.Confirm(context.Background(), swap.ID, substituteClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestSwapServiceRegisterMakeUpOnlyOnce(t *testing.T) {
	f := newSwapFixture()
	swap, _ := f.svc.Create(context.Background(), createRequest(), requesterClaims())

	_, err := f.svc.RegisterMakeUp(context.Background(), swap.ID, dto.RegisterMakeUpRequest{Date: "2026-03-16"}, requesterClaims())
	require.NoError(t, err)

	_, err = f.svc.RegisterMakeUp(context.Background(), swap.ID, dto.RegisterMakeUpRequest{Date: "2026-03-17"}, requesterClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrAlreadyExists.Code, appErrors.FromError(err).Code)
}

func TestSwapServiceRegisterMakeUpOnlyByRequester(t *testing.T) {
	f := newSwapFixture()
	swap, _ := f.svc.Create(context.Background(), createRequest(), requesterClaims())

	_, err := f.svc.RegisterMakeUp(context.Background(), swap.ID, dto.RegisterMakeUpRequest{Date: "2026-03-16"}, substituteClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSwapServiceRegisterMakeUpAfterCancel(t *testing.T) {
	f := newSwapFixture()
	swap, _ := f.svc.Create(context.Background(), createRequest(), requesterClaims())
	_, err := f.svc.Cancel(context.Background(), swap.ID, requesterClaims())
	require.NoError(t, err)

	_, err = f.svc.RegisterMakeUp(context.Background(), swap.ID, dto.RegisterMakeUpRequest{Date: "2026-03-16"}, requesterClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestSwapServiceCancelIsIdempotent(t *testing.T) {
	f := newSwapFixture()
	swap, _ := f.svc.Create(context.Background(), createRequest(), requesterClaims())

	first, err := f.svc.Cancel(context.Background(), swap.ID, requesterClaims())
	require.NoError(t, err)
	require.True(t, first.Changed)

	eventsBefore := len(f.consumer.events)
	second, err := f.svc.Cancel(context.Background(), swap.ID, requesterClaims())
	require.NoError(t, err)
	require.False(t, second.Changed)
	require.Len(t, f.consumer.events, eventsBefore)
}

func TestSwapServiceCancelAfterApproval(t *testing.T) {
	f := newSwapFixture()
	swap, _ := f.svc.Create(context.Background(), createRequest(), requesterClaims())
	_, err := f.svc.RegisterMakeUp(context.Background(), swap.ID, dto.RegisterMakeUpRequest{Date: "2026-03-16"}, requesterClaims())
	require.NoError(t, err)
	_, err = f.svc.Confirm(context.Background(), swap.ID, substituteClaims())
	require.NoError(t, err)

	result, err := f.svc.Cancel(context.Background(), swap.ID, requesterClaims())
	require.NoError(t, err)
	require.True(t, result.Changed)
	require.Equal(t, string(models.SwapStatusCancelled), result.Status)
}

func TestSwapServiceCancelOnlyByRequester(t *testing.T) {
	f := newSwapFixture()
	swap, _ := f.svc.Create(context.Background(), createRequest(), requesterClaims())

	_, err := f.svc.Cancel(context.Background(), swap.ID, substituteClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSwapServiceListScopesProfessors(t *testing.T) {
	f := newSwapFixture()
	_, err := f.svc.Create(context.Background(), createRequest(), requesterClaims())
	require.NoError(t, err)

	_, err = f.svc.List(context.Background(), dto.SwapQuery{}, requesterClaims())
	require.NoError(t, err)
	require.Equal(t, f.requester.ID, f.repo.filter.InvolvedProfessorID)

	_, err = f.svc.List(context.Background(), dto.SwapQuery{}, coordinatorClaims())
	require.NoError(t, err)
	require.Empty(t, f.repo.filter.InvolvedProfessorID)
}

func TestSwapServiceReadsCarryDisplayFields(t *testing.T) {
	f := newSwapFixture()
	created, err := f.svc.Create(context.Background(), createRequest(), requesterClaims())
	require.NoError(t, err)

	swaps, err := f.svc.List(context.Background(), dto.SwapQuery{}, coordinatorClaims())
	require.NoError(t, err)
	require.Len(t, swaps, 1)
	require.Equal(t, "Ana Lima", swaps[0].RequesterName)
	require.Equal(t, "Bruno Souza", swaps[0].SubstituteName)
	require.Equal(t, "Algoritmos", swaps[0].DisciplineName)
	require.Equal(t, "TSI 2024.1", swaps[0].ClassCode)

	swap, err := f.svc.Get(context.Background(), created.ID, coordinatorClaims())
	require.NoError(t, err)
	require.Equal(t, "Ana Lima", swap.RequesterName)
	require.Equal(t, models.WeekdayMonday, swap.SlotWeekday)
	require.Equal(t, "08:00", swap.SlotStartTime)
}

func TestSwapServiceGetHidesForeignSwaps(t *testing.T) {
	f := newSwapFixture()
	swap, _ := f.svc.Create(context.Background(), createRequest(), requesterClaims())

	outsider := &models.Professor{ID: "prof-x", UserID: "user-x", FullName: "Carla Dias"}
	f.professors.byID[outsider.ID] = outsider
	f.professors.byUserID[outsider.UserID] = outsider

	_, err := f.svc.Get(context.Background(), swap.ID, &models.JWTClaims{UserID: "user-x", Role: models.RoleProfessor})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	got, err := f.svc.Get(context.Background(), swap.ID, coordinatorClaims())
	require.NoError(t, err)
	require.Equal(t, swap.ID, got.ID)
}

func TestSwapServiceConsumerFailureSurfaces(t *testing.T) {
	f := newSwapFixture()
	f.consumer.err = context.DeadlineExceeded

	_, err := f.svc.Create(context.Background(), createRequest(), requesterClaims())
	require.Error(t, err)
}

func TestSwapServiceHasMakeUpSession(t *testing.T) {
	f := newSwapFixture()
	swap, _ := f.svc.Create(context.Background(), createRequest(), requesterClaims())

	has, err := f.svc.HasMakeUpSession(context.Background(), swap.ID)
	require.NoError(t, err)
	require.False(t, has)

	_, err = f.svc.RegisterMakeUp(context.Background(), swap.ID, dto.RegisterMakeUpRequest{Date: "2026-03-16"}, requesterClaims())
	require.NoError(t, err)

	has, err = f.svc.HasMakeUpSession(context.Background(), swap.ID)
	require.NoError(t, err)
	require.True(t, has)
}

func TestSwapServiceCreateValidatesDate(t *testing.T) {
	f := newSwapFixture()
	req := createRequest()
	req.ClassDate = "09/03/2026"

	_, err := f.svc.Create(context.Background(), req, requesterClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSwapServiceMakeUpRecordedBeforeEvent(t *testing.T) {
	f := newSwapFixture()
	swap, _ := f.svc.Create(context.Background(), createRequest(), requesterClaims())

	makeUp, err := f.svc.RegisterMakeUp(context.Background(), swap.ID, dto.RegisterMakeUpRequest{Date: "2026-03-16", Note: "sábado letivo"}, requesterClaims())
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), makeUp.Date)

	last := f.consumer.events[len(f.consumer.events)-1]
	require.Equal(t, EventMakeUpRegistered, last.Type)
	require.True(t, last.Swap.HasMakeUp())
}
