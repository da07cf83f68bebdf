package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ifsertao/permuta-api/internal/dto"
	"github.com/ifsertao/permuta-api/internal/models"
	"github.com/ifsertao/permuta-api/internal/repository"
	appErrors "github.com/ifsertao/permuta-api/pkg/errors"
)

const dateLayout = "2006-01-02"

// SwapEventType enumerates swap lifecycle events.
type SwapEventType string

const (
	EventSwapRequested    SwapEventType = "SWAP_REQUESTED"
	EventMakeUpRegistered SwapEventType = "MAKEUP_REGISTERED"
	EventSwapApproved     SwapEventType = "SWAP_APPROVED"
	EventSwapCancelled    SwapEventType = "SWAP_CANCELLED"
)

// SwapEvent is emitted after a lifecycle transition commits.
type SwapEvent struct {
	Type SwapEventType
	Swap *models.SwapRequest
}

// SwapEventConsumer receives lifecycle events synchronously. A consumer
// error is surfaced to the caller of the triggering operation.
type SwapEventConsumer interface {
	HandleSwapEvent(ctx context.Context, event SwapEvent) error
}

// SwapEventConsumerFunc adapts plain functions to SwapEventConsumer.
type SwapEventConsumerFunc func(ctx context.Context, event SwapEvent) error

// HandleSwapEvent implements SwapEventConsumer.
func (f SwapEventConsumerFunc) HandleSwapEvent(ctx context.Context, event SwapEvent) error {
	return f(ctx, event)
}

type swapStore interface {
	Create(ctx context.Context, swap *models.SwapRequest) error
	GetByID(ctx context.Context, id string) (*models.SwapRequest, error)
	List(ctx context.Context, filter models.SwapFilter) ([]models.SwapRequest, error)
	UpdateStatus(ctx context.Context, params repository.UpdateSwapStatusParams) error
	CreateMakeUp(ctx context.Context, makeUp *models.MakeUpSession) error
	GetMakeUp(ctx context.Context, swapID string) (*models.MakeUpSession, error)
}

type slotFinder interface {
	FindByID(ctx context.Context, id string) (*models.ScheduleSlot, error)
}

type professorResolver interface {
	FindByID(ctx context.Context, id string) (*models.Professor, error)
	FindByUserID(ctx context.Context, userID string) (*models.Professor, error)
}

// SwapService owns the swap request lifecycle: creation, make-up
// registration, substitute confirmation and cancellation, together with
// the authorization and ordering rules between them.
type SwapService struct {
	repo       swapStore
	slots      slotFinder
	professors professorResolver
	consumer   SwapEventConsumer
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
}

// NewSwapService constructs the service. The consumer may be nil in tests.
func NewSwapService(repo swapStore, slots slotFinder, professors professorResolver, consumer SwapEventConsumer, metrics *MetricsService, logger *zap.Logger) *SwapService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SwapService{
		repo:       repo,
		slots:      slots,
		professors: professors,
		consumer:   consumer,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Create opens a new swap request against one of the caller's own slots.
func (s *SwapService) Create(ctx context.Context, req dto.CreateSwapRequest, actor *models.JWTClaims) (*models.SwapRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	requester, err := s.requireProfessor(ctx, actor)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reason is required")
	}
	classDate, err := time.Parse(dateLayout, req.ClassDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class_date must be YYYY-MM-DD")
	}

	slot, err := s.slots.FindByID(ctx, req.SlotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule slot")
	}
	if slot.ProfessorID != requester.ID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule slot not found")
	}

	substitute, err := s.professors.FindByID(ctx, req.SubstituteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "substitute professor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load substitute professor")
	}
	if substitute.ID == requester.ID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "substitute professor must differ from requester")
	}

	swap := &models.SwapRequest{
		RequesterID:  requester.ID,
		SubstituteID: substitute.ID,
		SlotID:       slot.ID,
		ClassDate:    classDate,
		Reason:       strings.TrimSpace(req.Reason),
		Status:       models.SwapStatusPending,
		RequestedAt:  s.now().UTC(),
	}
	if err := s.repo.Create(ctx, swap); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create swap request")
	}
	fillDisplayFields(swap, requester, substitute, slot)
	s.observeTransition("", models.SwapStatusPending)

	if err := s.emit(ctx, SwapEvent{Type: EventSwapRequested, Swap: swap}); err != nil {
		return nil, err
	}
	return swap, nil
}

// RegisterMakeUp registers the make-up session for a swap request. Only the
// requesting professor may call it, at most once, and never after
// cancellation.
func (s *SwapService) RegisterMakeUp(ctx context.Context, swapID string, req dto.RegisterMakeUpRequest, actor *models.JWTClaims) (*models.MakeUpSession, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	professor, err := s.requireProfessor(ctx, actor)
	if err != nil {
		return nil, err
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}

	swap, err := s.load(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if swap.RequesterID != professor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the requesting professor may register the make-up session")
	}
	if swap.Status == models.SwapStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "swap request is cancelled")
	}
	if swap.HasMakeUp() {
		return nil, appErrors.Clone(appErrors.ErrAlreadyExists, "make-up session already registered")
	}

	makeUp := &models.MakeUpSession{
		SwapRequestID: swap.ID,
		Date:          date,
		Note:          strings.TrimSpace(req.Note),
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.CreateMakeUp(ctx, makeUp); err != nil {
		if errors.Is(err, repository.ErrDuplicateMakeUp) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyExists, "make-up session already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register make-up session")
	}
	swap.MakeUp = makeUp

	if err := s.emit(ctx, SwapEvent{Type: EventMakeUpRegistered, Swap: swap}); err != nil {
		return nil, err
	}
	return makeUp, nil
}

// Confirm approves the swap as the substitute professor. Confirmation is
// blocked until the make-up session exists; confirming an already approved
// request is an informational no-op.
func (s *SwapService) Confirm(ctx context.Context, swapID string, actor *models.JWTClaims) (*dto.SwapActionResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	professor, err := s.requireProfessor(ctx, actor)
	if err != nil {
		return nil, err
	}
	swap, err := s.load(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if swap.SubstituteID != professor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the substitute professor may confirm the swap")
	}
	if swap.Status == models.SwapStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "swap request was cancelled and can no longer be confirmed")
	}
	if swap.Status == models.SwapStatusApproved {
		return &dto.SwapActionResult{Changed: false, Status: string(swap.Status), Message: "swap request already approved"}, nil
	}
	if !swap.HasMakeUp() {
		return nil, appErrors.Clone(appErrors.ErrMissingMakeUp, "the requesting professor has not registered the make-up session yet")
	}

	now := s.now().UTC()
	err = s.repo.UpdateStatus(ctx, repository.UpdateSwapStatusParams{
		ID:           swap.ID,
		Status:       models.SwapStatusApproved,
		ExpectStatus: []models.SwapStatus{models.SwapStatusPending},
		DecidedBy:    actor.UserID,
		DecidedAt:    now,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race; re-read to classify.
			return s.classifyConfirmConflict(ctx, swap.ID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve swap request")
	}

	swap.Status = models.SwapStatusApproved
	swap.DecidedAt = &now
	swap.DecidedBy = &actor.UserID
	s.observeTransition(models.SwapStatusPending, models.SwapStatusApproved)

	if err := s.emit(ctx, SwapEvent{Type: EventSwapApproved, Swap: swap}); err != nil {
		return nil, err
	}
	return &dto.SwapActionResult{Changed: true, Status: string(swap.Status), Message: "swap request approved"}, nil
}

func (s *SwapService) classifyConfirmConflict(ctx context.Context, swapID string) (*dto.SwapActionResult, error) {
	current, err := s.load(ctx, swapID)
	if err != nil {
		return nil, err
	}
	switch current.Status {
	case models.SwapStatusApproved:
		return &dto.SwapActionResult{Changed: false, Status: string(current.Status), Message: "swap request already approved"}, nil
	case models.SwapStatusCancelled:
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "swap request was cancelled and can no longer be confirmed")
	default:
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "swap request changed state; retry the confirmation")
	}
}

// Cancel cancels the swap as the requesting professor. Cancelling an
// already cancelled request is an informational no-op; no second round of
// notifications goes out.
func (s *SwapService) Cancel(ctx context.Context, swapID string, actor *models.JWTClaims) (*dto.SwapActionResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	professor, err := s.requireProfessor(ctx, actor)
	if err != nil {
		return nil, err
	}
	swap, err := s.load(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if swap.RequesterID != professor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the requesting professor may cancel the swap")
	}
	if swap.Status == models.SwapStatusCancelled {
		return &dto.SwapActionResult{Changed: false, Status: string(swap.Status), Message: "swap request already cancelled"}, nil
	}

	previous := swap.Status
	now := s.now().UTC()
	err = s.repo.UpdateStatus(ctx, repository.UpdateSwapStatusParams{
		ID:     swap.ID,
		Status: models.SwapStatusCancelled,
		// Cancellation of an approved request is still accepted; see the
		// coordination guideline on late withdrawals.
		ExpectStatus: []models.SwapStatus{models.SwapStatusPending, models.SwapStatusApproved},
		DecidedBy:    actor.UserID,
		DecidedAt:    now,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			current, loadErr := s.load(ctx, swap.ID)
			if loadErr != nil {
				return nil, loadErr
			}
			if current.Status == models.SwapStatusCancelled {
				return &dto.SwapActionResult{Changed: false, Status: string(current.Status), Message: "swap request already cancelled"}, nil
			}
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "swap request changed state; retry the cancellation")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel swap request")
	}

	swap.Status = models.SwapStatusCancelled
	swap.DecidedAt = &now
	swap.DecidedBy = &actor.UserID
	s.observeTransition(previous, models.SwapStatusCancelled)

	if err := s.emit(ctx, SwapEvent{Type: EventSwapCancelled, Swap: swap}); err != nil {
		return nil, err
	}
	return &dto.SwapActionResult{Changed: true, Status: string(swap.Status), Message: "swap request cancelled"}, nil
}

// List returns the swap requests visible to the caller: coordinators see
// every request, professors only those where they are requester or
// substitute.
func (s *SwapService) List(ctx context.Context, query dto.SwapQuery, actor *models.JWTClaims) ([]models.SwapRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.SwapFilter{}
	if query.Status != "" {
		for _, part := range strings.Split(query.Status, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			filter.Status = append(filter.Status, models.SwapStatus(part))
		}
	}
	if query.From != "" {
		from, err := time.Parse(dateLayout, query.From)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD")
		}
		filter.From = &from
	}
	if query.To != "" {
		to, err := time.Parse(dateLayout, query.To)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD")
		}
		filter.To = &to
	}
	if query.Size > 0 {
		filter.Limit = query.Size
		if query.Page > 1 {
			filter.Offset = (query.Page - 1) * query.Size
		}
	}

	if !actor.IsCoordinator() {
		professor, err := s.requireProfessor(ctx, actor)
		if err != nil {
			return nil, err
		}
		filter.InvolvedProfessorID = professor.ID
	}

	swaps, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list swap requests")
	}
	return swaps, nil
}

// Get returns a swap request, enforcing the same visibility rule as List.
// A request outside the caller's visibility reads as not found.
func (s *SwapService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.SwapRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	swap, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsCoordinator() {
		return swap, nil
	}
	professor, err := s.requireProfessor(ctx, actor)
	if err != nil {
		return nil, err
	}
	if swap.RequesterID != professor.ID && swap.SubstituteID != professor.ID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "swap request not found")
	}
	return swap, nil
}

// HasMakeUpSession reports whether a make-up session is attached to the
// swap request.
func (s *SwapService) HasMakeUpSession(ctx context.Context, swapID string) (bool, error) {
	_, err := s.repo.GetMakeUp(ctx, swapID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check make-up session")
	}
	return true, nil
}

func (s *SwapService) load(ctx context.Context, id string) (*models.SwapRequest, error) {
	swap, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "swap request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load swap request")
	}
	return swap, nil
}

func (s *SwapService) requireProfessor(ctx context.Context, actor *models.JWTClaims) (*models.Professor, error) {
	professor, err := s.professors.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "your user is not linked to a professor record yet")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve professor record")
	}
	return professor, nil
}

func (s *SwapService) emit(ctx context.Context, event SwapEvent) error {
	if s.consumer == nil {
		return nil
	}
	if err := s.consumer.HandleSwapEvent(ctx, event); err != nil {
		s.logger.Error("swap event dispatch failed",
			zap.String("event", string(event.Type)),
			zap.String("swap_id", event.Swap.ID),
			zap.Error(err),
		)
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record notifications for the operation")
	}
	return nil
}

func (s *SwapService) observeTransition(from, to models.SwapStatus) {
	if s.metrics != nil {
		s.metrics.RecordSwapTransition(string(from), string(to))
	}
}

func fillDisplayFields(swap *models.SwapRequest, requester, substitute *models.Professor, slot *models.ScheduleSlot) {
	swap.RequesterName = requester.FullName
	swap.SubstituteName = substitute.FullName
	swap.DisciplineName = slot.DisciplineName
	swap.ClassCode = slot.ClassCode
	swap.SlotWeekday = slot.Weekday
	swap.SlotStartTime = slot.StartTime
	swap.SlotEndTime = slot.EndTime
}
