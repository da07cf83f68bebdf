package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ifsertao/permuta-api/internal/models"
	"github.com/ifsertao/permuta-api/internal/repository"
	appErrors "github.com/ifsertao/permuta-api/pkg/errors"
)

const slotTimeLayout = "15:04"

type scheduleSlotRepository interface {
	Create(ctx context.Context, slot *models.ScheduleSlot) error
	FindByID(ctx context.Context, id string) (*models.ScheduleSlot, error)
	List(ctx context.Context, filter models.ScheduleSlotFilter) ([]models.ScheduleSlot, int, error)
	Update(ctx context.Context, slot *models.ScheduleSlot) error
	Delete(ctx context.Context, id string) error
}

type slotClassFinder interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type slotDisciplineFinder interface {
	FindByID(ctx context.Context, id string) (*models.Discipline, error)
}

// ScheduleSlotRequest is the payload for creating or updating a slot.
type ScheduleSlotRequest struct {
	ProfessorID  string `json:"professor_id" validate:"required"`
	DisciplineID string `json:"discipline_id" validate:"required"`
	ClassID      string `json:"class_id" validate:"required"`
	Weekday      string `json:"weekday" validate:"required"`
	StartTime    string `json:"start_time" validate:"required"`
	EndTime      string `json:"end_time" validate:"required"`
}

// ScheduleService manages the recurring weekly schedule.
type ScheduleService struct {
	repo        scheduleSlotRepository
	professors  professorResolver
	classes     slotClassFinder
	disciplines slotDisciplineFinder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewScheduleService constructs the service.
func NewScheduleService(repo scheduleSlotRepository, professors professorResolver, classes slotClassFinder, disciplines slotDisciplineFinder, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		repo:        repo,
		professors:  professors,
		classes:     classes,
		disciplines: disciplines,
		validator:   validate,
		logger:      logger,
	}
}

// List returns schedule slots with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleSlotFilter) ([]models.ScheduleSlot, *models.Pagination, error) {
	slots, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule slots")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	return slots, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListMine returns the slots owned by the calling professor.
func (s *ScheduleService) ListMine(ctx context.Context, actor *models.JWTClaims) ([]models.ScheduleSlot, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	professor, err := s.professors.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "your user is not linked to a professor record yet")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve professor record")
	}
	slots, _, err := s.repo.List(ctx, models.ScheduleSlotFilter{ProfessorID: professor.ID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule slots")
	}
	return slots, nil
}

// Get returns a schedule slot by identifier.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.ScheduleSlot, error) {
	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule slot")
	}
	return slot, nil
}

// Create adds a slot to the weekly schedule.
func (s *ScheduleService) Create(ctx context.Context, req ScheduleSlotRequest) (*models.ScheduleSlot, error) {
	slot, err := s.validateAndBuild(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule slot")
	}
	return slot, nil
}

// Update modifies a slot.
func (s *ScheduleService) Update(ctx context.Context, id string, req ScheduleSlotRequest) (*models.ScheduleSlot, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	slot, err := s.validateAndBuild(ctx, req)
	if err != nil {
		return nil, err
	}
	existing.ProfessorID = slot.ProfessorID
	existing.DisciplineID = slot.DisciplineID
	existing.ClassID = slot.ClassID
	existing.Weekday = slot.Weekday
	existing.StartTime = slot.StartTime
	existing.EndTime = slot.EndTime
	existing.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule slot")
	}
	return existing, nil
}

// Delete removes a slot unless swap requests reference it.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRestricted) {
			return appErrors.Clone(appErrors.ErrProtected, "schedule slot is referenced by swap requests")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule slot")
	}
	return nil
}

func (s *ScheduleService) validateAndBuild(ctx context.Context, req ScheduleSlotRequest) (*models.ScheduleSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule slot payload")
	}

	weekday := models.Weekday(strings.ToUpper(strings.TrimSpace(req.Weekday)))
	if !models.ValidWeekday(weekday) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown weekday")
	}

	start, err := time.Parse(slotTimeLayout, req.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be HH:MM")
	}
	end, err := time.Parse(slotTimeLayout, req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be HH:MM")
	}
	if !start.Before(end) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}

	if _, err := s.professors.FindByID(ctx, req.ProfessorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate professor")
	}
	if _, err := s.disciplines.FindByID(ctx, req.DisciplineID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "discipline not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate discipline")
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate class")
	}

	return &models.ScheduleSlot{
		ProfessorID:  req.ProfessorID,
		DisciplineID: req.DisciplineID,
		ClassID:      req.ClassID,
		Weekday:      weekday,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
	}, nil
}
