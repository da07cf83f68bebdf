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

type disciplineRepository interface {
	Create(ctx context.Context, discipline *models.Discipline) error
	FindByID(ctx context.Context, id string) (*models.Discipline, error)
	List(ctx context.Context, filter models.DisciplineFilter) ([]models.Discipline, int, error)
	Update(ctx context.Context, discipline *models.Discipline) error
	Delete(ctx context.Context, id string) error
}

// DisciplineRequest is the payload for creating or updating a discipline.
type DisciplineRequest struct {
	Name                   string  `json:"name" validate:"required"`
	WorkloadHours          int     `json:"workload_hours" validate:"required,gt=0"`
	Description            *string `json:"description"`
	ResponsibleProfessorID string  `json:"responsible_professor_id" validate:"required"`
}

// DisciplineService manages discipline records.
type DisciplineService struct {
	repo       disciplineRepository
	professors professorResolver
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewDisciplineService constructs the service.
func NewDisciplineService(repo disciplineRepository, professors professorResolver, validate *validator.Validate, logger *zap.Logger) *DisciplineService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DisciplineService{repo: repo, professors: professors, validator: validate, logger: logger}
}

// List returns disciplines with pagination metadata.
func (s *DisciplineService) List(ctx context.Context, filter models.DisciplineFilter) ([]models.Discipline, *models.Pagination, error) {
	disciplines, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list disciplines")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return disciplines, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a discipline by identifier.
func (s *DisciplineService) Get(ctx context.Context, id string) (*models.Discipline, error) {
	discipline, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "discipline not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load discipline")
	}
	return discipline, nil
}

// Create adds a new discipline.
func (s *DisciplineService) Create(ctx context.Context, req DisciplineRequest) (*models.Discipline, error) {
	if err := s.validateRequest(ctx, req); err != nil {
		return nil, err
	}
	discipline := &models.Discipline{
		Name:                   strings.TrimSpace(req.Name),
		WorkloadHours:          req.WorkloadHours,
		Description:            req.Description,
		ResponsibleProfessorID: req.ResponsibleProfessorID,
	}
	if err := s.repo.Create(ctx, discipline); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create discipline")
	}
	return discipline, nil
}

// Update modifies a discipline.
func (s *DisciplineService) Update(ctx context.Context, id string, req DisciplineRequest) (*models.Discipline, error) {
	discipline, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateRequest(ctx, req); err != nil {
		return nil, err
	}
	discipline.Name = strings.TrimSpace(req.Name)
	discipline.WorkloadHours = req.WorkloadHours
	discipline.Description = req.Description
	discipline.ResponsibleProfessorID = req.ResponsibleProfessorID
	discipline.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, discipline); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update discipline")
	}
	return discipline, nil
}

// Delete removes a discipline unless schedule slots reference it.
func (s *DisciplineService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRestricted) {
			return appErrors.Clone(appErrors.ErrProtected, "discipline is referenced by schedule slots")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete discipline")
	}
	return nil
}

func (s *DisciplineService) validateRequest(ctx context.Context, req DisciplineRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid discipline payload")
	}
	if _, err := s.professors.FindByID(ctx, req.ResponsibleProfessorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "responsible professor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate responsible professor")
	}
	return nil
}
