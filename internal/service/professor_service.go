package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ifsertao/permuta-api/internal/models"
	"github.com/ifsertao/permuta-api/internal/repository"
	appErrors "github.com/ifsertao/permuta-api/pkg/errors"
)

type professorRepository interface {
	Create(ctx context.Context, professor *models.Professor) error
	FindByID(ctx context.Context, id string) (*models.Professor, error)
	FindByUserID(ctx context.Context, userID string) (*models.Professor, error)
	List(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, int, error)
	ExistsBySiape(ctx context.Context, siape, excludeID string) (bool, error)
	ExistsByCPF(ctx context.Context, cpf, excludeID string) (bool, error)
	Update(ctx context.Context, professor *models.Professor) error
	Delete(ctx context.Context, id string) error
}

type professorUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// CreateProfessorRequest creates the user account and the professor
// record in one step.
type CreateProfessorRequest struct {
	FullName     string  `json:"full_name" validate:"required"`
	Email        string  `json:"email" validate:"required,email"`
	Password     string  `json:"password" validate:"required,min=8"`
	Siape        string  `json:"siape" validate:"required"`
	CPF          string  `json:"cpf" validate:"required,cpf"`
	Phone        *string `json:"phone" validate:"omitempty,br_phone"`
	Coordination string  `json:"coordination" validate:"required"`
}

// UpdateProfessorRequest modifies the institutional record.
type UpdateProfessorRequest struct {
	Siape        string  `json:"siape" validate:"required"`
	CPF          string  `json:"cpf" validate:"required,cpf"`
	Phone        *string `json:"phone" validate:"omitempty,br_phone"`
	Coordination string  `json:"coordination" validate:"required"`
}

// ProfessorService manages professor records and their user accounts.
type ProfessorService struct {
	repo      professorRepository
	users     professorUserRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfessorService constructs the service.
func NewProfessorService(repo professorRepository, users professorUserRepository, validate *validator.Validate, logger *zap.Logger) *ProfessorService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfessorService{repo: repo, users: users, validator: validate, logger: logger}
}

// List returns professors with pagination metadata.
func (s *ProfessorService) List(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, *models.Pagination, error) {
	professors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list professors")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return professors, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a professor by identifier.
func (s *ProfessorService) Get(ctx context.Context, id string) (*models.Professor, error) {
	professor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
	}
	return professor, nil
}

// Create registers the professor together with their login account.
func (s *ProfessorService) Create(ctx context.Context, req CreateProfessorRequest) (*models.Professor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid professor payload")
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrAlreadyExists, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	if err := s.ensureUniqueDocuments(ctx, req.Siape, req.CPF, ""); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         models.RoleProfessor,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user account")
	}

	professor := &models.Professor{
		UserID:       user.ID,
		Siape:        strings.TrimSpace(req.Siape),
		CPF:          req.CPF,
		Phone:        req.Phone,
		Coordination: strings.TrimSpace(req.Coordination),
	}
	if err := s.repo.Create(ctx, professor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create professor")
	}
	professor.FullName = user.FullName
	professor.Email = user.Email
	return professor, nil
}

// Update modifies the institutional record.
func (s *ProfessorService) Update(ctx context.Context, id string, req UpdateProfessorRequest) (*models.Professor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid professor payload")
	}

	professor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.ensureUniqueDocuments(ctx, req.Siape, req.CPF, id); err != nil {
		return nil, err
	}

	professor.Siape = strings.TrimSpace(req.Siape)
	professor.CPF = req.CPF
	professor.Phone = req.Phone
	professor.Coordination = strings.TrimSpace(req.Coordination)
	professor.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, professor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update professor")
	}
	return professor, nil
}

// Delete removes the professor. Records referenced by schedule slots or
// swap requests are protected.
func (s *ProfessorService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRestricted) {
			return appErrors.Clone(appErrors.ErrProtected, "professor is referenced by schedules or swap requests")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete professor")
	}
	return nil
}

func (s *ProfessorService) ensureUniqueDocuments(ctx context.Context, siape, cpf, excludeID string) error {
	if exists, err := s.repo.ExistsBySiape(ctx, siape, excludeID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check SIAPE")
	} else if exists {
		return appErrors.Clone(appErrors.ErrAlreadyExists, "SIAPE already registered")
	}
	if exists, err := s.repo.ExistsByCPF(ctx, cpf, excludeID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check CPF")
	} else if exists {
		return appErrors.Clone(appErrors.ErrAlreadyExists, "CPF already registered")
	}
	return nil
}
