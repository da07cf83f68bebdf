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

type professorRepoStub struct {
	professors map[string]*models.Professor
	restricted map[string]bool
}

func newProfessorRepoStub() *professorRepoStub {
	return &professorRepoStub{professors: make(map[string]*models.Professor), restricted: make(map[string]bool)}
}

func (s *professorRepoStub) Create(ctx context.Context, professor *models.Professor) error {
	if professor.ID == "" {
		professor.ID = uuid.NewString()
	}
	stored := *professor
	s.professors[professor.ID] = &stored
	return nil
}

func (s *professorRepoStub) FindByID(ctx context.Context, id string) (*models.Professor, error) {
	professor, ok := s.professors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *professor
	return &copied, nil
}

func (s *professorRepoStub) FindByUserID(ctx context.Context, userID string) (*models.Professor, error) {
	for _, professor := range s.professors {
		if professor.UserID == userID {
			copied := *professor
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *professorRepoStub) List(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, int, error) {
	result := make([]models.Professor, 0, len(s.professors))
	for _, professor := range s.professors {
		result = append(result, *professor)
	}
	return result, len(result), nil
}

func (s *professorRepoStub) ExistsBySiape(ctx context.Context, siape, excludeID string) (bool, error) {
	for _, professor := range s.professors {
		if professor.Siape == siape && professor.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *professorRepoStub) ExistsByCPF(ctx context.Context, cpf, excludeID string) (bool, error) {
	for _, professor := range s.professors {
		if professor.CPF == cpf && professor.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *professorRepoStub) Update(ctx context.Context, professor *models.Professor) error {
	stored := *professor
	s.professors[professor.ID] = &stored
	return nil
}

func (s *professorRepoStub) Delete(ctx context.Context, id string) error {
	if s.restricted[id] {
		return repository.ErrRestricted
	}
	delete(s.professors, id)
	return nil
}

type professorUserRepoStub struct {
	users map[string]*models.User
}

func newProfessorUserRepoStub() *professorUserRepoStub {
	return &professorUserRepoStub{users: make(map[string]*models.User)}
}

func (s *professorUserRepoStub) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

func (s *professorUserRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func validProfessorRequest() CreateProfessorRequest {
	return CreateProfessorRequest{
		FullName:     "Ana Lima",
		Email:        "ana@example.edu",
		Password:     "segredo123",
		Siape:        "1234567",
		CPF:          "529.982.247-25",
		Coordination: "TSI",
	}
}

func TestProfessorServiceCreate(t *testing.T) {
	repo := newProfessorRepoStub()
	users := newProfessorUserRepoStub()
	svc := NewProfessorService(repo, users, NewValidator(), nil)

	professor, err := svc.Create(context.Background(), validProfessorRequest())
	require.NoError(t, err)
	require.NotEmpty(t, professor.ID)
	require.NotEmpty(t, professor.UserID)
	require.Equal(t, "Ana Lima", professor.FullName)
	require.Equal(t, "ana@example.edu", professor.Email)

	user := users.users[professor.UserID]
	require.NotNil(t, user)
	require.Equal(t, models.RoleProfessor, user.Role)
	require.True(t, user.Active)
	require.NotEqual(t, "segredo123", user.PasswordHash)
}

func TestProfessorServiceCreateRejectsBadCPF(t *testing.T) {
	svc := NewProfessorService(newProfessorRepoStub(), newProfessorUserRepoStub(), NewValidator(), nil)

	req := validProfessorRequest()
	req.CPF = "111.111.111-11"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestProfessorServiceCreateDuplicateEmail(t *testing.T) {
	repo := newProfessorRepoStub()
	users := newProfessorUserRepoStub()
	svc := NewProfessorService(repo, users, NewValidator(), nil)

	_, err := svc.Create(context.Background(), validProfessorRequest())
	require.NoError(t, err)

	req := validProfessorRequest()
	req.Siape = "7654321"
	req.CPF = "111.444.777-35"
	_, err = svc.Create(context.Background(), req)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrAlreadyExists.Code, appErrors.FromError(err).Code)
}

func TestProfessorServiceCreateDuplicateSiape(t *testing.T) {
	repo := newProfessorRepoStub()
	users := newProfessorUserRepoStub()
	svc := NewProfessorService(repo, users, NewValidator(), nil)

	_, err := svc.Create(context.Background(), validProfessorRequest())
	require.NoError(t, err)

	req := validProfessorRequest()
	req.Email = "outra@example.edu"
	req.CPF = "111.444.777-35"
	_, err = svc.Create(context.Background(), req)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrAlreadyExists.Code, appErrors.FromError(err).Code)
}

func TestProfessorServiceUpdate(t *testing.T) {
	repo := newProfessorRepoStub()
	users := newProfessorUserRepoStub()
	svc := NewProfessorService(repo, users, NewValidator(), nil)

	professor, err := svc.Create(context.Background(), validProfessorRequest())
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), professor.ID, UpdateProfessorRequest{
		Siape:        "7654321",
		CPF:          "111.444.777-35",
		Coordination: "Informática",
	})
	require.NoError(t, err)
	require.Equal(t, "7654321", updated.Siape)
	require.Equal(t, "Informática", updated.Coordination)
}

func TestProfessorServiceDeleteProtected(t *testing.T) {
	repo := newProfessorRepoStub()
	users := newProfessorUserRepoStub()
	svc := NewProfessorService(repo, users, NewValidator(), nil)

	professor, err := svc.Create(context.Background(), validProfessorRequest())
	require.NoError(t, err)
	repo.restricted[professor.ID] = true

	err = svc.Delete(context.Background(), professor.ID)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrProtected.Code, appErrors.FromError(err).Code)
}

func TestProfessorServiceGetMissing(t *testing.T) {
	svc := NewProfessorService(newProfessorRepoStub(), newProfessorUserRepoStub(), NewValidator(), nil)

	_, err := svc.Get(context.Background(), "ghost")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
