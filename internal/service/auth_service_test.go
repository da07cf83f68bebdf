package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ifsertao/permuta-api/internal/models"
	appErrors "github.com/ifsertao/permuta-api/pkg/errors"
)

type authRepoStub struct {
	users     map[string]*models.User
	lastLogin map[string]time.Time
}

func newAuthRepoStub() *authRepoStub {
	return &authRepoStub{users: make(map[string]*models.User), lastLogin: make(map[string]time.Time)}
}

func (s *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (s *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	s.lastLogin[id] = ts
	return nil
}

func seedUser(t *testing.T, repo *authRepoStub, active bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("segredo123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		ID:           "user-a",
		Email:        "ana@example.edu",
		PasswordHash: string(hash),
		FullName:     "Ana Lima",
		Role:         models.RoleProfessor,
		Active:       active,
	}
	repo.users[user.ID] = user
	return user
}

func newAuthService(repo *authRepoStub) *AuthService {
	return NewAuthService(repo, NewValidator(), nil, AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "permuta-api",
	})
}

func TestAuthServiceLogin(t *testing.T) {
	repo := newAuthRepoStub()
	user := seedUser(t, repo, true)
	svc := newAuthService(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "segredo123"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, int64(3600), resp.ExpiresIn)
	require.Equal(t, user.ID, resp.User.ID)
	require.Contains(t, repo.lastLogin, user.ID)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, models.RoleProfessor, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newAuthRepoStub()
	user := seedUser(t, repo, true)
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "errada"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	repo := newAuthRepoStub()
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ninguem@example.edu", Password: "segredo123"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	repo := newAuthRepoStub()
	user := seedUser(t, repo, false)
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "segredo123"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsForgedSecret(t *testing.T) {
	repo := newAuthRepoStub()
	user := seedUser(t, repo, true)

	issuer := NewAuthService(repo, NewValidator(), nil, AuthConfig{Secret: "other-secret", Issuer: "permuta-api"})
	resp, err := issuer.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "segredo123"})
	require.NoError(t, err)

	svc := newAuthService(repo)
	_, err = svc.ValidateToken(resp.AccessToken)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceMe(t *testing.T) {
	repo := newAuthRepoStub()
	user := seedUser(t, repo, true)
	svc := newAuthService(repo)

	info, err := svc.Me(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, user.Email, info.Email)

	_, err = svc.Me(context.Background(), "ghost")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
