package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/arka-edu/school-suite-api/internal/models"
	appErrors "github.com/arka-edu/school-suite-api/pkg/errors"
)

type authRepoStub struct {
	users   map[string]*models.User
	byID    map[string]*models.User
	tokens  map[string]*models.RefreshToken
	created []*models.RefreshToken
	revoked []string
}

func (s *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := s.users[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (s *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	s.created = append(s.created, token)
	return nil
}

func (s *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := s.tokens[token]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	s.revoked = append(s.revoked, id)
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "school-suite-api",
	}
}

func testUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "user-1",
		Email:        "admin@school.test",
		PasswordHash: string(hash),
		FullName:     "Branch Admin",
		Role:         models.RoleAdmin,
		BranchID:     "branch-1",
		Active:       true,
	}
}

func TestAuthServiceLogin(t *testing.T) {
	user := testUser(t, "secret123")
	repo := &authRepoStub{users: map[string]*models.User{user.Email: user}}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.Equal(t, "branch-1", resp.User.BranchID)
	require.Len(t, repo.created, 1)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "branch-1", claims.BranchID)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	user := testUser(t, "secret123")
	repo := &authRepoStub{users: map[string]*models.User{user.Email: user}}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	user := testUser(t, "secret123")
	user.Active = false
	repo := &authRepoStub{users: map[string]*models.User{user.Email: user}}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshToken(t *testing.T) {
	user := testUser(t, "secret123")
	repo := &authRepoStub{
		byID: map[string]*models.User{user.ID: user},
		tokens: map[string]*models.RefreshToken{
			"valid-token": {ID: "rt-1", UserID: user.ID, Token: "valid-token", ExpiresAt: time.Now().UTC().Add(time.Hour)},
		},
	}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	resp, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "valid-token"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestAuthServiceRefreshTokenExpired(t *testing.T) {
	user := testUser(t, "secret123")
	repo := &authRepoStub{
		byID: map[string]*models.User{user.ID: user},
		tokens: map[string]*models.RefreshToken{
			"old": {ID: "rt-1", UserID: user.ID, Token: "old", ExpiresAt: time.Now().UTC().Add(-time.Minute)},
		},
	}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogout(t *testing.T) {
	repo := &authRepoStub{
		tokens: map[string]*models.RefreshToken{
			"valid-token": {ID: "rt-1", UserID: "user-1", Token: "valid-token", ExpiresAt: time.Now().UTC().Add(time.Hour)},
		},
	}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	require.NoError(t, svc.Logout(context.Background(), "valid-token", "user-1"))
	assert.Equal(t, []string{"rt-1"}, repo.revoked)

	err := svc.Logout(context.Background(), "valid-token", "someone-else")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(&authRepoStub{}, nil, nil, testAuthConfig())

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
