package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/data-siswa-api/internal/models"
	"github.com/noah-isme/data-siswa-api/pkg/config"
	appErrors "github.com/noah-isme/data-siswa-api/pkg/errors"
)

type userStoreStub struct {
	users  map[string]*models.User
	tokens map[string]*models.RefreshToken
	nextID int
}

func newUserStoreStub(users ...*models.User) *userStoreStub {
	s := &userStoreStub{users: map[string]*models.User{}, tokens: map[string]*models.RefreshToken{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *userStoreStub) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *userStoreStub) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (s *userStoreStub) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	if u, ok := s.users[id]; ok {
		u.LastLogin = &ts
	}
	return nil
}

func (s *userStoreStub) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	s.nextID++
	if token.ID == "" {
		token.ID = fmt.Sprintf("rt-%d", s.nextID)
	}
	s.tokens[token.Token] = token
	return nil
}

func (s *userStoreStub) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	stored, ok := s.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return stored, nil
}

func (s *userStoreStub) RevokeRefreshToken(_ context.Context, id string, revokedAt time.Time) error {
	for _, token := range s.tokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
			return nil
		}
	}
	return sql.ErrNoRows
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Expiration:        15 * time.Minute,
		RefreshExpiration: 24 * time.Hour,
	}
}

func testUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	studentID := "student-1"
	return &models.User{
		ID:           "user-1",
		Email:        "budi@sekolah.id",
		FullName:     "Budi Santoso",
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
		StudentID:    &studentID,
		Active:       true,
	}
}

func TestLoginIssuesValidTokenPair(t *testing.T) {
	store := newUserStoreStub(testUser(t, "rahasia123"))
	svc := NewAuthService(store, testJWTConfig(), nil)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "budi@sekolah.id", Password: "rahasia123"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	require.NotNil(t, claims.StudentID)
	assert.Equal(t, "student-1", *claims.StudentID)

	_, stored := store.tokens[resp.RefreshToken]
	assert.True(t, stored)
	require.NotNil(t, store.users["user-1"].LastLogin)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc := NewAuthService(newUserStoreStub(testUser(t, "rahasia123")), testJWTConfig(), nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "budi@sekolah.id", Password: "salah"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginUnknownEmailLooksLikeBadCredentials(t *testing.T) {
	svc := NewAuthService(newUserStoreStub(), testJWTConfig(), nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@sekolah.id", Password: "rahasia123"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	user := testUser(t, "rahasia123")
	user.Active = false
	svc := NewAuthService(newUserStoreStub(user), testJWTConfig(), nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "budi@sekolah.id", Password: "rahasia123"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	store := newUserStoreStub(testUser(t, "rahasia123"))
	svc := NewAuthService(store, testJWTConfig(), nil)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "budi@sekolah.id", Password: "rahasia123"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.True(t, store.tokens[login.RefreshToken].Revoked)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	store := newUserStoreStub(testUser(t, "rahasia123"))
	svc := NewAuthService(store, testJWTConfig(), nil)
	other := NewAuthService(store, config.JWTConfig{Secret: "another-secret", Expiration: time.Minute, RefreshExpiration: time.Hour}, nil)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "budi@sekolah.id", Password: "rahasia123"})
	require.NoError(t, err)

	_, err = other.ValidateToken(login.AccessToken)
	require.Error(t, err)
}
