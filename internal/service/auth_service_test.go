package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/dropout-copilot-api/internal/models"
	"github.com/noah-isme/dropout-copilot-api/pkg/config"
	appErrors "github.com/noah-isme/dropout-copilot-api/pkg/errors"
)

type fakeUserRepo struct {
	user *models.User
	err  error
}

func (f *fakeUserRepo) FindByEmail(context.Context, string) (*models.User, error) {
	return f.user, f.err
}

func (f *fakeUserRepo) FindByID(context.Context, string) (*models.User, error) {
	return f.user, f.err
}

func newTestAuthService(user *models.User, err error) *AuthService {
	return NewAuthService(
		&fakeUserRepo{user: user, err: err},
		config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "dropout-copilot"},
		validator.New(),
		zap.NewNop(),
	)
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceLoginAndValidate(t *testing.T) {
	user := &models.User{
		ID:           "u-1",
		Email:        "faculty@example.edu",
		PasswordHash: hashPassword(t, "s3cret"),
		Role:         "faculty",
		Active:       true,
	}
	svc := newTestAuthService(user, nil)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "faculty@example.edu", Password: "s3cret"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "u-1", resp.User.ID)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "faculty", claims.Role)
	assert.Equal(t, "dropout-copilot", claims.Issuer)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	user := &models.User{
		ID:           "u-1",
		Email:        "faculty@example.edu",
		PasswordHash: hashPassword(t, "s3cret"),
		Active:       true,
	}
	svc := newTestAuthService(user, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "faculty@example.edu", Password: "wrong"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceLoginUnknownUser(t *testing.T) {
	svc := newTestAuthService(nil, sql.ErrNoRows)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.edu", Password: "s3cret"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceLoginInactiveUser(t *testing.T) {
	user := &models.User{
		ID:           "u-2",
		Email:        "former@example.edu",
		PasswordHash: hashPassword(t, "s3cret"),
		Active:       false,
	}
	svc := newTestAuthService(user, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "former@example.edu", Password: "s3cret"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceLoginValidation(t *testing.T) {
	svc := newTestAuthService(nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email", Password: ""})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAuthServiceValidateTokenRejectsTampering(t *testing.T) {
	user := &models.User{
		ID:           "u-1",
		Email:        "faculty@example.edu",
		PasswordHash: hashPassword(t, "s3cret"),
		Active:       true,
	}
	svc := newTestAuthService(user, nil)
	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "faculty@example.edu", Password: "s3cret"})
	require.NoError(t, err)

	other := NewAuthService(&fakeUserRepo{}, config.JWTConfig{Secret: "different-secret", Expiration: time.Hour}, validator.New(), zap.NewNop())
	_, err = other.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.ValidateToken(resp.AccessToken + "x")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
