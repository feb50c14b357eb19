package service

import (
	"context"
	"testing"
	"time"

	"anoa.com/certhub/internal/config"
	"anoa.com/certhub/internal/model"
	"anoa.com/certhub/pkg/apperror"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthFixture(t *testing.T) (AuthService, *fakeUserRepo, *fakeAuditRepo, *config.Config) {
	t.Helper()

	userRepo := newFakeUserRepo()
	auditRepo := &fakeAuditRepo{}
	classRepo := newFakeClassRepo()
	cfg := &config.Config{
		JWTSecret:                 "test-secret",
		JWTTTL:                    time.Hour,
		AutoCreateClassOnRegister: true,
	}
	roster := NewRosterService(classRepo, userRepo, NewAuditService(auditRepo), cfg)
	return NewAuthService(userRepo, roster, NewAuditService(auditRepo), cfg), userRepo, auditRepo, cfg
}

func TestRegisterDefaultsToStudent(t *testing.T) {
	svc, userRepo, auditRepo, cfg := newAuthFixture(t)

	resp, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Asha",
		Email:    "asha@example.com",
		Password: "supersecret",
	})
	require.NoError(t, err)

	assert.Equal(t, model.RoleStudent, resp.User.Role)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	// Password is stored hashed, never verbatim.
	stored, err := userRepo.FindByEmail(context.Background(), "asha@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "supersecret", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("supersecret")))

	// Token is signed with the configured secret and carries the user id.
	token, err := jwt.ParseWithClaims(resp.AccessToken, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(*jwt.RegisteredClaims)
	assert.Equal(t, stored.ID.String(), claims.Subject)

	assert.Len(t, auditRepo.byAction(model.ActionRegister), 1)
}

func TestRegisterStudentEnrollsNamedClass(t *testing.T) {
	svc, userRepo, _, _ := newAuthFixture(t)
	require.NoError(t, userRepo.Create(context.Background(), &model.User{
		Name: "Tariq", Email: "t@example.com", Role: model.RoleTeacher,
	}))

	className := "CS-2026"
	roll := "R-001"
	resp, err := svc.Register(context.Background(), RegisterInput{
		Name:       "Asha",
		Email:      "asha@example.com",
		Password:   "supersecret",
		ClassName:  &className,
		RollNumber: &roll,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.User.ClassName)
	assert.Equal(t, "CS-2026", *resp.User.ClassName)
}

func TestRegisterBlankRollNumberStoredAsNull(t *testing.T) {
	svc, userRepo, _, _ := newAuthFixture(t)

	// Two students submitting blank roll numbers must both register; the
	// blank must never reach the unique roll_number column as "".
	blank := ""
	spaces := "   "
	_, err := svc.Register(context.Background(), RegisterInput{
		Name: "Asha", Email: "asha@example.com", Password: "supersecret", RollNumber: &blank,
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{
		Name: "Bela", Email: "bela@example.com", Password: "supersecret", RollNumber: &spaces,
	})
	require.NoError(t, err)

	asha, err := userRepo.FindByEmail(context.Background(), "asha@example.com")
	require.NoError(t, err)
	assert.Nil(t, asha.RollNumber)

	bela, err := userRepo.FindByEmail(context.Background(), "bela@example.com")
	require.NoError(t, err)
	assert.Nil(t, bela.RollNumber)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)

	input := RegisterInput{Name: "Asha", Email: "asha@example.com", Password: "supersecret"}
	_, err := svc.Register(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), input)
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestRegisterDuplicateRollNumber(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)

	roll := "R-001"
	_, err := svc.Register(context.Background(), RegisterInput{
		Name: "Asha", Email: "asha@example.com", Password: "supersecret", RollNumber: &roll,
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{
		Name: "Bela", Email: "bela@example.com", Password: "supersecret", RollNumber: &roll,
	})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestLogin(t *testing.T) {
	svc, _, auditRepo, _ := newAuthFixture(t)

	_, err := svc.Register(context.Background(), RegisterInput{
		Name: "Asha", Email: "asha@example.com", Password: "supersecret",
	})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), LoginInput{Email: "asha@example.com", Password: "supersecret"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Len(t, auditRepo.byAction(model.ActionLogin), 1)

	_, err = svc.Login(context.Background(), LoginInput{Email: "asha@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = svc.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "supersecret"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}
