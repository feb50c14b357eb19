package service

import (
	"context"
	"testing"

	"anoa.com/certhub/internal/model"
	"anoa.com/certhub/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListUsersFiltersByRole(t *testing.T) {
	userRepo := newFakeUserRepo(
		&model.User{Name: "Asha", Role: model.RoleStudent},
		&model.User{Name: "Bela", Role: model.RoleStudent},
		&model.User{Name: "Tariq", Role: model.RoleTeacher},
	)
	svc := NewUserService(userRepo, NewAuditService(&fakeAuditRepo{}))

	students, err := svc.ListUsers(context.Background(), model.RoleStudent)
	require.NoError(t, err)
	assert.Len(t, students, 2)

	all, err := svc.ListUsers(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = svc.ListUsers(context.Background(), "WIZARD")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestDeleteUser(t *testing.T) {
	admin := &model.User{ID: uuid.New(), Name: "Root Admin", Role: model.RoleAdmin}
	teacher := &model.User{ID: uuid.New(), Name: "Tariq", Role: model.RoleTeacher}
	student := &model.User{ID: uuid.New(), Name: "Asha", Role: model.RoleStudent}
	userRepo := newFakeUserRepo(admin, teacher, student)
	auditRepo := &fakeAuditRepo{}
	svc := NewUserService(userRepo, NewAuditService(auditRepo))

	err := svc.DeleteUser(context.Background(), student.ID, teacher)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	err = svc.DeleteUser(context.Background(), admin.ID, admin)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	err = svc.DeleteUser(context.Background(), uuid.New(), admin)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	err = svc.DeleteUser(context.Background(), student.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{student.ID}, userRepo.deleted)
	assert.Len(t, auditRepo.byAction(model.ActionDeleteUser), 1)
}
