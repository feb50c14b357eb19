package service

import (
	"context"
	"testing"

	"anoa.com/certhub/internal/config"
	"anoa.com/certhub/internal/model"
	"anoa.com/certhub/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rosterFixture struct {
	svc       RosterService
	classRepo *fakeClassRepo
	userRepo  *fakeUserRepo
	auditRepo *fakeAuditRepo
	cfg       *config.Config

	teacher *model.User
	student *model.User
}

func newRosterFixture(t *testing.T) *rosterFixture {
	t.Helper()

	f := &rosterFixture{
		classRepo: newFakeClassRepo(),
		auditRepo: &fakeAuditRepo{},
		cfg:       &config.Config{AutoCreateClassOnRegister: true},
		teacher:   &model.User{ID: uuid.New(), Name: "Tariq Teacher", Role: model.RoleTeacher},
		student:   &model.User{ID: uuid.New(), Name: "Asha Student", Role: model.RoleStudent},
	}
	f.userRepo = newFakeUserRepo(f.teacher, f.student)
	f.svc = NewRosterService(f.classRepo, f.userRepo, NewAuditService(f.auditRepo), f.cfg)
	return f
}

func TestCreateClass(t *testing.T) {
	f := newRosterFixture(t)

	class, err := f.svc.CreateClass(context.Background(), CreateClassInput{
		Name:       "CS-2026",
		CourseName: "Computer Science",
		TeacherID:  f.teacher.ID,
	}, f.teacher)
	require.NoError(t, err)
	assert.Equal(t, "CS-2026", class.Name)
	assert.Equal(t, f.teacher.ID, class.TeacherID)
	assert.Len(t, f.auditRepo.byAction(model.ActionCreateClass), 1)

	// Same name again is a conflict.
	_, err = f.svc.CreateClass(context.Background(), CreateClassInput{
		Name: "CS-2026", CourseName: "Computer Science", TeacherID: f.teacher.ID,
	}, f.teacher)
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestCreateClassOwnerMustBeStaff(t *testing.T) {
	f := newRosterFixture(t)

	_, err := f.svc.CreateClass(context.Background(), CreateClassInput{
		Name: "CS-2026", CourseName: "CS", TeacherID: f.student.ID,
	}, f.teacher)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.svc.CreateClass(context.Background(), CreateClassInput{
		Name: "CS-2026", CourseName: "CS", TeacherID: uuid.New(),
	}, f.teacher)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestEnrollIsIdempotent(t *testing.T) {
	f := newRosterFixture(t)
	class := &model.Class{Name: "CS-2026", TeacherID: f.teacher.ID}
	require.NoError(t, f.classRepo.Create(context.Background(), class))

	err := f.svc.Enroll(context.Background(), class.ID, []uuid.UUID{f.student.ID}, f.teacher)
	require.NoError(t, err)

	// Enrolling the same student again succeeds without a second membership
	// or a second audit entry.
	err = f.svc.Enroll(context.Background(), class.ID, []uuid.UUID{f.student.ID}, f.teacher)
	require.NoError(t, err)

	count, err := f.classRepo.StudentCount(context.Background(), class.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Len(t, f.auditRepo.byAction(model.ActionEnroll), 1)
}

func TestEnrollUnknownClass(t *testing.T) {
	f := newRosterFixture(t)

	err := f.svc.Enroll(context.Background(), uuid.New(), []uuid.UUID{f.student.ID}, f.teacher)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestSyncRegistrationAutoCreatesClass(t *testing.T) {
	f := newRosterFixture(t)

	err := f.svc.SyncRegistration(context.Background(), f.student, "Physics-A")
	require.NoError(t, err)

	class, err := f.classRepo.FindByName(context.Background(), "Physics-A")
	require.NoError(t, err)
	assert.Equal(t, f.teacher.ID, class.TeacherID)

	count, err := f.classRepo.StudentCount(context.Background(), class.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSyncRegistrationRejectsUnknownClassWhenAutoCreateOff(t *testing.T) {
	f := newRosterFixture(t)
	f.cfg.AutoCreateClassOnRegister = false

	err := f.svc.SyncRegistration(context.Background(), f.student, "Physics-A")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestSyncRegistrationSkipsWithoutStaff(t *testing.T) {
	f := newRosterFixture(t)
	f.userRepo = newFakeUserRepo(f.student)
	f.svc = NewRosterService(f.classRepo, f.userRepo, NewAuditService(f.auditRepo), f.cfg)

	// No staff exists yet to own the fabricated class; registration must
	// still go through with enrollment silently skipped.
	err := f.svc.SyncRegistration(context.Background(), f.student, "Physics-A")
	require.NoError(t, err)

	_, err = f.classRepo.FindByName(context.Background(), "Physics-A")
	assert.Error(t, err)
}

func TestSyncRegistrationBlankClassIsNoOp(t *testing.T) {
	f := newRosterFixture(t)

	err := f.svc.SyncRegistration(context.Background(), f.student, "   ")
	require.NoError(t, err)
	assert.Empty(t, f.classRepo.classes)
}
