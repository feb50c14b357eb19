package service

import (
	"context"
	"testing"

	"anoa.com/certhub/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardAggregates(t *testing.T) {
	certRepo := newFakeCertRepo()
	userRepo := newFakeUserRepo(
		&model.User{Name: "Asha", Role: model.RoleStudent},
		&model.User{Name: "Bela", Role: model.RoleStudent},
		&model.User{Name: "Tariq", Role: model.RoleTeacher},
		&model.User{Name: "Root", Role: model.RoleAdmin},
	)

	ctx := context.Background()
	add := func(platform string, status model.CertificateStatus) {
		require.NoError(t, certRepo.Create(ctx, &model.Certificate{
			StudentID: uuid.New(), Title: "T", Platform: platform, Status: status,
		}))
	}
	add("Coursera", model.StatusPending)
	add("Coursera", model.StatusVerified)
	add("Udemy", model.StatusVerified)
	add("EdX", model.StatusRejected)

	stats, err := NewStatService(certRepo, userRepo).Dashboard(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(4), stats.Certificates.Total)
	assert.Equal(t, int64(1), stats.Certificates.Pending)
	assert.Equal(t, int64(2), stats.Certificates.Verified)
	assert.Equal(t, int64(1), stats.Certificates.Rejected)
	assert.Equal(t, int64(2), stats.ByPlatform["Coursera"])
	assert.Equal(t, int64(2), stats.Users.Students)
	assert.Equal(t, int64(1), stats.Users.Teachers)
	assert.Equal(t, int64(1), stats.Users.Admins)
}
