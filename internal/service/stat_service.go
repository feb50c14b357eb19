package service

import (
	"context"

	"anoa.com/certhub/internal/model"
	"anoa.com/certhub/internal/repository"
)

// DashboardStats feeds the staff analytics view.
type DashboardStats struct {
	Certificates struct {
		Total    int64 `json:"total"`
		Pending  int64 `json:"pending"`
		Verified int64 `json:"verified"`
		Rejected int64 `json:"rejected"`
	} `json:"certificates"`
	ByPlatform map[string]int64 `json:"by_platform"`
	Users      struct {
		Students int64 `json:"students"`
		Teachers int64 `json:"teachers"`
		Admins   int64 `json:"admins"`
	} `json:"users"`
}

type StatService interface {
	Dashboard(ctx context.Context) (*DashboardStats, error)
}

type statService struct {
	certRepo repository.CertificateRepository
	userRepo repository.UserRepository
}

func NewStatService(certRepo repository.CertificateRepository, userRepo repository.UserRepository) StatService {
	return &statService{certRepo: certRepo, userRepo: userRepo}
}

func (s *statService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}

	byStatus, err := s.certRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats.Certificates.Pending = byStatus[model.StatusPending]
	stats.Certificates.Verified = byStatus[model.StatusVerified]
	stats.Certificates.Rejected = byStatus[model.StatusRejected]
	stats.Certificates.Total = stats.Certificates.Pending + stats.Certificates.Verified + stats.Certificates.Rejected

	stats.ByPlatform, err = s.certRepo.CountByPlatform(ctx)
	if err != nil {
		return nil, err
	}

	byRole, err := s.userRepo.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	stats.Users.Students = byRole[model.RoleStudent]
	stats.Users.Teachers = byRole[model.RoleTeacher]
	stats.Users.Admins = byRole[model.RoleAdmin]

	return stats, nil
}
