package service

import (
	"context"
	"log"
	"time"

	"anoa.com/certhub/internal/model"
	"anoa.com/certhub/internal/repository"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

const defaultAuditWindow = 100

// AuditService records security-relevant actions. Append is fire and
// forget: a failed audit write is logged and swallowed so it can never
// block the operation that produced it.
type AuditService interface {
	Append(ctx context.Context, actorID uuid.UUID, actorName string, action model.AuditAction, details string)
	ListRecent(ctx context.Context, limit int) ([]*model.AuditLog, error)
	ListBefore(ctx context.Context, cursor time.Time, limit int) ([]*model.AuditLog, error)
}

type auditService struct {
	repo      repository.AuditRepository
	sanitizer *bluemonday.Policy
}

func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{
		repo:      repo,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *auditService) Append(ctx context.Context, actorID uuid.UUID, actorName string, action model.AuditAction, details string) {
	entry := &model.AuditLog{
		UserID:   actorID,
		UserName: actorName,
		Action:   action,
		Details:  s.sanitizer.Sanitize(details),
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		log.Printf("[Audit] failed to append %s entry for %s: %v", action, actorID, err)
	}
}

func (s *auditService) ListRecent(ctx context.Context, limit int) ([]*model.AuditLog, error) {
	if limit <= 0 || limit > defaultAuditWindow {
		limit = defaultAuditWindow
	}
	return s.repo.FindRecent(ctx, limit)
}

func (s *auditService) ListBefore(ctx context.Context, cursor time.Time, limit int) ([]*model.AuditLog, error) {
	if limit <= 0 || limit > defaultAuditWindow {
		limit = defaultAuditWindow
	}
	return s.repo.FindBefore(ctx, cursor, limit)
}
