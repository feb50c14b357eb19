package repository

import (
	"context"
	"time"

	"anoa.com/certhub/internal/model"
	"gorm.io/gorm"
)

type AuditRepository interface {
	Create(ctx context.Context, entry *model.AuditLog) error
	FindRecent(ctx context.Context, limit int) ([]*model.AuditLog, error)
	// FindBefore pages backwards through history: entries strictly older
	// than cursor, newest first.
	FindBefore(ctx context.Context, cursor time.Time, limit int) ([]*model.AuditLog, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditRepository) FindRecent(ctx context.Context, limit int) ([]*model.AuditLog, error) {
	var entries []*model.AuditLog
	if err := r.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *auditRepository) FindBefore(ctx context.Context, cursor time.Time, limit int) ([]*model.AuditLog, error) {
	var entries []*model.AuditLog
	if err := r.db.WithContext(ctx).
		Where("created_at < ?", cursor).
		Order("created_at desc").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
