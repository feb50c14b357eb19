package repository

import (
	"context"
	"time"

	"anoa.com/certhub/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusUpdate carries the fields a transition writes in one statement.
type StatusUpdate struct {
	Status     model.CertificateStatus
	Remarks    string
	VerifiedBy uuid.UUID
	VerifiedAt time.Time
}

type CertificateRepository interface {
	Create(ctx context.Context, cert *model.Certificate) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Certificate, error)
	FindByIDWithStudent(ctx context.Context, id uuid.UUID) (*model.Certificate, error)
	FindByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.Certificate, error)
	FindAll(ctx context.Context, status model.CertificateStatus) ([]*model.Certificate, error)
	FindByStudentIDs(ctx context.Context, studentIDs []uuid.UUID, status model.CertificateStatus) ([]*model.Certificate, error)
	// UpdateStatusIf applies the status update only when the row's current
	// status still equals expected (compare-and-swap). Returns the number of
	// rows updated; zero means a concurrent transition won.
	UpdateStatusIf(ctx context.Context, id uuid.UUID, expected model.CertificateStatus, update StatusUpdate) (int64, error)
	UpdateAnalysisHint(ctx context.Context, id uuid.UUID, hint string) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context) (map[model.CertificateStatus]int64, error)
	CountByPlatform(ctx context.Context) (map[string]int64, error)
	CountStalePending(ctx context.Context, olderThan time.Time) (int64, error)
}

type certificateRepository struct {
	db *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) CertificateRepository {
	return &certificateRepository{db: db}
}

func (r *certificateRepository) Create(ctx context.Context, cert *model.Certificate) error {
	return r.db.WithContext(ctx).Create(cert).Error
}

func (r *certificateRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Certificate, error) {
	var cert model.Certificate
	if err := r.db.WithContext(ctx).First(&cert, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *certificateRepository) FindByIDWithStudent(ctx context.Context, id uuid.UUID) (*model.Certificate, error) {
	var cert model.Certificate
	if err := r.db.WithContext(ctx).
		Preload("Student", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "email", "role")
		}).
		First(&cert, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *certificateRepository) FindByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.Certificate, error) {
	var certs []*model.Certificate
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at desc").
		Find(&certs).Error; err != nil {
		return nil, err
	}
	return certs, nil
}

func (r *certificateRepository) FindAll(ctx context.Context, status model.CertificateStatus) ([]*model.Certificate, error) {
	var certs []*model.Certificate
	query := r.db.WithContext(ctx).Order("created_at desc")

	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Find(&certs).Error; err != nil {
		return nil, err
	}
	return certs, nil
}

func (r *certificateRepository) FindByStudentIDs(ctx context.Context, studentIDs []uuid.UUID, status model.CertificateStatus) ([]*model.Certificate, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}

	var certs []*model.Certificate
	query := r.db.WithContext(ctx).
		Where("student_id IN ?", studentIDs).
		Order("created_at desc")

	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Find(&certs).Error; err != nil {
		return nil, err
	}
	return certs, nil
}

func (r *certificateRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected model.CertificateStatus, update StatusUpdate) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Certificate{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(map[string]interface{}{
			"status":      update.Status,
			"remarks":     update.Remarks,
			"verified_by": update.VerifiedBy,
			"verified_at": update.VerifiedAt,
		})
	return result.RowsAffected, result.Error
}

func (r *certificateRepository) UpdateAnalysisHint(ctx context.Context, id uuid.UUID, hint string) error {
	return r.db.WithContext(ctx).
		Model(&model.Certificate{}).
		Where("id = ?", id).
		Update("analysis_hint", hint).Error
}

func (r *certificateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Certificate{}, "id = ?", id).Error
}

func (r *certificateRepository) CountByStatus(ctx context.Context) (map[model.CertificateStatus]int64, error) {
	type statusCount struct {
		Status model.CertificateStatus
		Count  int64
	}

	var rows []statusCount
	if err := r.db.WithContext(ctx).
		Model(&model.Certificate{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[model.CertificateStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *certificateRepository) CountByPlatform(ctx context.Context) (map[string]int64, error) {
	type platformCount struct {
		Platform string
		Count    int64
	}

	var rows []platformCount
	if err := r.db.WithContext(ctx).
		Model(&model.Certificate{}).
		Select("platform, count(*) as count").
		Group("platform").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Platform] = row.Count
	}
	return counts, nil
}

func (r *certificateRepository) CountStalePending(ctx context.Context, olderThan time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Certificate{}).
		Where("status = ? AND created_at < ?", model.StatusPending, olderThan).
		Count(&count).Error
	return count, err
}
