package repository

import (
	"context"

	"anoa.com/certhub/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ClassRepository interface {
	Create(ctx context.Context, class *model.Class) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Class, error)
	FindByName(ctx context.Context, name string) (*model.Class, error)
	FindAll(ctx context.Context) ([]*model.Class, error)
	// Enroll inserts (class, student) pairs, silently skipping pairs that
	// already exist. Returns the number of rows actually inserted.
	Enroll(ctx context.Context, classID uuid.UUID, studentIDs []uuid.UUID) (int64, error)
	FindStudents(ctx context.Context, classID uuid.UUID) ([]*model.User, error)
	StudentCount(ctx context.Context, classID uuid.UUID) (int64, error)
	// StudentIDsByTeacher returns ids of every student enrolled in any class
	// owned by the teacher.
	StudentIDsByTeacher(ctx context.Context, teacherID uuid.UUID) ([]uuid.UUID, error)
	TeachesStudent(ctx context.Context, teacherID, studentID uuid.UUID) (bool, error)
}

type classRepository struct {
	db *gorm.DB
}

func NewClassRepository(db *gorm.DB) ClassRepository {
	return &classRepository{db: db}
}

func (r *classRepository) Create(ctx context.Context, class *model.Class) error {
	return r.db.WithContext(ctx).Create(class).Error
}

func (r *classRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Class, error) {
	var class model.Class
	if err := r.db.WithContext(ctx).
		Preload("Teacher", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "email", "role")
		}).
		First(&class, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &class, nil
}

func (r *classRepository) FindByName(ctx context.Context, name string) (*model.Class, error) {
	var class model.Class
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&class).Error; err != nil {
		return nil, err
	}
	return &class, nil
}

func (r *classRepository) FindAll(ctx context.Context) ([]*model.Class, error) {
	var classes []*model.Class
	if err := r.db.WithContext(ctx).
		Preload("Teacher", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "email", "role")
		}).
		Order("created_at desc").
		Find(&classes).Error; err != nil {
		return nil, err
	}
	return classes, nil
}

func (r *classRepository) Enroll(ctx context.Context, classID uuid.UUID, studentIDs []uuid.UUID) (int64, error) {
	if len(studentIDs) == 0 {
		return 0, nil
	}

	enrollments := make([]model.Enrollment, 0, len(studentIDs))
	for _, studentID := range studentIDs {
		enrollments = append(enrollments, model.Enrollment{
			ClassID:   classID,
			StudentID: studentID,
		})
	}

	// ON CONFLICT DO NOTHING keeps re-enrollment idempotent.
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&enrollments)
	return result.RowsAffected, result.Error
}

func (r *classRepository) FindStudents(ctx context.Context, classID uuid.UUID) ([]*model.User, error) {
	var students []*model.User
	if err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Joins("JOIN enrollments ON enrollments.student_id = users.id").
		Where("enrollments.class_id = ?", classID).
		Order("users.name asc").
		Find(&students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

func (r *classRepository) StudentCount(ctx context.Context, classID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("class_id = ?", classID).
		Count(&count).Error
	return count, err
}

func (r *classRepository) StudentIDsByTeacher(ctx context.Context, teacherID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Joins("JOIN classes ON classes.id = enrollments.class_id").
		Where("classes.teacher_id = ?", teacherID).
		Distinct().
		Pluck("enrollments.student_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *classRepository) TeachesStudent(ctx context.Context, teacherID, studentID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Joins("JOIN classes ON classes.id = enrollments.class_id").
		Where("classes.teacher_id = ? AND enrollments.student_id = ?", teacherID, studentID).
		Count(&count).Error
	return count > 0, err
}
