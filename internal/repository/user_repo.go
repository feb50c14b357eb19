package repository

import (
	"context"

	"anoa.com/certhub/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByRollNumber(ctx context.Context, rollNumber string) (*model.User, error)
	FindAll(ctx context.Context, role model.UserRole) ([]*model.User, error)
	// FindFirstStaff returns any TEACHER or ADMIN, used when a class has to
	// be fabricated at registration and needs an owner.
	FindFirstStaff(ctx context.Context) (*model.User, error)
	// DeleteCascade removes the user and everything owned by them
	// (enrollments, notifications, certificates) in one transaction.
	DeleteCascade(ctx context.Context, id uuid.UUID) error
	CountByRole(ctx context.Context) (map[model.UserRole]int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByRollNumber(ctx context.Context, rollNumber string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("roll_number = ?", rollNumber).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindAll(ctx context.Context, role model.UserRole) ([]*model.User, error) {
	var users []*model.User
	query := r.db.WithContext(ctx).Order("created_at desc")

	if role != "" {
		query = query.Where("role = ?", role)
	}

	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) FindFirstStaff(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).
		Where("role IN ?", []model.UserRole{model.RoleTeacher, model.RoleAdmin}).
		Order("created_at asc").
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.Enrollment{}, "student_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.Notification{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.Certificate{}, "student_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.User{}, "id = ?", id).Error
	})
}

func (r *userRepository) CountByRole(ctx context.Context) (map[model.UserRole]int64, error) {
	type roleCount struct {
		Role  model.UserRole
		Count int64
	}

	var rows []roleCount
	if err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Select("role, count(*) as count").
		Group("role").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[model.UserRole]int64, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}
