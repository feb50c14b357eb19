package repository

import (
	"context"

	"anoa.com/certhub/internal/model"
	"gorm.io/gorm"
)

type PlatformRepository interface {
	Create(ctx context.Context, platform *model.Platform) error
	FindByName(ctx context.Context, name string) (*model.Platform, error)
	FindAll(ctx context.Context) ([]*model.Platform, error)
}

type platformRepository struct {
	db *gorm.DB
}

func NewPlatformRepository(db *gorm.DB) PlatformRepository {
	return &platformRepository{db: db}
}

func (r *platformRepository) Create(ctx context.Context, platform *model.Platform) error {
	return r.db.WithContext(ctx).Create(platform).Error
}

func (r *platformRepository) FindByName(ctx context.Context, name string) (*model.Platform, error) {
	var platform model.Platform
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&platform).Error; err != nil {
		return nil, err
	}
	return &platform, nil
}

func (r *platformRepository) FindAll(ctx context.Context) ([]*model.Platform, error) {
	var platforms []*model.Platform
	if err := r.db.WithContext(ctx).Order("name asc").Find(&platforms).Error; err != nil {
		return nil, err
	}
	return platforms, nil
}
