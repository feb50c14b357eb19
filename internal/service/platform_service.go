package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"anoa.com/certhub/internal/model"
	"anoa.com/certhub/internal/repository"
	"anoa.com/certhub/pkg/apperror"
	"gorm.io/gorm"
)

type CreatePlatformInput struct {
	Name  string  `json:"name" binding:"required,max=100"`
	Color string  `json:"color" binding:"omitempty,max=50"`
	Icon  *string `json:"icon" binding:"omitempty,max=255"`
}

type PlatformService interface {
	Create(ctx context.Context, input CreatePlatformInput) (*model.Platform, error)
	List(ctx context.Context) ([]*model.Platform, error)
}

type platformService struct {
	repo repository.PlatformRepository
}

func NewPlatformService(repo repository.PlatformRepository) PlatformService {
	return &platformService{repo: repo}
}

func (s *platformService) Create(ctx context.Context, input CreatePlatformInput) (*model.Platform, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: platform name is required", apperror.ErrValidation)
	}

	if _, err := s.repo.FindByName(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: platform %q", apperror.ErrConflict, name)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	platform := &model.Platform{
		Name: name,
		Icon: input.Icon,
	}
	if input.Color != "" {
		platform.Color = input.Color
	}

	if err := s.repo.Create(ctx, platform); err != nil {
		return nil, err
	}
	return platform, nil
}

func (s *platformService) List(ctx context.Context) ([]*model.Platform, error) {
	return s.repo.FindAll(ctx)
}
