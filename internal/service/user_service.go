package service

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/certhub/internal/model"
	"anoa.com/certhub/internal/repository"
	"anoa.com/certhub/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserService interface {
	ListUsers(ctx context.Context, role model.UserRole) ([]*model.User, error)
	// DeleteUser removes a user and manually cascades their enrollments,
	// notifications and certificates. Admin accounts cannot be removed here.
	DeleteUser(ctx context.Context, targetID uuid.UUID, actor *model.User) error
}

type userService struct {
	repo  repository.UserRepository
	audit AuditService
}

func NewUserService(repo repository.UserRepository, audit AuditService) UserService {
	return &userService{repo: repo, audit: audit}
}

func (s *userService) ListUsers(ctx context.Context, role model.UserRole) ([]*model.User, error) {
	if role != "" && !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role filter %q", apperror.ErrValidation, role)
	}
	return s.repo.FindAll(ctx, role)
}

func (s *userService) DeleteUser(ctx context.Context, targetID uuid.UUID, actor *model.User) error {
	if actor.Role != model.RoleAdmin {
		return fmt.Errorf("%w: only admins may delete users", apperror.ErrForbidden)
	}

	target, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: user %s", apperror.ErrNotFound, targetID)
		}
		return err
	}

	if target.Role == model.RoleAdmin {
		return fmt.Errorf("%w: admin accounts cannot be deleted", apperror.ErrForbidden)
	}

	if err := s.repo.DeleteCascade(ctx, targetID); err != nil {
		return err
	}

	s.audit.Append(ctx, actor.ID, actor.Name, model.ActionDeleteUser,
		fmt.Sprintf("User %s (%s, %s) deleted with owned certificates and enrollments", target.Name, target.Email, targetID))

	return nil
}
