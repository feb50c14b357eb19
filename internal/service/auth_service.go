package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"anoa.com/certhub/internal/config"
	"anoa.com/certhub/internal/model"
	"anoa.com/certhub/internal/repository"
	"anoa.com/certhub/pkg/apperror"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"omitempty,oneof=STUDENT TEACHER ADMIN"`

	// Student profile fields.
	Department *string `json:"department"`
	ClassName  *string `json:"class_name"`
	Section    *string `json:"section"`
	RollNumber *string `json:"roll_number"`
	Mobile     *string `json:"mobile"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	User        *model.User `json:"user"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResponse, error)
	Login(ctx context.Context, input LoginInput) (*AuthResponse, error)
}

type authService struct {
	repo   repository.UserRepository
	roster RosterService
	audit  AuditService
	cfg    *config.Config
}

func NewAuthService(repo repository.UserRepository, roster RosterService, audit AuditService, cfg *config.Config) AuthService {
	return &authService{
		repo:   repo,
		roster: roster,
		audit:  audit,
		cfg:    cfg,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	role := model.UserRole(input.Role)
	if input.Role == "" {
		role = model.RoleStudent
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", apperror.ErrValidation, input.Role)
	}

	if err := s.ensureUserUnique(ctx, input.Email, input.RollNumber); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	avatarURL := fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/svg?seed=%s", url.QueryEscape(input.Name))

	user := &model.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		Role:         role,
		AvatarURL:    &avatarURL,
	}

	if role == model.RoleStudent {
		// Blank optional fields become NULL so the unique index on
		// roll_number never collides on empty strings.
		user.Department = normalizeOptional(input.Department)
		user.ClassName = normalizeOptional(input.ClassName)
		user.Section = normalizeOptional(input.Section)
		user.RollNumber = normalizeOptional(input.RollNumber)
		user.Mobile = normalizeOptional(input.Mobile)
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	// Class sync before the response so a rejected unknown class surfaces to
	// the caller; the user row stays either way, matching the original flow.
	if role == model.RoleStudent && user.ClassName != nil {
		if err := s.roster.SyncRegistration(ctx, user, *user.ClassName); err != nil {
			if errors.Is(err, apperror.ErrValidation) {
				return nil, err
			}
			// Non-validation sync failures do not block registration.
		}
	}

	s.audit.Append(ctx, user.ID, user.Name, model.ActionRegister,
		fmt.Sprintf("User registered as %s", role))

	return s.buildAuthResponse(user)
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid email or password", apperror.ErrUnauthorized)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", apperror.ErrUnauthorized)
	}

	s.audit.Append(ctx, user.ID, user.Name, model.ActionLogin, "User logged in")

	return s.buildAuthResponse(user)
}

// normalizeOptional trims an optional field and turns blanks into nil.
func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (s *authService) ensureUserUnique(ctx context.Context, email string, rollNumber *string) error {
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return fmt.Errorf("%w: email %s is already registered", apperror.ErrConflict, email)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if rollNumber != nil && *rollNumber != "" {
		if _, err := s.repo.FindByRollNumber(ctx, *rollNumber); err == nil {
			return fmt.Errorf("%w: roll number %s is already registered", apperror.ErrConflict, *rollNumber)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	return nil
}

func (s *authService) buildAuthResponse(user *model.User) (*AuthResponse, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &AuthResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.cfg.JWTTTL.Seconds()),
		User:        user,
	}, nil
}
