package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"anoa.com/certhub/internal/config"
	"anoa.com/certhub/internal/model"
	"anoa.com/certhub/internal/repository"
	"anoa.com/certhub/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateClassInput struct {
	Name       string    `json:"name" binding:"required,max=100"`
	CourseName string    `json:"course_name" binding:"required,max=255"`
	TeacherID  uuid.UUID `json:"teacher_id" binding:"required"`
}

type EnrollInput struct {
	StudentIDs []uuid.UUID `json:"student_ids" binding:"required,min=1"`
}

// ClassSummary is the console view of a class.
type ClassSummary struct {
	*model.Class
	TeacherName  string `json:"teacher_name"`
	StudentCount int64  `json:"student_count"`
}

type RosterService interface {
	CreateClass(ctx context.Context, input CreateClassInput, actor *model.User) (*model.Class, error)
	Enroll(ctx context.Context, classID uuid.UUID, studentIDs []uuid.UUID, actor *model.User) error
	ListClasses(ctx context.Context) ([]*ClassSummary, error)
	ClassStudents(ctx context.Context, classID uuid.UUID) ([]*model.User, error)
	// SyncRegistration enrolls a freshly registered student into the class
	// they named, creating the class first when it does not exist yet and
	// auto-creation is enabled.
	SyncRegistration(ctx context.Context, student *model.User, className string) error
}

type rosterService struct {
	classRepo repository.ClassRepository
	userRepo  repository.UserRepository
	audit     AuditService
	cfg       *config.Config
}

func NewRosterService(classRepo repository.ClassRepository, userRepo repository.UserRepository, audit AuditService, cfg *config.Config) RosterService {
	return &rosterService{
		classRepo: classRepo,
		userRepo:  userRepo,
		audit:     audit,
		cfg:       cfg,
	}
}

func (s *rosterService) CreateClass(ctx context.Context, input CreateClassInput, actor *model.User) (*model.Class, error) {
	teacher, err := s.userRepo.FindByID(ctx, input.TeacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: teacher %s does not exist", apperror.ErrValidation, input.TeacherID)
		}
		return nil, err
	}
	if !teacher.Role.IsStaff() {
		return nil, fmt.Errorf("%w: class owner must be a teacher or admin", apperror.ErrValidation)
	}

	if _, err := s.classRepo.FindByName(ctx, input.Name); err == nil {
		return nil, fmt.Errorf("%w: class %q", apperror.ErrConflict, input.Name)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	class := &model.Class{
		Name:       strings.TrimSpace(input.Name),
		CourseName: strings.TrimSpace(input.CourseName),
		TeacherID:  teacher.ID,
	}
	if err := s.classRepo.Create(ctx, class); err != nil {
		return nil, err
	}

	s.audit.Append(ctx, actor.ID, actor.Name, model.ActionCreateClass,
		fmt.Sprintf("Class %q (%s) created for teacher %s", class.Name, class.CourseName, teacher.Name))

	return class, nil
}

func (s *rosterService) Enroll(ctx context.Context, classID uuid.UUID, studentIDs []uuid.UUID, actor *model.User) error {
	if _, err := s.classRepo.FindByID(ctx, classID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: class %s", apperror.ErrNotFound, classID)
		}
		return err
	}

	inserted, err := s.classRepo.Enroll(ctx, classID, studentIDs)
	if err != nil {
		return err
	}

	// Duplicates are skipped, not errors; only log real additions.
	if inserted > 0 {
		s.audit.Append(ctx, actor.ID, actor.Name, model.ActionEnroll,
			fmt.Sprintf("%d student(s) enrolled into class %s", inserted, classID))
	}

	return nil
}

func (s *rosterService) ListClasses(ctx context.Context) ([]*ClassSummary, error) {
	classes, err := s.classRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]*ClassSummary, 0, len(classes))
	for _, class := range classes {
		count, err := s.classRepo.StudentCount(ctx, class.ID)
		if err != nil {
			return nil, err
		}

		summary := &ClassSummary{Class: class, StudentCount: count}
		if class.Teacher != nil {
			summary.TeacherName = class.Teacher.Name
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

func (s *rosterService) ClassStudents(ctx context.Context, classID uuid.UUID) ([]*model.User, error) {
	if _, err := s.classRepo.FindByID(ctx, classID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: class %s", apperror.ErrNotFound, classID)
		}
		return nil, err
	}
	return s.classRepo.FindStudents(ctx, classID)
}

func (s *rosterService) SyncRegistration(ctx context.Context, student *model.User, className string) error {
	className = strings.TrimSpace(className)
	if className == "" {
		return nil
	}

	class, err := s.classRepo.FindByName(ctx, className)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if !s.cfg.AutoCreateClassOnRegister {
			return fmt.Errorf("%w: class %q does not exist", apperror.ErrValidation, className)
		}

		// Fabricate the class with whatever staff member exists, mirroring
		// the original system. With no staff yet, skip enrollment entirely
		// rather than fail registration.
		staff, err := s.userRepo.FindFirstStaff(ctx)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("[Roster] no staff user available to own auto-created class %q, skipping", className)
				return nil
			}
			return err
		}

		class = &model.Class{
			Name:       className,
			CourseName: className,
			TeacherID:  staff.ID,
		}
		if err := s.classRepo.Create(ctx, class); err != nil {
			return err
		}

		s.audit.Append(ctx, student.ID, student.Name, model.ActionCreateClass,
			fmt.Sprintf("Class %q auto-created at registration, owned by %s", className, staff.Name))
	}

	_, err = s.classRepo.Enroll(ctx, class.ID, []uuid.UUID{student.ID})
	return err
}
