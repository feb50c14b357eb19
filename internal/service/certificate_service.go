package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"anoa.com/certhub/internal/config"
	"anoa.com/certhub/internal/model"
	"anoa.com/certhub/internal/repository"
	"anoa.com/certhub/pkg/apperror"
	"anoa.com/certhub/pkg/mailer"
	"anoa.com/certhub/pkg/storage"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

const (
	uploadTimeout     = 15 * time.Second
	sideEffectTimeout = 5 * time.Second
)

type SubmitInput struct {
	Title      string `form:"title" binding:"required,max=255"`
	Platform   string `form:"platform" binding:"required,max=100"`
	IssuedDate string `form:"issued_date" binding:"required,datetime=2006-01-02"`
}

// CertificateFile is the uploaded scan. Bytes are held in memory so the
// blob upload and the analyzer can both read them.
type CertificateFile struct {
	Data     []byte
	FileName string
	MimeType string
}

// PublicCertificate is the unauthenticated projection served from the
// verification link. Certificate ids act as bearer tokens, so this carries
// no ownership details beyond the display name.
type PublicCertificate struct {
	ID           uuid.UUID               `json:"id"`
	Title        string                  `json:"title"`
	Platform     string                  `json:"platform"`
	IssuedDate   string                  `json:"issued_date"`
	FileURL      string                  `json:"file_url"`
	Status       model.CertificateStatus `json:"status"`
	Remarks      string                  `json:"remarks,omitempty"`
	StudentName  string                  `json:"student_name"`
	VerifierName string                  `json:"verifier_name,omitempty"`
	VerifiedAt   *time.Time              `json:"verified_at,omitempty"`
}

type CertificateService interface {
	Submit(ctx context.Context, student *model.User, input SubmitInput, file *CertificateFile) (*model.Certificate, error)
	Transition(ctx context.Context, certID uuid.UUID, newStatus model.CertificateStatus, actor *model.User, remarks string) (*model.Certificate, error)
	Delete(ctx context.Context, certID uuid.UUID, actor *model.User) error
	ListForActor(ctx context.Context, actor *model.User, status model.CertificateStatus) ([]*model.Certificate, error)
	PublicLookup(ctx context.Context, certID uuid.UUID) (*PublicCertificate, error)
}

type certificateService struct {
	certRepo      repository.CertificateRepository
	userRepo      repository.UserRepository
	classRepo     repository.ClassRepository
	fileStorage   storage.FileStorage
	mail          mailer.Mailer
	audit         AuditService
	notifications NotificationService
	search        SearchService
	analyzer      AnalyzerService
	cfg           *config.Config
	sanitizer     *bluemonday.Policy
}

func NewCertificateService(
	certRepo repository.CertificateRepository,
	userRepo repository.UserRepository,
	classRepo repository.ClassRepository,
	fileStorage storage.FileStorage,
	mail mailer.Mailer,
	audit AuditService,
	notifications NotificationService,
	search SearchService,
	analyzer AnalyzerService,
	cfg *config.Config,
) CertificateService {
	return &certificateService{
		certRepo:      certRepo,
		userRepo:      userRepo,
		classRepo:     classRepo,
		fileStorage:   fileStorage,
		mail:          mail,
		audit:         audit,
		notifications: notifications,
		search:        search,
		analyzer:      analyzer,
		cfg:           cfg,
		sanitizer:     bluemonday.StrictPolicy(),
	}
}

func (s *certificateService) Submit(ctx context.Context, student *model.User, input SubmitInput, file *CertificateFile) (*model.Certificate, error) {
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Platform) == "" {
		return nil, fmt.Errorf("%w: title and platform are required", apperror.ErrValidation)
	}

	issuedDate, err := time.Parse("2006-01-02", input.IssuedDate)
	if err != nil {
		return nil, fmt.Errorf("%w: issued date must be YYYY-MM-DD", apperror.ErrValidation)
	}

	if file == nil || len(file.Data) == 0 {
		return nil, fmt.Errorf("%w: certificate file is required", apperror.ErrValidation)
	}

	// Blob upload first: a failed upload aborts creation so no record ever
	// carries a dangling file reference.
	uploadCtx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	fileURL, err := s.fileStorage.UploadFile(uploadCtx, bytes.NewReader(file.Data), s.cfg.CloudinaryUploadFolder, file.FileName)
	if err != nil {
		return nil, fmt.Errorf("%w: certificate upload failed: %v", apperror.ErrUnavailable, err)
	}

	cert := &model.Certificate{
		StudentID:  student.ID,
		Title:      s.sanitizer.Sanitize(input.Title),
		Platform:   s.sanitizer.Sanitize(input.Platform),
		IssuedDate: issuedDate,
		FileURL:    fileURL,
		Status:     model.StatusPending,
	}

	if err := s.certRepo.Create(ctx, cert); err != nil {
		return nil, err
	}

	s.audit.Append(ctx, student.ID, student.Name, model.ActionUpload,
		fmt.Sprintf("Certificate %s (%q, %s) uploaded", cert.ID, cert.Title, cert.Platform))

	s.indexCertificate(cert, student.Name)

	if s.analyzer != nil {
		go s.analyzeInBackground(cert.ID, file)
	}

	return cert, nil
}

// analyzeInBackground runs the scan analyzer after submission returns. The
// hint is purely advisory, so failures are only logged.
func (s *certificateService) analyzeInBackground(certID uuid.UUID, file *CertificateFile) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	analysis, err := s.analyzer.AnalyzeImage(ctx, file.Data, file.MimeType)
	if err != nil {
		log.Printf("[Analyzer] analysis of certificate %s failed: %v", certID, err)
		return
	}

	hint := fmt.Sprintf("%s / %s (%s) — confidence %.2f. %s",
		analysis.CourseTitle, analysis.Platform, analysis.StudentName,
		analysis.Confidence, analysis.ExtractedDetails)
	if err := s.certRepo.UpdateAnalysisHint(ctx, certID, s.sanitizer.Sanitize(hint)); err != nil {
		log.Printf("[Analyzer] failed to store hint for certificate %s: %v", certID, err)
	}
}

func (s *certificateService) Transition(ctx context.Context, certID uuid.UUID, newStatus model.CertificateStatus, actor *model.User, remarks string) (*model.Certificate, error) {
	if newStatus != model.StatusVerified && newStatus != model.StatusRejected {
		return nil, fmt.Errorf("%w: status must be VERIFIED or REJECTED", apperror.ErrValidation)
	}

	if !actor.Role.IsStaff() {
		return nil, fmt.Errorf("%w: only teachers and admins may review certificates", apperror.ErrForbidden)
	}

	cert, err := s.certRepo.FindByIDWithStudent(ctx, certID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: certificate %s", apperror.ErrNotFound, certID)
		}
		return nil, err
	}

	if s.cfg.ScopeTeacherToClasses && actor.Role == model.RoleTeacher {
		teaches, err := s.classRepo.TeachesStudent(ctx, actor.ID, cert.StudentID)
		if err != nil {
			return nil, err
		}
		if !teaches {
			return nil, fmt.Errorf("%w: certificate owner is not in any of your classes", apperror.ErrForbidden)
		}
	}

	// A certificate already reviewed stays reviewed: repeating the call is a
	// no-op success so a double click cannot spam the student with emails.
	// AllowRefinalize restores the old overwrite behavior.
	if cert.Status.Terminal() && !s.cfg.AllowRefinalize {
		return cert, nil
	}

	remarks = s.sanitizer.Sanitize(remarks)
	now := time.Now()

	update := repository.StatusUpdate{
		Status:     newStatus,
		Remarks:    remarks,
		VerifiedBy: actor.ID,
		VerifiedAt: now,
	}

	// Compare-and-swap on the loaded status: if a concurrent transition got
	// there first, surface the lost update instead of silently overwriting.
	rows, err := s.certRepo.UpdateStatusIf(ctx, certID, cert.Status, update)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: certificate was reviewed concurrently, reload and retry", apperror.ErrConflict)
	}

	cert.Status = newStatus
	cert.Remarks = remarks
	cert.VerifiedBy = &actor.ID
	cert.VerifiedAt = &now

	// Side effects are independent failure domains: the status change above
	// is already durable and none of these may undo or fail it.
	action := model.ActionVerify
	if newStatus == model.StatusRejected {
		action = model.ActionReject
	}
	s.audit.Append(ctx, actor.ID, actor.Name, action,
		fmt.Sprintf("Certificate %s marked as %s", certID, newStatus))

	s.notifyOwner(ctx, cert, actor, remarks)
	s.emailOwner(cert, remarks)

	studentName := ""
	if cert.Student != nil {
		studentName = cert.Student.Name
	}
	s.indexCertificate(cert, studentName)

	return cert, nil
}

func (s *certificateService) notifyOwner(ctx context.Context, cert *model.Certificate, actor *model.User, remarks string) {
	if s.notifications == nil {
		return
	}

	notifType := "certificate_verified"
	message := fmt.Sprintf("Your certificate %q has been verified.", cert.Title)
	if cert.Status == model.StatusRejected {
		notifType = "certificate_rejected"
		message = fmt.Sprintf("Your certificate %q has been rejected.", cert.Title)
	}
	if remarks != "" {
		message = fmt.Sprintf("%s Remarks: %s", message, remarks)
	}

	err := s.notifications.CreateNotification(ctx, &model.Notification{
		UserID:     cert.StudentID,
		ActorID:    actor.ID,
		EntityID:   cert.ID,
		EntityType: "certificate",
		Type:       notifType,
		Message:    message,
	})
	if err != nil {
		log.Printf("[Notify] failed to create notification for certificate %s: %v", cert.ID, err)
	}
}

func (s *certificateService) emailOwner(cert *model.Certificate, remarks string) {
	if s.mail == nil || cert.Student == nil || cert.Student.Email == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	statusWord := strings.ToLower(string(cert.Status))
	if remarks == "" {
		remarks = "None"
	}

	subject := fmt.Sprintf("Certificate %s: %s", cert.Status, cert.Title)
	text := fmt.Sprintf("Hi %s,\n\nYour certificate for %s has been %s.\nRemarks: %s",
		cert.Student.Name, cert.Title, statusWord, remarks)
	html := fmt.Sprintf("<h3>Hi %s,</h3><p>Your certificate for <b>%s</b> has been <b>%s</b>.</p><p>Remarks: %s</p>",
		cert.Student.Name, cert.Title, statusWord, remarks)

	if err := s.mail.Send(ctx, cert.Student.Email, subject, text, html); err != nil {
		log.Printf("[Mail] failed to email %s about certificate %s: %v", cert.Student.Email, cert.ID, err)
	}
}

func (s *certificateService) indexCertificate(cert *model.Certificate, studentName string) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexCertificate(cert, studentName); err != nil {
		log.Printf("[Search] %v", err)
	}
}

func (s *certificateService) Delete(ctx context.Context, certID uuid.UUID, actor *model.User) error {
	cert, err := s.certRepo.FindByID(ctx, certID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: certificate %s", apperror.ErrNotFound, certID)
		}
		return err
	}

	if actor.Role != model.RoleAdmin && cert.StudentID != actor.ID {
		return fmt.Errorf("%w: only the owner or an admin may delete a certificate", apperror.ErrForbidden)
	}

	if err := s.certRepo.Delete(ctx, certID); err != nil {
		return err
	}

	s.audit.Append(ctx, actor.ID, actor.Name, model.ActionDeleteCert,
		fmt.Sprintf("Certificate %s (%q) deleted", certID, cert.Title))

	// Blob and index cleanup are best-effort; the record is already gone.
	if s.fileStorage != nil {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if err := s.fileStorage.DeleteFile(cleanupCtx, cert.FileURL); err != nil {
			log.Printf("[Storage] failed to delete file for certificate %s: %v", certID, err)
		}
	}
	if s.search != nil {
		if err := s.search.DeleteCertificate(certID.String()); err != nil {
			log.Printf("[Search] %v", err)
		}
	}

	return nil
}

func (s *certificateService) ListForActor(ctx context.Context, actor *model.User, status model.CertificateStatus) ([]*model.Certificate, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status filter %q", apperror.ErrValidation, status)
	}

	switch actor.Role {
	case model.RoleStudent:
		return s.certRepo.FindByStudent(ctx, actor.ID)
	case model.RoleTeacher:
		if s.cfg.ScopeTeacherToClasses {
			studentIDs, err := s.classRepo.StudentIDsByTeacher(ctx, actor.ID)
			if err != nil {
				return nil, err
			}
			return s.certRepo.FindByStudentIDs(ctx, studentIDs, status)
		}
		return s.certRepo.FindAll(ctx, status)
	case model.RoleAdmin:
		return s.certRepo.FindAll(ctx, status)
	}
	return nil, fmt.Errorf("%w: unknown role %q", apperror.ErrForbidden, actor.Role)
}

func (s *certificateService) PublicLookup(ctx context.Context, certID uuid.UUID) (*PublicCertificate, error) {
	cert, err := s.certRepo.FindByIDWithStudent(ctx, certID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: certificate %s", apperror.ErrNotFound, certID)
		}
		return nil, err
	}

	public := &PublicCertificate{
		ID:         cert.ID,
		Title:      cert.Title,
		Platform:   cert.Platform,
		IssuedDate: cert.IssuedDate.Format("2006-01-02"),
		FileURL:    cert.FileURL,
		Status:     cert.Status,
		Remarks:    cert.Remarks,
		VerifiedAt: cert.VerifiedAt,
	}
	if cert.Student != nil {
		public.StudentName = cert.Student.Name
	}

	if cert.VerifiedBy != nil {
		verifier, err := s.userRepo.FindByID(ctx, *cert.VerifiedBy)
		if err == nil {
			public.VerifierName = verifier.Name
		}
	}

	return public, nil
}
