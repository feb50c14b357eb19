package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"anoa.com/certhub/internal/model"
	"anoa.com/certhub/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory fakes for the repository and side-effect interfaces. They return
// gorm.ErrRecordNotFound on misses so the services' errors.Is checks behave
// the same as against a real database.

type fakeCertRepo struct {
	mu    sync.Mutex
	certs map[uuid.UUID]*model.Certificate
	// users backs FindByIDWithStudent's preload.
	users *fakeUserRepo

	createErr error
	// casRows overrides UpdateStatusIf's row count when >= 0.
	casRows int64
}

func newFakeCertRepo() *fakeCertRepo {
	return &fakeCertRepo{certs: make(map[uuid.UUID]*model.Certificate), casRows: -1}
}

func (r *fakeCertRepo) Create(ctx context.Context, cert *model.Certificate) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cert.ID == uuid.Nil {
		cert.ID = uuid.New()
	}
	if cert.Status == "" {
		cert.Status = model.StatusPending
	}
	copied := *cert
	r.certs[cert.ID] = &copied
	return nil
}

func (r *fakeCertRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cert, ok := r.certs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *cert
	return &copied, nil
}

func (r *fakeCertRepo) FindByIDWithStudent(ctx context.Context, id uuid.UUID) (*model.Certificate, error) {
	cert, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.users != nil {
		if student, err := r.users.FindByID(ctx, cert.StudentID); err == nil {
			cert.Student = student
		}
	}
	return cert, nil
}

func (r *fakeCertRepo) FindByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Certificate
	for _, cert := range r.certs {
		if cert.StudentID == studentID {
			copied := *cert
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeCertRepo) FindAll(ctx context.Context, status model.CertificateStatus) ([]*model.Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Certificate
	for _, cert := range r.certs {
		if status != "" && cert.Status != status {
			continue
		}
		copied := *cert
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeCertRepo) FindByStudentIDs(ctx context.Context, studentIDs []uuid.UUID, status model.CertificateStatus) ([]*model.Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make(map[uuid.UUID]bool, len(studentIDs))
	for _, id := range studentIDs {
		ids[id] = true
	}
	var out []*model.Certificate
	for _, cert := range r.certs {
		if !ids[cert.StudentID] {
			continue
		}
		if status != "" && cert.Status != status {
			continue
		}
		copied := *cert
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeCertRepo) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected model.CertificateStatus, update repository.StatusUpdate) (int64, error) {
	if r.casRows >= 0 {
		return r.casRows, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cert, ok := r.certs[id]
	if !ok || cert.Status != expected {
		return 0, nil
	}
	cert.Status = update.Status
	cert.Remarks = update.Remarks
	verifiedBy := update.VerifiedBy
	verifiedAt := update.VerifiedAt
	cert.VerifiedBy = &verifiedBy
	cert.VerifiedAt = &verifiedAt
	return 1, nil
}

func (r *fakeCertRepo) UpdateAnalysisHint(ctx context.Context, id uuid.UUID, hint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cert, ok := r.certs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cert.AnalysisHint = &hint
	return nil
}

func (r *fakeCertRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.certs, id)
	return nil
}

func (r *fakeCertRepo) CountByStatus(ctx context.Context) (map[model.CertificateStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[model.CertificateStatus]int64)
	for _, cert := range r.certs {
		counts[cert.Status]++
	}
	return counts, nil
}

func (r *fakeCertRepo) CountByPlatform(ctx context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, cert := range r.certs {
		counts[cert.Platform]++
	}
	return counts, nil
}

func (r *fakeCertRepo) CountStalePending(ctx context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, cert := range r.certs {
		if cert.Status == model.StatusPending && cert.CreatedAt.Before(olderThan) {
			count++
		}
	}
	return count, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User

	deleted []uuid.UUID
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
	for _, u := range users {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByRollNumber(ctx context.Context, rollNumber string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.RollNumber != nil && *user.RollNumber == rollNumber {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindAll(ctx context.Context, role model.UserRole) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.User
	for _, user := range r.users {
		if role != "" && user.Role != role {
			continue
		}
		out = append(out, user)
	}
	return out, nil
}

func (r *fakeUserRepo) FindFirstStaff(ctx context.Context) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Role.IsStaff() {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.users, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeUserRepo) CountByRole(ctx context.Context) (map[model.UserRole]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[model.UserRole]int64)
	for _, user := range r.users {
		counts[user.Role]++
	}
	return counts, nil
}

type enrollment struct {
	classID   uuid.UUID
	studentID uuid.UUID
}

type fakeClassRepo struct {
	mu          sync.Mutex
	classes     map[uuid.UUID]*model.Class
	enrollments []enrollment
}

func newFakeClassRepo() *fakeClassRepo {
	return &fakeClassRepo{classes: make(map[uuid.UUID]*model.Class)}
}

func (r *fakeClassRepo) Create(ctx context.Context, class *model.Class) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if class.ID == uuid.Nil {
		class.ID = uuid.New()
	}
	r.classes[class.ID] = class
	return nil
}

func (r *fakeClassRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	class, ok := r.classes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return class, nil
}

func (r *fakeClassRepo) FindByName(ctx context.Context, name string) (*model.Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, class := range r.classes {
		if class.Name == name {
			return class, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeClassRepo) FindAll(ctx context.Context) ([]*model.Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Class
	for _, class := range r.classes {
		out = append(out, class)
	}
	return out, nil
}

func (r *fakeClassRepo) Enroll(ctx context.Context, classID uuid.UUID, studentIDs []uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var inserted int64
	for _, studentID := range studentIDs {
		exists := false
		for _, e := range r.enrollments {
			if e.classID == classID && e.studentID == studentID {
				exists = true
				break
			}
		}
		if !exists {
			r.enrollments = append(r.enrollments, enrollment{classID: classID, studentID: studentID})
			inserted++
		}
	}
	return inserted, nil
}

func (r *fakeClassRepo) FindStudents(ctx context.Context, classID uuid.UUID) ([]*model.User, error) {
	return nil, nil
}

func (r *fakeClassRepo) StudentCount(ctx context.Context, classID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, e := range r.enrollments {
		if e.classID == classID {
			count++
		}
	}
	return count, nil
}

func (r *fakeClassRepo) StudentIDsByTeacher(ctx context.Context, teacherID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []uuid.UUID
	for _, e := range r.enrollments {
		class, ok := r.classes[e.classID]
		if ok && class.TeacherID == teacherID {
			out = append(out, e.studentID)
		}
	}
	return out, nil
}

func (r *fakeClassRepo) TeachesStudent(ctx context.Context, teacherID, studentID uuid.UUID) (bool, error) {
	ids, _ := r.StudentIDsByTeacher(ctx, teacherID)
	for _, id := range ids {
		if id == studentID {
			return true, nil
		}
	}
	return false, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*model.AuditLog
	failAll bool
}

func (r *fakeAuditRepo) Create(ctx context.Context, entry *model.AuditLog) error {
	if r.failAll {
		return errors.New("audit store down")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeAuditRepo) FindRecent(ctx context.Context, limit int) ([]*model.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > len(r.entries) {
		limit = len(r.entries)
	}
	out := make([]*model.AuditLog, 0, limit)
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.entries[i])
	}
	return out, nil
}

func (r *fakeAuditRepo) FindBefore(ctx context.Context, cursor time.Time, limit int) ([]*model.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var older []*model.AuditLog
	for _, e := range r.entries {
		if e.CreatedAt.Before(cursor) {
			older = append(older, e)
		}
	}
	sort.Slice(older, func(i, j int) bool { return older[i].CreatedAt.After(older[j].CreatedAt) })
	if limit < len(older) {
		older = older[:limit]
	}
	return older, nil
}

func (r *fakeAuditRepo) byAction(action model.AuditAction) []*model.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AuditLog
	for _, e := range r.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type fakeStorage struct {
	uploads   int
	deletes   []string
	uploadErr error
}

func (s *fakeStorage) UploadFile(ctx context.Context, r io.Reader, folder, fileName string) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	s.uploads++
	return "https://files.example.com/" + folder + "/" + fileName, nil
}

func (s *fakeStorage) DeleteFile(ctx context.Context, fileURL string) error {
	s.deletes = append(s.deletes, fileURL)
	return nil
}

type sentMail struct {
	to      string
	subject string
}

type fakeMailer struct {
	mu      sync.Mutex
	sent    []sentMail
	sendErr error
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, text, html string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, subject: subject})
	return nil
}

type fakeNotifications struct {
	mu      sync.Mutex
	created []*model.Notification
}

func (f *fakeNotifications) CreateNotification(ctx context.Context, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, n)
	return nil
}

func (f *fakeNotifications) GetNotifications(userID uuid.UUID, limit, offset int) ([]model.Notification, error) {
	return nil, nil
}

func (f *fakeNotifications) MarkAsRead(id uuid.UUID) error               { return nil }
func (f *fakeNotifications) MarkAllAsRead(userID uuid.UUID) error        { return nil }
func (f *fakeNotifications) UnreadCount(userID uuid.UUID) (int64, error) { return 0, nil }
