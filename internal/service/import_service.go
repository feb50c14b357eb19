package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"anoa.com/certhub/internal/model"
	"anoa.com/certhub/internal/repository"
	"anoa.com/certhub/pkg/apperror"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// importRow is one student from a bulk upload. Column order:
// name, email, roll_number, department, class, section, mobile.
type importRow struct {
	Name       string
	Email      string
	RollNumber string
	Department string
	ClassName  string
	Section    string
	Mobile     string
}

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	Created int        `json:"created"`
	Skipped int        `json:"skipped"`
	Errors  []RowError `json:"errors,omitempty"`
}

type ImportService interface {
	// ImportStudents reads an .xlsx or .csv roster and registers each row as
	// a STUDENT with a default password. Bad rows are reported per row and
	// never abort the batch.
	ImportStudents(ctx context.Context, fileName string, data []byte, actor *model.User) (*ImportResult, error)
}

type importService struct {
	userRepo        repository.UserRepository
	roster          RosterService
	audit           AuditService
	defaultPassword string
}

func NewImportService(userRepo repository.UserRepository, roster RosterService, audit AuditService, defaultPassword string) ImportService {
	if defaultPassword == "" {
		defaultPassword = "changeme123"
	}
	return &importService{
		userRepo:        userRepo,
		roster:          roster,
		audit:           audit,
		defaultPassword: defaultPassword,
	}
}

func (s *importService) ImportStudents(ctx context.Context, fileName string, data []byte, actor *model.User) (*ImportResult, error) {
	if actor.Role != model.RoleAdmin {
		return nil, fmt.Errorf("%w: only admins may import students", apperror.ErrForbidden)
	}

	var (
		rows []importRow
		err  error
	)
	switch {
	case strings.HasSuffix(strings.ToLower(fileName), ".xlsx"):
		rows, err = parseXLSX(data)
	case strings.HasSuffix(strings.ToLower(fileName), ".csv"):
		rows, err = parseCSV(data)
	default:
		return nil, fmt.Errorf("%w: file must be .xlsx or .csv", apperror.ErrValidation)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrValidation, err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(s.defaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash default password: %w", err)
	}

	result := &ImportResult{}
	for i, row := range rows {
		// Rows are 1-based for humans, plus the header row.
		rowNum := i + 2

		if row.Name == "" || row.Email == "" {
			result.Skipped++
			result.Errors = append(result.Errors, RowError{Row: rowNum, Message: "name and email are required"})
			continue
		}

		if _, err := s.userRepo.FindByEmail(ctx, row.Email); err == nil {
			result.Skipped++
			result.Errors = append(result.Errors, RowError{Row: rowNum, Message: fmt.Sprintf("email %s already registered", row.Email)})
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		if row.RollNumber != "" {
			if _, err := s.userRepo.FindByRollNumber(ctx, row.RollNumber); err == nil {
				result.Skipped++
				result.Errors = append(result.Errors, RowError{Row: rowNum, Message: fmt.Sprintf("roll number %s already registered", row.RollNumber)})
				continue
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}

		user := &model.User{
			Name:         row.Name,
			Email:        row.Email,
			PasswordHash: string(hashed),
			Role:         model.RoleStudent,
		}
		if row.RollNumber != "" {
			user.RollNumber = &row.RollNumber
		}
		if row.Department != "" {
			user.Department = &row.Department
		}
		if row.ClassName != "" {
			user.ClassName = &row.ClassName
		}
		if row.Section != "" {
			user.Section = &row.Section
		}
		if row.Mobile != "" {
			user.Mobile = &row.Mobile
		}

		if err := s.userRepo.Create(ctx, user); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, RowError{Row: rowNum, Message: err.Error()})
			continue
		}

		if row.ClassName != "" {
			if err := s.roster.SyncRegistration(ctx, user, row.ClassName); err != nil {
				result.Errors = append(result.Errors, RowError{Row: rowNum, Message: fmt.Sprintf("created but not enrolled: %v", err)})
			}
		}

		result.Created++
	}

	s.audit.Append(ctx, actor.ID, actor.Name, model.ActionImport,
		fmt.Sprintf("Bulk import %q: %d created, %d skipped", fileName, result.Created, result.Skipped))

	return result, nil
}

func parseCSV(data []byte) ([]importRow, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	var rows []importRow
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			continue // header
		}
		rows = append(rows, rowFromRecord(record))
	}
	return rows, nil
}

func parseXLSX(data []byte) ([]importRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}

	var rows []importRow
	for i, record := range records {
		if i == 0 {
			continue // header
		}
		rows = append(rows, rowFromRecord(record))
	}
	return rows, nil
}

func rowFromRecord(record []string) importRow {
	get := func(i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}
	return importRow{
		Name:       get(0),
		Email:      get(1),
		RollNumber: get(2),
		Department: get(3),
		ClassName:  get(4),
		Section:    get(5),
		Mobile:     get(6),
	}
}
