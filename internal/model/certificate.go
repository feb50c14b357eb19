package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CertificateStatus string

const (
	StatusPending  CertificateStatus = "PENDING"
	StatusVerified CertificateStatus = "VERIFIED"
	StatusRejected CertificateStatus = "REJECTED"
)

// Terminal reports whether the status is an end state of the review flow.
func (s CertificateStatus) Terminal() bool {
	return s == StatusVerified || s == StatusRejected
}

func (s CertificateStatus) Valid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusRejected:
		return true
	}
	return false
}

type Certificate struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID  uuid.UUID         `gorm:"type:uuid;not null;index" json:"student_id"`
	Student    *User             `gorm:"constraint:OnDelete:CASCADE" json:"student,omitempty"`
	Title      string            `gorm:"size:255;not null" json:"title"`
	Platform   string            `gorm:"size:100;not null" json:"platform"`
	IssuedDate time.Time         `gorm:"type:date;not null" json:"issued_date"`
	FileURL    string            `gorm:"type:text;not null" json:"file_url"`
	Status     CertificateStatus `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	Remarks    string            `gorm:"type:text" json:"remarks"`

	// VerifiedBy and VerifiedAt are set together by a transition, never
	// independently.
	VerifiedBy *uuid.UUID `gorm:"type:uuid" json:"verified_by,omitempty"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`

	// AnalysisHint is an optional machine-generated summary of the uploaded
	// scan, for reviewers. Never authoritative.
	AnalysisHint *string `gorm:"type:text" json:"analysis_hint,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (c *Certificate) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
