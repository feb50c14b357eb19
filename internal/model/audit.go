package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditAction string

const (
	ActionRegister    AuditAction = "REGISTER"
	ActionLogin       AuditAction = "LOGIN"
	ActionUpload      AuditAction = "UPLOAD"
	ActionVerify      AuditAction = "VERIFY"
	ActionReject      AuditAction = "REJECT"
	ActionDeleteCert  AuditAction = "DELETE_CERT"
	ActionDeleteUser  AuditAction = "DELETE_USER"
	ActionImport      AuditAction = "IMPORT"
	ActionCreateClass AuditAction = "CREATE_CLASS"
	ActionEnroll      AuditAction = "ENROLL"
)

// AuditLog is an append-only record of a security-relevant action. Rows are
// never updated or deleted.
type AuditLog struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID   `gorm:"type:uuid;not null;index" json:"user_id"`
	UserName  string      `gorm:"size:100" json:"user_name"`
	Action    AuditAction `gorm:"size:50;not null;index" json:"action"`
	Details   string      `gorm:"type:text" json:"details"`
	CreatedAt time.Time   `gorm:"autoCreateTime;index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
