package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleStudent UserRole = "STUDENT"
	RoleTeacher UserRole = "TEACHER"
	RoleAdmin   UserRole = "ADMIN"
)

// IsStaff reports whether the role may review certificates.
func (r UserRole) IsStaff() bool {
	return r == RoleTeacher || r == RoleAdmin
}

func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         UserRole  `gorm:"size:20;not null;default:STUDENT" json:"role"`
	AvatarURL    *string   `gorm:"type:text" json:"avatar_url,omitempty"`

	// Student-only profile fields.
	Department *string `gorm:"size:100" json:"department,omitempty"`
	ClassName  *string `gorm:"size:100" json:"class_name,omitempty"`
	Section    *string `gorm:"size:20" json:"section,omitempty"`
	RollNumber *string `gorm:"size:50;uniqueIndex" json:"roll_number,omitempty"`
	Mobile     *string `gorm:"size:20" json:"mobile,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
