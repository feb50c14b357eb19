package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Class struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	CourseName string    `gorm:"size:255;not null" json:"course_name"`
	TeacherID  uuid.UUID `gorm:"type:uuid;not null;index" json:"teacher_id"`
	Teacher    *User     `gorm:"foreignKey:TeacherID" json:"teacher,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (c *Class) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Enrollment links a student to a class. The (class, student) pair is
// unique; re-enrolling is a no-op.
type Enrollment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClassID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_class_student" json:"class_id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_class_student" json:"student_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
