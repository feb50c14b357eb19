package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Platform is an issuing organization tag (e.g. "Coursera"), used for
// categorization only.
type Platform struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Color     string    `gorm:"size:50;default:#64748b" json:"color"`
	Icon      *string   `gorm:"size:255" json:"icon,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (p *Platform) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
