package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Textbook is the catalog entry a listing points at. ISBN optional but
// unique when present.
type Textbook struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Title         string    `gorm:"column:title;not null" json:"title"`
	Author        string    `gorm:"column:author" json:"author"`
	ISBN          *string   `gorm:"column:isbn;uniqueIndex" json:"isbn,omitempty"`
	Grade         string    `gorm:"column:grade" json:"grade"`
	Subject       string    `gorm:"column:subject" json:"subject"`
	Publisher     string    `gorm:"column:publisher" json:"publisher"`
	CoverImageURL string    `gorm:"column:cover_image_url" json:"cover_image_url"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Textbook) TableName() string {
	return "Textbooks"
}

func (t *Textbook) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
