package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookList is a school's required-books list for a grade and year.
type BookList struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SchoolID     uuid.UUID  `gorm:"column:school_id;type:uuid;not null;index" json:"school_id"`
	Grade        string     `gorm:"column:grade;not null" json:"grade"`
	AcademicYear string     `gorm:"column:academic_year" json:"academic_year"`
	Textbooks    []Textbook `gorm:"many2many:book_list_textbooks" json:"textbooks,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (BookList) TableName() string {
	return "BookLists"
}

func (b *BookList) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
