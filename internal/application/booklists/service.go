package booklists

import (
	"context"
	"errors"
	"strings"

	"bookbridge-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

// TextbookInput is one entry on a school's required-books list.
type TextbookInput struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	ISBN      string `json:"isbn"`
	Subject   string `json:"subject"`
	Publisher string `json:"publisher"`
}

// Create publishes a school's book list for a grade, get-or-creating
// catalog entries by title+subject.
func (s *Service) Create(ctx context.Context, schoolID uuid.UUID, grade, academicYear string, books []TextbookInput) (*domain.BookList, error) {
	if strings.TrimSpace(grade) == "" {
		return nil, errors.New("Grade is required")
	}
	if len(books) == 0 {
		return nil, errors.New("A book list needs at least one textbook")
	}

	var list *domain.BookList
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		list = &domain.BookList{
			SchoolID:     schoolID,
			Grade:        strings.TrimSpace(grade),
			AcademicYear: strings.TrimSpace(academicYear),
		}
		if err := tx.Create(list).Error; err != nil {
			return err
		}
		for _, in := range books {
			if strings.TrimSpace(in.Title) == "" {
				return errors.New("Every textbook needs a title")
			}
			var book domain.Textbook
			err := tx.Where("LOWER(title) = ? AND LOWER(subject) = ?",
				strings.ToLower(in.Title), strings.ToLower(in.Subject)).First(&book).Error
			if err == gorm.ErrRecordNotFound {
				book = domain.Textbook{
					Title:     in.Title,
					Author:    in.Author,
					Subject:   in.Subject,
					Publisher: in.Publisher,
					Grade:     list.Grade,
				}
				if in.ISBN != "" {
					isbn := in.ISBN
					book.ISBN = &isbn
				}
				if err := tx.Create(&book).Error; err != nil {
					return err
				}
			} else if err != nil {
				return err
			}
			if err := tx.Model(list).Association("Textbooks").Append(&book); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// ListForSchool returns a school's published lists with their textbooks.
func (s *Service) ListForSchool(ctx context.Context, schoolID uuid.UUID) ([]domain.BookList, error) {
	var lists []domain.BookList
	err := s.DB.WithContext(ctx).Preload("Textbooks").
		Where("school_id = ?", schoolID).Order("created_at DESC").
		Find(&lists).Error
	if err != nil {
		return nil, err
	}
	return lists, nil
}

// Get returns one list with its textbooks.
func (s *Service) Get(ctx context.Context, listID uuid.UUID) (*domain.BookList, error) {
	var list domain.BookList
	err := s.DB.WithContext(ctx).Preload("Textbooks").
		Where("id = ?", listID).First(&list).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New("Book list not found")
		}
		return nil, err
	}
	return &list, nil
}

// Delete removes a school's own list.
func (s *Service) Delete(ctx context.Context, schoolID, listID uuid.UUID) error {
	res := s.DB.WithContext(ctx).
		Where("id = ? AND school_id = ?", listID, schoolID).
		Delete(&domain.BookList{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("Book list not found")
	}
	return nil
}
