package listings

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

// CreateListingInput carries either an existing textbook id or inline
// textbook details (get-or-create by title+subject).
type CreateListingInput struct {
	TextbookID  *uuid.UUID
	Title       string
	Author      string
	ISBN        string
	Grade       string
	Subject     string
	Publisher   string
	ListingType string
	Condition   string
	Price       float64
	Description string
}

func (s *Service) CreateListing(ctx context.Context, ownerID uuid.UUID, in CreateListingInput) (*domain.Listing, error) {
	if in.ListingType != domain.ListingTypeSell && in.ListingType != domain.ListingTypeExchange {
		return nil, errors.New("Invalid listing type")
	}
	if in.Condition != domain.ConditionNew && in.Condition != domain.ConditionGood && in.Condition != domain.ConditionFair {
		return nil, errors.New("Invalid condition")
	}
	if in.ListingType == domain.ListingTypeSell && in.Price <= 0 {
		return nil, errors.New("Price is required for sale listings")
	}

	var listing *domain.Listing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book domain.Textbook
		if in.TextbookID != nil {
			if err := tx.Where("id = ?", *in.TextbookID).First(&book).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return errors.New("Textbook not found")
				}
				return err
			}
		} else {
			if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Subject) == "" {
				return errors.New("Title and Subject are required")
			}
			err := tx.Where("LOWER(title) = ? AND LOWER(subject) = ?",
				strings.ToLower(in.Title), strings.ToLower(in.Subject)).First(&book).Error
			if err == gorm.ErrRecordNotFound {
				book = domain.Textbook{
					Title:     in.Title,
					Author:    in.Author,
					Grade:     in.Grade,
					Subject:   in.Subject,
					Publisher: in.Publisher,
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
		}

		listing = &domain.Listing{
			ListedByID:  ownerID,
			TextbookID:  book.ID,
			ListingType: in.ListingType,
			Condition:   in.Condition,
			Price:       in.Price,
			Description: in.Description,
			IsActive:    true,
		}
		return tx.Create(listing).Error
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

// SearchInput filters the public active-listing feed.
type SearchInput struct {
	Query       string
	ListingType string
	Condition   string
}

// Search returns active listings newest first, filtered by free-text query
// (title/subject/description) and exact type/condition.
func (s *Service) Search(ctx context.Context, in SearchInput) ([]domain.Listing, error) {
	q := s.DB.WithContext(ctx).Model(&domain.Listing{}).
		Preload("Textbook").Preload("ListedBy").
		Where("is_active = ?", true)
	if in.ListingType != "" {
		q = q.Where("listing_type = ?", in.ListingType)
	}
	if in.Condition != "" {
		q = q.Where("condition = ?", in.Condition)
	}
	if in.Query != "" {
		like := "%" + strings.ToLower(in.Query) + "%"
		q = q.Joins(`JOIN "Textbooks" ON "Textbooks".id = "Listings".textbook_id`).
			Where(`LOWER("Textbooks".title) LIKE ? OR LOWER("Textbooks".subject) LIKE ? OR LOWER("Listings".description) LIKE ?`, like, like, like)
	}
	var listings []domain.Listing
	if err := q.Order(`"Listings".created_at DESC`).Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// GetListing returns one listing and increments its view counter.
func (s *Service) GetListing(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Preload("Textbook").Preload("ListedBy").
		Where("id = ?", id).First(&listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New("Listing not found")
		}
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(&domain.Listing{}).
		Where("id = ?", id).Update("views", gorm.Expr("views + 1")).Error; err != nil {
		return nil, err
	}
	listing.Views++
	return &listing, nil
}

// MyListings returns all of a user's listings, sold and unsold.
func (s *Service) MyListings(ctx context.Context, ownerID uuid.UUID) ([]domain.Listing, error) {
	var listings []domain.Listing
	if err := s.DB.WithContext(ctx).Preload("Textbook").
		Where("listed_by_id = ?", ownerID).Order("created_at DESC").
		Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// DeactivateListing lets an owner pull their own listing off the market.
func (s *Service) DeactivateListing(ctx context.Context, ownerID, listingID uuid.UUID) error {
	res := s.DB.WithContext(ctx).Model(&domain.Listing{}).
		Where("id = ? AND listed_by_id = ?", listingID, ownerID).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("Listing not found")
	}
	return nil
}

// Reserve flips a listing inactive with an in-transaction re-check of
// is_active, so two racing buyers get exactly one success. Returns the
// listing on success.
func Reserve(tx *gorm.DB, listingID uuid.UUID) (*domain.Listing, error) {
	res := tx.Model(&domain.Listing{}).
		Where("id = ? AND is_active = ?", listingID, true).
		Update("is_active", false)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errors.New("Listing is no longer available")
	}
	var listing domain.Listing
	if err := tx.Preload("Textbook").Preload("ListedBy").
		Where("id = ?", listingID).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// Reactivate puts listings back on the market after a cancellation or
// rejection released their reservation.
func Reactivate(tx *gorm.DB, listingIDs ...uuid.UUID) error {
	if len(listingIDs) == 0 {
		return nil
	}
	return tx.Model(&domain.Listing{}).
		Where("id IN ?", listingIDs).
		Update("is_active", true).Error
}
