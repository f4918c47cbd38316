package reviews

import (
	"context"
	"errors"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

// Create records a rating against a listing's seller and recomputes the
// seller's aggregates in the same transaction.
func (s *Service) Create(ctx context.Context, reviewerID, listingID uuid.UUID, rating int, comment string) (*domain.Review, error) {
	if !validation.IsValidRating(rating) {
		return nil, errors.New("Rating must be between 1 and 5")
	}

	var review *domain.Review
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing domain.Listing
		if err := tx.Where("id = ?", listingID).First(&listing).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.New("Listing not found")
			}
			return err
		}
		if listing.ListedByID == reviewerID {
			return errors.New("You cannot review your own listing")
		}

		var prior int64
		if err := tx.Model(&domain.Review{}).
			Where("listing_id = ? AND reviewer_id = ?", listingID, reviewerID).
			Count(&prior).Error; err != nil {
			return err
		}
		if prior > 0 {
			return errors.New("You have already reviewed this listing")
		}

		review = &domain.Review{
			ListingID:  listingID,
			ReviewerID: reviewerID,
			SellerID:   listing.ListedByID,
			Rating:     rating,
			Comment:    comment,
		}
		if err := tx.Create(review).Error; err != nil {
			return err
		}
		return recomputeSellerRating(tx, listing.ListedByID)
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

// ListForSeller returns a seller's reviews, newest first.
func (s *Service) ListForSeller(ctx context.Context, sellerID uuid.UUID) ([]domain.Review, error) {
	var reviews []domain.Review
	err := s.DB.WithContext(ctx).Preload("Reviewer").
		Where("seller_id = ?", sellerID).Order("created_at DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

// recomputeSellerRating derives the aggregate from all review rows rather
// than incrementing, so replays and deletions stay consistent.
func recomputeSellerRating(tx *gorm.DB, sellerID uuid.UUID) error {
	var stats struct {
		Avg   float64
		Count int64
	}
	err := tx.Model(&domain.Review{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Where("seller_id = ?", sellerID).Scan(&stats).Error
	if err != nil {
		return err
	}
	return tx.Model(&domain.User{}).Where("id = ?", sellerID).
		Updates(map[string]interface{}{
			"rating":       stats.Avg,
			"review_count": stats.Count,
		}).Error
}
