package carts

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

// GetCart returns the user's cart, creating an empty one on first touch.
func (s *Service) GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	var cart domain.Cart
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return getOrCreate(tx, userID, &cart)
	})
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).
		Preload("Items").Preload("Items.Listing").
		Preload("Items.Listing.Textbook").Preload("Items.Listing.ListedBy").
		Where("id = ?", cart.ID).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (s *Service) AddItem(ctx context.Context, userID, listingID uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing domain.Listing
		if err := tx.Where("id = ?", listingID).First(&listing).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.New("Listing not found")
			}
			return err
		}
		if !listing.IsActive {
			return errors.New("Listing is no longer available")
		}
		if listing.ListingType != domain.ListingTypeSell {
			return errors.New("Only sale listings can be added to a cart")
		}
		if listing.ListedByID == userID {
			return errors.New("You cannot buy your own listing")
		}

		var cart domain.Cart
		if err := getOrCreate(tx, userID, &cart); err != nil {
			return err
		}
		item := domain.CartItem{CartID: cart.ID, ListingID: listingID}
		if err := tx.Create(&item).Error; err != nil {
			if isDuplicate(err) {
				return errors.New("Listing is already in your cart")
			}
			return err
		}
		return nil
	})
}

func (s *Service) RemoveItem(ctx context.Context, userID, listingID uuid.UUID) error {
	var cart domain.Cart
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.New("Cart is empty")
		}
		return err
	}
	res := s.DB.WithContext(ctx).
		Where("cart_id = ? AND listing_id = ?", cart.ID, listingID).
		Delete(&domain.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("Listing is not in your cart")
	}
	return nil
}

// ClearItems drops cart rows for the given listings across all carts,
// used after checkout so stale reservations do not linger for other buyers.
func ClearItems(tx *gorm.DB, listingIDs []uuid.UUID) error {
	if len(listingIDs) == 0 {
		return nil
	}
	return tx.Where("listing_id IN ?", listingIDs).Delete(&domain.CartItem{}).Error
}

func getOrCreate(tx *gorm.DB, userID uuid.UUID, cart *domain.Cart) error {
	err := tx.Where("user_id = ?", userID).First(cart).Error
	if err == gorm.ErrRecordNotFound {
		*cart = domain.Cart{UserID: userID}
		return tx.Create(cart).Error
	}
	return err
}

func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
