package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bookbridge-backend/internal/application/carts"
	"bookbridge-backend/internal/application/chat"
	"bookbridge-backend/internal/application/listings"
	"bookbridge-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

// CheckoutResult reports the deliveries created, one per seller.
type CheckoutResult struct {
	Deliveries []domain.Delivery `json:"deliveries"`
}

// Checkout turns a set of cart listings into orders grouped by seller,
// one delivery per seller, in a single all-or-nothing transaction. If any
// listing was sold since it entered the cart, the whole batch is rejected
// and the buyer is told to resync their cart.
func (s *Service) Checkout(ctx context.Context, buyerID uuid.UUID, listingIDs []uuid.UUID) (*CheckoutResult, error) {
	if len(listingIDs) == 0 {
		return nil, errors.New("No listings selected for checkout")
	}

	var result CheckoutResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var buyer domain.User
		if err := tx.Where("id = ?", buyerID).First(&buyer).Error; err != nil {
			return err
		}

		// Reserve every listing first; a single failure aborts the batch.
		bySeller := make(map[uuid.UUID][]*domain.Listing)
		var sellerOrder []uuid.UUID
		for _, id := range listingIDs {
			listing, err := listings.Reserve(tx, id)
			if err != nil {
				return errors.New("A listing in your cart was just sold. Please refresh your cart and try again.")
			}
			if listing.ListedByID == buyerID {
				return errors.New("You cannot buy your own listing")
			}
			if listing.ListingType != domain.ListingTypeSell {
				return errors.New("Only sale listings can be checked out")
			}
			if _, seen := bySeller[listing.ListedByID]; !seen {
				sellerOrder = append(sellerOrder, listing.ListedByID)
			}
			bySeller[listing.ListedByID] = append(bySeller[listing.ListedByID], listing)
		}

		for _, sellerID := range sellerOrder {
			group := bySeller[sellerID]
			seller := group[0].ListedBy

			delivery := domain.Delivery{
				PickupLocation:  seller.Location,
				DropoffLocation: buyer.Location,
				TransportCost:   0,
				Status:          domain.DeliveryPending,
			}
			if err := tx.Create(&delivery).Error; err != nil {
				return err
			}

			var titles []string
			for _, listing := range group {
				order := domain.Order{
					BuyerID:    buyerID,
					ListingID:  listing.ID,
					AmountPaid: listing.Price,
				}
				if err := tx.Create(&order).Error; err != nil {
					return err
				}
				if err := tx.Model(&delivery).Association("Orders").Append(&order); err != nil {
					return err
				}
				titles = append(titles, listing.Textbook.Title)
			}

			conv, err := chat.FindOrCreateConversation(tx, buyerID, sellerID)
			if err != nil {
				return err
			}
			text := fmt.Sprintf("%s purchased: %s. Delivery will be arranged once the transport fee is paid.",
				buyer.FullName, strings.Join(titles, ", "))
			if err := chat.PostSystemMessage(tx, conv.ID, text); err != nil {
				return err
			}

			result.Deliveries = append(result.Deliveries, delivery)
		}

		return carts.ClearItems(tx, listingIDs)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// MyOrders returns the buyer's purchase history, newest first.
func (s *Service) MyOrders(ctx context.Context, buyerID uuid.UUID) ([]domain.Order, error) {
	var orders []domain.Order
	err := s.DB.WithContext(ctx).
		Preload("Listing").Preload("Listing.Textbook").Preload("Listing.ListedBy").
		Where("buyer_id = ?", buyerID).Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
