package swaps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bookbridge-backend/internal/application/chat"
	"bookbridge-backend/internal/application/listings"
	"bookbridge-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

// Propose opens a pending swap for (requested, offered). A prior
// cancelled/rejected request for the same pair is deleted and superseded;
// a still-active one blocks the new proposal.
func (s *Service) Propose(ctx context.Context, senderID, requestedListingID, offeredListingID uuid.UUID) (*domain.SwapRequest, error) {
	var swap *domain.SwapRequest
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var requested, offered domain.Listing
		if err := tx.Where("id = ?", requestedListingID).First(&requested).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.New("Requested listing not found")
			}
			return err
		}
		if err := tx.Where("id = ?", offeredListingID).First(&offered).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.New("Offered listing not found")
			}
			return err
		}
		if requested.ListedByID == senderID {
			return errors.New("You cannot swap for your own listing")
		}
		if offered.ListedByID != senderID {
			return errors.New("You can only offer your own listing")
		}
		if !requested.IsActive || !offered.IsActive {
			return errors.New("Listing is no longer available")
		}
		if requested.ListingType != domain.ListingTypeExchange {
			return errors.New("Requested listing is not open for exchange")
		}

		var prior domain.SwapRequest
		err := tx.Where("requested_listing_id = ? AND offered_listing_id = ?",
			requestedListingID, offeredListingID).First(&prior).Error
		if err == nil {
			if prior.Active() {
				return errors.New("A swap request for this pair is already in progress")
			}
			if err := tx.Delete(&prior).Error; err != nil {
				return err
			}
		} else if err != gorm.ErrRecordNotFound {
			return err
		}

		swap = &domain.SwapRequest{
			SenderID:           senderID,
			ReceiverID:         requested.ListedByID,
			RequestedListingID: requestedListingID,
			OfferedListingID:   offeredListingID,
			Status:             domain.SwapPending,
		}
		if err := tx.Create(swap).Error; err != nil {
			// idx_swap_pair: a concurrent proposal for the same pair won
			// the insert between our read and create.
			if isPairConflict(err) {
				return errors.New("A swap request for this pair is already in progress")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return swap, nil
}

// Accept moves a pending swap to accepted: both listings are reserved
// (with an in-transaction availability re-check), a round-trip delivery is
// created at fee 0, and the pair's conversation gets a system message.
func (s *Service) Accept(ctx context.Context, receiverID, swapID uuid.UUID) (*domain.Delivery, error) {
	var delivery *domain.Delivery
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		swap, err := s.loadPending(tx, swapID)
		if err != nil {
			return err
		}
		if swap.ReceiverID != receiverID {
			return errors.New("Only the listing owner can accept this swap")
		}

		requested, err := listings.Reserve(tx, swap.RequestedListingID)
		if err != nil {
			return err
		}
		offered, err := listings.Reserve(tx, swap.OfferedListingID)
		if err != nil {
			return err
		}

		res := tx.Model(&domain.SwapRequest{}).
			Where("id = ? AND status = ?", swapID, domain.SwapPending).
			Update("status", domain.SwapAccepted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("Swap request is no longer pending")
		}

		var sender, receiver domain.User
		if err := tx.Where("id = ?", swap.SenderID).First(&sender).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", swap.ReceiverID).First(&receiver).Error; err != nil {
			return err
		}

		delivery = &domain.Delivery{
			SwapID:          &swap.ID,
			PickupLocation:  sender.Location,
			DropoffLocation: receiver.Location,
			TransportCost:   0,
			Status:          domain.DeliveryPending,
		}
		if err := tx.Create(delivery).Error; err != nil {
			return err
		}

		conv, err := chat.FindOrCreateConversation(tx, swap.SenderID, swap.ReceiverID)
		if err != nil {
			return err
		}
		text := fmt.Sprintf("Swap accepted: '%s' for '%s'. Arrange delivery payment to proceed.",
			requested.Textbook.Title, offered.Textbook.Title)
		return chat.PostSystemMessage(tx, conv.ID, text)
	})
	if err != nil {
		return nil, err
	}
	return delivery, nil
}

// Reject (receiver-only) declines a pending swap and notifies the sender.
func (s *Service) Reject(ctx context.Context, receiverID, swapID uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		swap, err := s.loadPending(tx, swapID)
		if err != nil {
			return err
		}
		if swap.ReceiverID != receiverID {
			return errors.New("Only the listing owner can reject this swap")
		}
		if err := tx.Model(swap).Update("status", domain.SwapRejected).Error; err != nil {
			return err
		}
		conv, err := chat.FindOrCreateConversation(tx, swap.SenderID, swap.ReceiverID)
		if err != nil {
			return err
		}
		return chat.PostSystemMessage(tx, conv.ID, "Your swap request was declined.")
	})
}

// ListMine returns swaps where the user is sender or receiver, newest first.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) ([]domain.SwapRequest, error) {
	var swaps []domain.SwapRequest
	err := s.DB.WithContext(ctx).
		Preload("Sender").Preload("Receiver").
		Preload("RequestedListing").Preload("RequestedListing.Textbook").
		Preload("OfferedListing").Preload("OfferedListing.Textbook").
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC").Find(&swaps).Error
	if err != nil {
		return nil, err
	}
	return swaps, nil
}

func (s *Service) loadPending(tx *gorm.DB, swapID uuid.UUID) (*domain.SwapRequest, error) {
	var swap domain.SwapRequest
	if err := tx.Where("id = ?", swapID).First(&swap).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New("Swap request not found")
		}
		return nil, err
	}
	if swap.Status != domain.SwapPending {
		return nil, errors.New("Swap request is no longer pending")
	}
	return &swap, nil
}

func isPairConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
