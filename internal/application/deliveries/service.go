package deliveries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookbridge-backend/internal/application/chat"
	"bookbridge-backend/internal/application/listings"
	"bookbridge-backend/internal/application/pricing"
	"bookbridge-backend/internal/application/wallets"
	"bookbridge-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Quoter prices a pickup/dropoff pair. Satisfied by pricing.Service in
// production and by fakes in tests.
type Quoter interface {
	Quote(ctx context.Context, pickup, dropoff string, roundTrip bool) (*pricing.Quote, error)
}

type Service struct {
	DB      *gorm.DB
	Pricing Quoter
}

// QuoteFee prices the delivery's own route and persists the result.
// Round trip for swaps, one-way for purchases. The quote payload is
// returned unchanged so the client can render the route.
func (s *Service) QuoteFee(ctx context.Context, userID, deliveryID uuid.UUID) (*pricing.Quote, *domain.Delivery, error) {
	delivery, err := s.load(ctx, deliveryID)
	if err != nil {
		return nil, nil, err
	}
	if !isParticipant(delivery, userID) {
		return nil, nil, errors.New("You are not part of this delivery")
	}
	if delivery.Status != domain.DeliveryPending {
		return nil, nil, errors.New("Delivery fee can only be set before payment")
	}

	quote, err := s.Pricing.Quote(ctx, delivery.PickupLocation, delivery.DropoffLocation, delivery.IsSwap())
	if err != nil {
		return nil, nil, err
	}

	updates := map[string]interface{}{
		"transport_cost": quote.Fee,
		"distance_text":  quote.DistanceText,
	}
	if len(quote.RouteGeometry) > 0 {
		updates["route_geometry"] = []byte(quote.RouteGeometry)
	}
	if err := s.DB.WithContext(ctx).Model(&domain.Delivery{}).
		Where("id = ?", deliveryID).Updates(updates).Error; err != nil {
		return nil, nil, err
	}
	delivery.TransportCost = quote.Fee
	delivery.DistanceText = quote.DistanceText
	return quote, delivery, nil
}

// ListJobs is the rider job board: every unclaimed paid delivery plus the
// rider's own claimed jobs.
func (s *Service) ListJobs(ctx context.Context, riderID uuid.UUID) ([]domain.Delivery, error) {
	var jobs []domain.Delivery
	err := s.DB.WithContext(ctx).
		Preload("Orders").Preload("Orders.Listing").Preload("Orders.Listing.Textbook").
		Preload("Swap").
		Where("(status = ? AND rider_id IS NULL) OR rider_id = ?", domain.DeliveryPaid, riderID).
		Order("created_at DESC").Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// AcceptJob claims a paid delivery for a rider. One shipped job per rider
// at a time; the claim itself is a conditional update so two riders racing
// for the same job get exactly one success.
func (s *Service) AcceptJob(ctx context.Context, riderID uuid.UUID, deliveryID uuid.UUID) (*domain.Delivery, error) {
	var delivery *domain.Delivery
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rider domain.User
		if err := tx.Where("id = ?", riderID).First(&rider).Error; err != nil {
			return err
		}
		if rider.Role != domain.RoleRider {
			return errors.New("Only riders can accept delivery jobs")
		}

		// The one-shipped-job-per-rider constraint lives inside the claim
		// UPDATE itself, so two concurrent claims by the same rider cannot
		// both pass a separate read.
		res := tx.Model(&domain.Delivery{}).
			Where("id = ? AND status = ? AND rider_id IS NULL", deliveryID, domain.DeliveryPaid).
			Where(`NOT EXISTS (SELECT 1 FROM "Deliveries" d WHERE d.rider_id = ? AND d.status = ?)`,
				riderID, domain.DeliveryShipped).
			Updates(map[string]interface{}{
				"status":      domain.DeliveryShipped,
				"rider_id":    riderID,
				"rider_phone": rider.PhoneNumber,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var active int64
			if err := tx.Model(&domain.Delivery{}).
				Where("rider_id = ? AND status = ?", riderID, domain.DeliveryShipped).
				Count(&active).Error; err != nil {
				return err
			}
			if active > 0 {
				return errors.New("Finish your current delivery before accepting another")
			}
			return errors.New("This job has already been taken")
		}

		var err error
		delivery, err = loadTx(tx, deliveryID)
		if err != nil {
			return err
		}

		participants := append(participantIDs(delivery), riderID)
		conv, err := chat.FindOrCreateConversation(tx, participants...)
		if err != nil {
			return err
		}
		text := fmt.Sprintf("%s is handling this delivery. Reach them on %s.",
			rider.FullName, rider.PhoneNumber)
		return chat.PostSystemMessage(tx, conv.ID, text)
	})
	if err != nil {
		return nil, err
	}
	return delivery, nil
}

// UpdateLocation overwrites the rider's last-known position. No history.
func (s *Service) UpdateLocation(ctx context.Context, riderID, deliveryID uuid.UUID, lat, lng float64) error {
	now := time.Now()
	res := s.DB.WithContext(ctx).Model(&domain.Delivery{}).
		Where("id = ? AND rider_id = ?", deliveryID, riderID).
		Updates(map[string]interface{}{
			"current_lat":         lat,
			"current_lng":         lng,
			"location_updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("Delivery not found")
	}
	return nil
}

// CompleteJob marks a shipped delivery delivered and settles wallets, all
// in one transaction. The shipped-only status guard makes the settlement
// fire at most once per delivery.
func (s *Service) CompleteJob(ctx context.Context, callerID, deliveryID uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		delivery, err := loadTx(tx, deliveryID)
		if err != nil {
			return err
		}
		if delivery.Status == domain.DeliveryDelivered {
			return errors.New("Delivery is already completed")
		}

		if delivery.RiderID == nil {
			// Orphaned payout repair: a shipped delivery should always
			// carry its rider, but if the binding was lost, adopt the
			// completing rider rather than strand the payout.
			var caller domain.User
			if err := tx.Where("id = ?", callerID).First(&caller).Error; err != nil {
				return err
			}
			if caller.Role != domain.RoleRider {
				return errors.New("Delivery has no rider bound")
			}
			log.Warn().Str("delivery_id", deliveryID.String()).
				Str("rider_id", callerID.String()).
				Msg("completion: delivery had no rider, binding caller")
			if err := tx.Model(&domain.Delivery{}).Where("id = ?", deliveryID).
				Updates(map[string]interface{}{
					"rider_id":    callerID,
					"rider_phone": caller.PhoneNumber,
				}).Error; err != nil {
				return err
			}
			delivery.RiderID = &callerID
		} else if *delivery.RiderID != callerID {
			return errors.New("Only the assigned rider can complete this delivery")
		}

		res := tx.Model(&domain.Delivery{}).
			Where("id = ? AND status = ?", deliveryID, domain.DeliveryShipped).
			Update("status", domain.DeliveryDelivered)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("Only a shipped delivery can be completed")
		}

		if delivery.SwapID != nil {
			if err := tx.Model(&domain.SwapRequest{}).
				Where("id = ?", *delivery.SwapID).
				Update("status", domain.SwapCompleted).Error; err != nil {
				return err
			}
		}

		if err := wallets.Settle(tx, delivery); err != nil {
			return err
		}

		conv, err := chat.FindOrCreateConversation(tx, append(participantIDs(delivery), *delivery.RiderID)...)
		if err != nil {
			return err
		}
		return chat.PostSystemMessage(tx, conv.ID, "Delivery completed. Funds have been released.")
	})
}

// Cancel aborts a pre-transit delivery: every linked listing goes back on
// the market, a linked swap is marked cancelled, and the counterparty is
// notified. Rider and wallets are untouched.
func (s *Service) Cancel(ctx context.Context, userID, deliveryID uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		delivery, err := loadTx(tx, deliveryID)
		if err != nil {
			return err
		}
		if !isParticipant(delivery, userID) {
			return errors.New("You are not part of this delivery")
		}

		res := tx.Model(&domain.Delivery{}).
			Where("id = ? AND status IN ?", deliveryID,
				[]string{domain.DeliveryPending, domain.DeliveryPaid}).
			Update("status", domain.DeliveryCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("Delivery can no longer be cancelled")
		}

		var restore []uuid.UUID
		if delivery.SwapID != nil {
			var swap domain.SwapRequest
			if err := tx.Where("id = ?", *delivery.SwapID).First(&swap).Error; err != nil {
				return err
			}
			restore = append(restore, swap.RequestedListingID, swap.OfferedListingID)
			if err := tx.Model(&swap).Update("status", domain.SwapCancelled).Error; err != nil {
				return err
			}
		} else {
			for _, order := range delivery.Orders {
				restore = append(restore, order.ListingID)
			}
		}
		if err := listings.Reactivate(tx, restore...); err != nil {
			return err
		}

		conv, err := chat.FindOrCreateConversation(tx, participantIDs(delivery)...)
		if err != nil {
			return err
		}
		return chat.PostSystemMessage(tx, conv.ID, "This delivery was cancelled. Listings are back on the market.")
	})
}

// ListMine returns deliveries the user participates in as buyer, seller,
// swap party or rider.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) ([]domain.Delivery, error) {
	var all []domain.Delivery
	err := s.DB.WithContext(ctx).
		Preload("Orders").Preload("Orders.Listing").Preload("Orders.Listing.Textbook").
		Preload("Swap").Preload("Rider").
		Order("created_at DESC").Find(&all).Error
	if err != nil {
		return nil, err
	}
	var mine []domain.Delivery
	for i := range all {
		d := &all[i]
		if (d.RiderID != nil && *d.RiderID == userID) || isParticipant(d, userID) {
			mine = append(mine, *d)
		}
	}
	return mine, nil
}

// Track looks a delivery up by its public tracking code.
func (s *Service) Track(ctx context.Context, code string) (*domain.Delivery, error) {
	var delivery domain.Delivery
	err := s.DB.WithContext(ctx).
		Preload("Rider").
		Where("tracking_code = ?", code).First(&delivery).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New("No delivery matches that tracking code")
		}
		return nil, err
	}
	return &delivery, nil
}

func (s *Service) load(ctx context.Context, deliveryID uuid.UUID) (*domain.Delivery, error) {
	return loadTx(s.DB.WithContext(ctx), deliveryID)
}

func loadTx(tx *gorm.DB, deliveryID uuid.UUID) (*domain.Delivery, error) {
	var delivery domain.Delivery
	err := tx.
		Preload("Orders").Preload("Orders.Listing").
		Preload("Swap").
		Where("id = ?", deliveryID).First(&delivery).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New("Delivery not found")
		}
		return nil, err
	}
	return &delivery, nil
}

// participantIDs are the buyer/seller pair (purchase) or sender/receiver
// pair (swap), deduplicated.
func participantIDs(d *domain.Delivery) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	add := func(id uuid.UUID) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if d.Swap != nil {
		add(d.Swap.SenderID)
		add(d.Swap.ReceiverID)
		return ids
	}
	for _, order := range d.Orders {
		add(order.BuyerID)
		if order.Listing != nil {
			add(order.Listing.ListedByID)
		}
	}
	return ids
}

func isParticipant(d *domain.Delivery, userID uuid.UUID) bool {
	for _, id := range participantIDs(d) {
		if id == userID {
			return true
		}
	}
	return false
}
