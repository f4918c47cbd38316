package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SwapRequest status enum values. Pending is the only state a receiver can
// act on; accepted swaps live on through their delivery.
const (
	SwapPending   = "pending"
	SwapAccepted  = "accepted"
	SwapRejected  = "rejected"
	SwapCancelled = "cancelled"
	SwapCompleted = "completed"
)

// SwapRequest is a book-for-book exchange proposal. At most one request
// row exists per (requested, offered) pair, enforced by idx_swap_pair:
// stale rejected/cancelled rows are deleted on re-proposal, so the
// unique index holds across the whole lifecycle.
type SwapRequest struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SenderID           uuid.UUID `gorm:"column:sender_id;type:uuid;not null;index" json:"sender_id"`
	Sender             *User     `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	ReceiverID         uuid.UUID `gorm:"column:receiver_id;type:uuid;not null;index" json:"receiver_id"`
	Receiver           *User     `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
	RequestedListingID uuid.UUID `gorm:"column:requested_listing_id;type:uuid;not null;uniqueIndex:idx_swap_pair" json:"requested_listing_id"`
	RequestedListing   *Listing  `gorm:"foreignKey:RequestedListingID" json:"requested_listing,omitempty"`
	OfferedListingID   uuid.UUID `gorm:"column:offered_listing_id;type:uuid;not null;uniqueIndex:idx_swap_pair" json:"offered_listing_id"`
	OfferedListing     *Listing  `gorm:"foreignKey:OfferedListingID" json:"offered_listing,omitempty"`
	Status             string    `gorm:"column:status;type:varchar(20);default:'pending'" json:"status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (SwapRequest) TableName() string {
	return "SwapRequests"
}

func (s *SwapRequest) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Active reports whether the request still reserves its listing pair.
func (s *SwapRequest) Active() bool {
	return s.Status == SwapPending || s.Status == SwapAccepted
}
