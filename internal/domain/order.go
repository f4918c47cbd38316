package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order is one listing bought by one buyer. Creating an order deactivates
// its listing in the same transaction; amount_paid snapshots the price at
// checkout time.
type Order struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	BuyerID    uuid.UUID `gorm:"column:buyer_id;type:uuid;not null;index" json:"buyer_id"`
	Buyer      *User     `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	ListingID  uuid.UUID `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	Listing    *Listing  `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
	AmountPaid float64   `gorm:"column:amount_paid;type:decimal(10,2);not null" json:"amount_paid"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Order) TableName() string {
	return "Orders"
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
