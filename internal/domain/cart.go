package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cart is one-per-user, created lazily on first use.
type Cart struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;uniqueIndex;not null" json:"user_id"`
	Items     []CartItem `gorm:"foreignKey:CartID" json:"items,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Cart) TableName() string {
	return "Carts"
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// CartItem links a listing into a cart; the (cart, listing) pair is unique
// so the same book cannot be added twice.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CartID    uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_listing" json:"cart_id"`
	ListingID uuid.UUID `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:idx_cart_listing" json:"listing_id"`
	Listing   *Listing  `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
	CreatedAt time.Time `json:"added_at"`
}

func (CartItem) TableName() string {
	return "CartItems"
}

func (i *CartItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
