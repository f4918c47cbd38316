package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Listing type enum values.
const (
	ListingTypeSell     = "sell"
	ListingTypeExchange = "exchange"
)

// Listing condition enum values.
const (
	ConditionNew  = "new"
	ConditionGood = "good"
	ConditionFair = "fair"
)

// Listing is a book offered for sale or exchange. is_active is the
// inventory flag: false while reserved by an accepted swap or a paid
// order, true otherwise. Only the reserving transaction may flip it back.
type Listing struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ListedByID  uuid.UUID `gorm:"column:listed_by_id;type:uuid;not null;index" json:"listed_by_id"`
	ListedBy    *User     `gorm:"foreignKey:ListedByID" json:"listed_by,omitempty"`
	TextbookID  uuid.UUID `gorm:"column:textbook_id;type:uuid;not null" json:"textbook_id"`
	Textbook    *Textbook `gorm:"foreignKey:TextbookID" json:"textbook,omitempty"`
	ListingType string    `gorm:"column:listing_type;type:varchar(10);not null" json:"listing_type"`
	Condition   string    `gorm:"column:condition;type:varchar(10);not null" json:"condition"`
	Price       float64   `gorm:"column:price;type:decimal(10,2);default:0" json:"price"`
	Description string    `gorm:"column:description" json:"description"`
	IsActive    bool      `gorm:"column:is_active;default:true" json:"is_active"`
	Views       int       `gorm:"column:views;default:0" json:"views"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Listing) TableName() string {
	return "Listings"
}

func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
