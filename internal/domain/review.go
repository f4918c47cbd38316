package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is a 1-5 star rating of a seller against one of their listings.
// Seller aggregates (rating, review_count) are recomputed by the reviews
// service after insert, not by a persistence hook.
type Review struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ListingID  uuid.UUID `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	ReviewerID uuid.UUID `gorm:"column:reviewer_id;type:uuid;not null" json:"reviewer_id"`
	Reviewer   *User     `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	SellerID   uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index" json:"seller_id"`
	Rating     int       `gorm:"column:rating;not null" json:"rating"`
	Comment    string    `gorm:"column:comment" json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Review) TableName() string {
	return "Reviews"
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
