package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Payment method enum values.
const (
	PaymentMethodMpesa    = "mpesa"
	PaymentMethodPaystack = "paystack"
)

// Payment is the one-per-delivery record of the delivery-fee charge.
// delivery_id is unique: a second initiation replaces the pending row
// (upsert), never appends beside a successful one. ProviderReference is
// the M-Pesa CheckoutRequestID or the Paystack reference and keys
// callback/verify idempotency.
type Payment struct {
	ID                uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	DeliveryID        uuid.UUID      `gorm:"column:delivery_id;type:uuid;uniqueIndex;not null" json:"delivery_id"`
	Method            string         `gorm:"column:method;type:varchar(10);not null" json:"method"`
	PhoneNumber       string         `gorm:"column:phone_number" json:"phone_number"`
	Email             string         `gorm:"column:email" json:"email"`
	Amount            int            `gorm:"column:amount;not null" json:"amount"`
	IsSuccessful      bool           `gorm:"column:is_successful;default:false" json:"is_successful"`
	ProviderReference string         `gorm:"column:provider_reference;index" json:"provider_reference"`
	TransactionCode   string         `gorm:"column:transaction_code" json:"transaction_code"`
	RawCallback       datatypes.JSON `gorm:"column:raw_callback;type:jsonb" json:"-"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func (Payment) TableName() string {
	return "Payments"
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
