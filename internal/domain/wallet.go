package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WalletTransaction type enum values.
const (
	WalletCredit = "credit"
	WalletDebit  = "debit"
)

// Wallet holds a user's settled funds. Balance is the running sum of the
// ledger; every balance mutation pairs with exactly one WalletTransaction
// row written in the same database transaction.
type Wallet struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex;not null" json:"user_id"`
	Balance   float64   `gorm:"column:balance;type:decimal(12,2);default:0" json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Wallet) TableName() string {
	return "Wallets"
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// WalletTransaction is an append-only ledger entry.
type WalletTransaction struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	WalletID    uuid.UUID `gorm:"column:wallet_id;type:uuid;not null;index" json:"wallet_id"`
	Amount      float64   `gorm:"column:amount;type:decimal(12,2);not null" json:"amount"`
	Type        string    `gorm:"column:type;type:varchar(10);not null" json:"type"`
	Description string    `gorm:"column:description" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (WalletTransaction) TableName() string {
	return "WalletTransactions"
}

func (t *WalletTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
