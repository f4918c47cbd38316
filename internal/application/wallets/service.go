package wallets

import (
	"context"
	"errors"
	"fmt"

	"bookbridge-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// minimumRiderPayout guards against deliveries whose stored transport cost
// was never priced. Data-quality fallback, not a pricing rule.
const minimumRiderPayout = 50

type Service struct {
	DB *gorm.DB
}

// Settle pays out a completed delivery: the rider gets the transport cost,
// each order's seller gets that order's amount_paid. Swap deliveries carry
// no orders, so only the rider is credited. Runs inside the caller's
// completion transaction; the caller guarantees it fires at most once.
func Settle(tx *gorm.DB, delivery *domain.Delivery) error {
	if delivery.RiderID == nil {
		return errors.New("Delivery has no rider to settle")
	}

	payout := float64(delivery.TransportCost)
	if payout <= 0 {
		log.Warn().Str("delivery_id", delivery.ID.String()).
			Int("transport_cost", delivery.TransportCost).
			Msg("settlement: non-positive transport cost, using minimum payout")
		payout = minimumRiderPayout
	}
	code := "(untracked)"
	if delivery.TrackingCode != nil {
		code = *delivery.TrackingCode
	}
	if err := credit(tx, *delivery.RiderID, payout,
		fmt.Sprintf("Delivery payout for %s", code)); err != nil {
		return err
	}

	for _, order := range delivery.Orders {
		if order.Listing == nil {
			return errors.New("Order is missing its listing")
		}
		if err := credit(tx, order.Listing.ListedByID, order.AmountPaid,
			fmt.Sprintf("Sale of listing %s (delivery %s)", order.ListingID, code)); err != nil {
			return err
		}
	}
	return nil
}

// credit adds amount to the user's wallet and writes the paired ledger
// entry. The balance update is a single conditional expression so two
// concurrent settlements touching the same wallet cannot lose an update.
func credit(tx *gorm.DB, userID uuid.UUID, amount float64, description string) error {
	var wallet domain.Wallet
	err := tx.Where("user_id = ?", userID).First(&wallet).Error
	if err == gorm.ErrRecordNotFound {
		// Accounts predating wallet provisioning get one on first credit.
		wallet = domain.Wallet{UserID: userID}
		if err := tx.Create(&wallet).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if err := tx.Model(&domain.Wallet{}).Where("id = ?", wallet.ID).
		Update("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
		return err
	}
	return tx.Create(&domain.WalletTransaction{
		WalletID:    wallet.ID,
		Amount:      amount,
		Type:        domain.WalletCredit,
		Description: description,
	}).Error
}

// GetWallet returns the user's wallet, creating it if missing.
func (s *Service) GetWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	var wallet domain.Wallet
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", userID).First(&wallet).Error
		if err == gorm.ErrRecordNotFound {
			wallet = domain.Wallet{UserID: userID}
			return tx.Create(&wallet).Error
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// Withdraw debits the wallet if funds suffice, with one ledger entry. The
// balance guard lives in the UPDATE itself so concurrent withdrawals
// cannot overdraw.
func (s *Service) Withdraw(ctx context.Context, userID uuid.UUID, amount float64) error {
	if amount <= 0 {
		return errors.New("Withdrawal amount must be positive")
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wallet domain.Wallet
		if err := tx.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.New("Wallet not found")
			}
			return err
		}
		res := tx.Model(&domain.Wallet{}).
			Where("id = ? AND balance >= ?", wallet.ID, amount).
			Update("balance", gorm.Expr("balance - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("Insufficient funds")
		}
		return tx.Create(&domain.WalletTransaction{
			WalletID:    wallet.ID,
			Amount:      amount,
			Type:        domain.WalletDebit,
			Description: "Withdrawal",
		}).Error
	})
}

// ListTransactions returns the wallet ledger, newest first.
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID) ([]domain.WalletTransaction, error) {
	wallet, err := s.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	var txns []domain.WalletTransaction
	if err := s.DB.WithContext(ctx).
		Where("wallet_id = ?", wallet.ID).Order("created_at DESC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
