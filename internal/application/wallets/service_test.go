package wallets

import (
	"context"
	"testing"

	"bookbridge-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupWalletDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.User{}, &domain.Textbook{}, &domain.Listing{},
		&domain.Order{}, &domain.Delivery{},
		&domain.Wallet{}, &domain.WalletTransaction{},
	))
	return db
}

func walletUser(t *testing.T, db *gorm.DB, name string) *domain.User {
	u := &domain.User{Email: name + "@test.com", PasswordHash: "x", FullName: name, Role: domain.RoleParent}
	require.NoError(t, db.Create(u).Error)
	return u
}

func trk(code string) *string { return &code }

func TestSettle_CreditsRiderAndSellers(t *testing.T) {
	db := setupWalletDB(t)
	rider := walletUser(t, db, "rider")
	seller := walletUser(t, db, "seller")
	buyer := walletUser(t, db, "buyer")

	book := &domain.Textbook{Title: "Math F1", Subject: "Math"}
	require.NoError(t, db.Create(book).Error)
	listing := &domain.Listing{ListedByID: seller.ID, TextbookID: book.ID, ListingType: domain.ListingTypeSell, Condition: domain.ConditionGood, Price: 450}
	require.NoError(t, db.Create(listing).Error)

	delivery := &domain.Delivery{
		RiderID: &rider.ID, TransportCost: 120, TrackingCode: trk("TRK-0042"),
		Status: domain.DeliveryShipped,
		Orders: []domain.Order{
			{BuyerID: buyer.ID, ListingID: listing.ID, AmountPaid: 450, Listing: listing},
		},
	}

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return Settle(tx, delivery)
	}))

	var riderWallet, sellerWallet domain.Wallet
	require.NoError(t, db.First(&riderWallet, "user_id = ?", rider.ID).Error)
	require.NoError(t, db.First(&sellerWallet, "user_id = ?", seller.ID).Error)
	assert.Equal(t, 120.0, riderWallet.Balance)
	assert.Equal(t, 450.0, sellerWallet.Balance)

	// Every credit leaves a ledger row naming its source.
	var riderTxns, sellerTxns []domain.WalletTransaction
	require.NoError(t, db.Where("wallet_id = ?", riderWallet.ID).Find(&riderTxns).Error)
	require.NoError(t, db.Where("wallet_id = ?", sellerWallet.ID).Find(&sellerTxns).Error)
	require.Len(t, riderTxns, 1)
	require.Len(t, sellerTxns, 1)
	assert.Equal(t, domain.WalletCredit, riderTxns[0].Type)
	assert.Contains(t, riderTxns[0].Description, "TRK-0042")
	assert.Contains(t, sellerTxns[0].Description, listing.ID.String())
}

func TestSettle_MinimumPayoutFallback(t *testing.T) {
	db := setupWalletDB(t)
	rider := walletUser(t, db, "rider")

	delivery := &domain.Delivery{
		RiderID: &rider.ID, TransportCost: 0, Status: domain.DeliveryShipped,
	}
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return Settle(tx, delivery)
	}))

	var wallet domain.Wallet
	require.NoError(t, db.First(&wallet, "user_id = ?", rider.ID).Error)
	assert.Equal(t, float64(minimumRiderPayout), wallet.Balance)
}

func TestSettle_RequiresRider(t *testing.T) {
	db := setupWalletDB(t)
	err := db.Transaction(func(tx *gorm.DB) error {
		return Settle(tx, &domain.Delivery{TransportCost: 80})
	})
	require.Error(t, err)
	assert.Equal(t, "Delivery has no rider to settle", err.Error())
}

func TestGetWallet_CreatesOnFirstRead(t *testing.T) {
	db := setupWalletDB(t)
	svc := &Service{DB: db}
	user := walletUser(t, db, "fresh")

	wallet, err := svc.GetWallet(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, wallet.Balance)

	again, err := svc.GetWallet(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, wallet.ID, again.ID)
}

func TestWithdraw(t *testing.T) {
	db := setupWalletDB(t)
	svc := &Service{DB: db}
	user := walletUser(t, db, "payee")
	require.NoError(t, db.Create(&domain.Wallet{UserID: user.ID, Balance: 200}).Error)

	require.NoError(t, svc.Withdraw(context.Background(), user.ID, 150))

	wallet, err := svc.GetWallet(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, wallet.Balance)

	err = svc.Withdraw(context.Background(), user.ID, 100)
	require.Error(t, err)
	assert.Equal(t, "Insufficient funds", err.Error())

	err = svc.Withdraw(context.Background(), user.ID, -5)
	require.Error(t, err)
	assert.Equal(t, "Withdrawal amount must be positive", err.Error())

	// Balance is unchanged after the refused attempts.
	wallet, err = svc.GetWallet(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, wallet.Balance)
}

func TestListTransactions_NewestFirst(t *testing.T) {
	db := setupWalletDB(t)
	svc := &Service{DB: db}
	user := walletUser(t, db, "payee")
	require.NoError(t, db.Create(&domain.Wallet{UserID: user.ID, Balance: 500}).Error)

	require.NoError(t, svc.Withdraw(context.Background(), user.ID, 100))
	require.NoError(t, svc.Withdraw(context.Background(), user.ID, 200))

	txns, err := svc.ListTransactions(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	for _, txn := range txns {
		assert.Equal(t, domain.WalletDebit, txn.Type)
		assert.Equal(t, "Withdrawal", txn.Description)
	}
}
