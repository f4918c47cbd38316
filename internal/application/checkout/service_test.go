package checkout

import (
	"context"
	"testing"

	"bookbridge-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCheckoutDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.User{}, &domain.Textbook{}, &domain.Listing{},
		&domain.Order{}, &domain.Delivery{},
		&domain.Cart{}, &domain.CartItem{},
		&domain.Conversation{}, &domain.Message{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name, location string) *domain.User {
	u := &domain.User{
		Email:        name + "@test.com",
		PasswordHash: "x",
		FullName:     name,
		Role:         domain.RoleParent,
		Location:     location,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedSaleListing(t *testing.T, db *gorm.DB, owner *domain.User, title string, price float64) *domain.Listing {
	book := &domain.Textbook{Title: title, Subject: "Math"}
	require.NoError(t, db.Create(book).Error)
	l := &domain.Listing{
		ListedByID:  owner.ID,
		TextbookID:  book.ID,
		ListingType: domain.ListingTypeSell,
		Condition:   domain.ConditionGood,
		Price:       price,
		IsActive:    true,
	}
	require.NoError(t, db.Create(l).Error)
	return l
}

func TestCheckout_SplitsBySeller(t *testing.T) {
	db := setupCheckoutDB(t)
	svc := &Service{DB: db}
	buyer := seedUser(t, db, "buyer", "Kamakwa")
	seller1 := seedUser(t, db, "seller1", "Skuta")
	seller2 := seedUser(t, db, "seller2", "Ruring'u")
	l1 := seedSaleListing(t, db, seller1, "Math F1", 300)
	l2 := seedSaleListing(t, db, seller1, "English F1", 250)
	l3 := seedSaleListing(t, db, seller2, "Kiswahili F1", 200)

	result, err := svc.Checkout(context.Background(), buyer.ID, []uuid.UUID{l1.ID, l2.ID, l3.ID})
	require.NoError(t, err)
	require.Len(t, result.Deliveries, 2)

	var orders []domain.Order
	require.NoError(t, db.Find(&orders).Error)
	assert.Len(t, orders, 3)

	// seller1's delivery carries two orders, seller2's one.
	var counts []int64
	for _, d := range result.Deliveries {
		var n int64
		db.Table("delivery_orders").Where("delivery_id = ?", d.ID).Count(&n)
		counts = append(counts, n)
		assert.Equal(t, domain.DeliveryPending, d.Status)
		assert.Equal(t, "Kamakwa", d.DropoffLocation)
	}
	assert.ElementsMatch(t, []int64{2, 1}, counts)

	// Every listing is now reserved.
	var active int64
	db.Model(&domain.Listing{}).Where("is_active = ?", true).Count(&active)
	assert.Equal(t, int64(0), active)

	// One system notification per seller conversation.
	var msgs int64
	db.Model(&domain.Message{}).Where("is_system = ?", true).Count(&msgs)
	assert.Equal(t, int64(2), msgs)
}

func TestCheckout_AllOrNothingOnSoldListing(t *testing.T) {
	db := setupCheckoutDB(t)
	svc := &Service{DB: db}
	buyer := seedUser(t, db, "buyer", "Kamakwa")
	seller := seedUser(t, db, "seller", "Skuta")
	l1 := seedSaleListing(t, db, seller, "Math F1", 300)
	l2 := seedSaleListing(t, db, seller, "English F1", 250)

	// l2 sold moments ago.
	require.NoError(t, db.Model(&domain.Listing{}).
		Where("id = ?", l2.ID).Update("is_active", false).Error)

	_, err := svc.Checkout(context.Background(), buyer.ID, []uuid.UUID{l1.ID, l2.ID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh your cart")

	// l1's reservation rolled back, no orders or deliveries exist.
	var l1Stored domain.Listing
	require.NoError(t, db.First(&l1Stored, "id = ?", l1.ID).Error)
	assert.True(t, l1Stored.IsActive)
	var orders, deliveries int64
	db.Model(&domain.Order{}).Count(&orders)
	db.Model(&domain.Delivery{}).Count(&deliveries)
	assert.Equal(t, int64(0), orders)
	assert.Equal(t, int64(0), deliveries)
}

func TestCheckout_RejectsOwnListing(t *testing.T) {
	db := setupCheckoutDB(t)
	svc := &Service{DB: db}
	buyer := seedUser(t, db, "buyer", "Kamakwa")
	l := seedSaleListing(t, db, buyer, "Math F1", 300)

	_, err := svc.Checkout(context.Background(), buyer.ID, []uuid.UUID{l.ID})
	require.Error(t, err)
	assert.Equal(t, "You cannot buy your own listing", err.Error())
}

func TestCheckout_ClearsCartRowsEverywhere(t *testing.T) {
	db := setupCheckoutDB(t)
	svc := &Service{DB: db}
	buyer := seedUser(t, db, "buyer", "Kamakwa")
	other := seedUser(t, db, "other", "Ruring'u")
	seller := seedUser(t, db, "seller", "Skuta")
	l := seedSaleListing(t, db, seller, "Math F1", 300)

	buyerCart := &domain.Cart{UserID: buyer.ID}
	otherCart := &domain.Cart{UserID: other.ID}
	require.NoError(t, db.Create(buyerCart).Error)
	require.NoError(t, db.Create(otherCart).Error)
	require.NoError(t, db.Create(&domain.CartItem{CartID: buyerCart.ID, ListingID: l.ID}).Error)
	require.NoError(t, db.Create(&domain.CartItem{CartID: otherCart.ID, ListingID: l.ID}).Error)

	_, err := svc.Checkout(context.Background(), buyer.ID, []uuid.UUID{l.ID})
	require.NoError(t, err)

	// The sold listing disappears from every cart, not just the buyer's.
	var items int64
	db.Model(&domain.CartItem{}).Count(&items)
	assert.Equal(t, int64(0), items)
}

func TestMyOrders(t *testing.T) {
	db := setupCheckoutDB(t)
	svc := &Service{DB: db}
	buyer := seedUser(t, db, "buyer", "Kamakwa")
	seller := seedUser(t, db, "seller", "Skuta")
	l := seedSaleListing(t, db, seller, "Math F1", 300)

	_, err := svc.Checkout(context.Background(), buyer.ID, []uuid.UUID{l.ID})
	require.NoError(t, err)

	orders, err := svc.MyOrders(context.Background(), buyer.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 300.0, orders[0].AmountPaid)
}
