package reviews

import (
	"context"
	"testing"

	"bookbridge-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupReviewDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Textbook{}, &domain.Listing{}, &domain.Review{}))
	return db
}

func reviewUser(t *testing.T, db *gorm.DB, name string) *domain.User {
	u := &domain.User{Email: name + "@test.com", PasswordHash: "x", FullName: name, Role: domain.RoleParent}
	require.NoError(t, db.Create(u).Error)
	return u
}

func reviewListing(t *testing.T, db *gorm.DB, seller *domain.User) *domain.Listing {
	book := &domain.Textbook{Title: "Math F1", Subject: "Math"}
	require.NoError(t, db.Create(book).Error)
	l := &domain.Listing{
		ListedByID: seller.ID, TextbookID: book.ID,
		ListingType: domain.ListingTypeSell, Condition: domain.ConditionGood,
		Price: 200, IsActive: true,
	}
	require.NoError(t, db.Create(l).Error)
	return l
}

func TestCreate_RecomputesSellerRating(t *testing.T) {
	db := setupReviewDB(t)
	svc := &Service{DB: db}
	seller := reviewUser(t, db, "seller")
	first := reviewUser(t, db, "first")
	second := reviewUser(t, db, "second")
	listingA := reviewListing(t, db, seller)
	listingB := reviewListing(t, db, seller)

	_, err := svc.Create(context.Background(), first.ID, listingA.ID, 5, "Great condition")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), second.ID, listingB.ID, 2, "Pages missing")
	require.NoError(t, err)

	var stored domain.User
	require.NoError(t, db.First(&stored, "id = ?", seller.ID).Error)
	assert.Equal(t, 3.5, stored.Rating)
	assert.Equal(t, 2, stored.ReviewCount)
}

func TestCreate_Rejections(t *testing.T) {
	db := setupReviewDB(t)
	svc := &Service{DB: db}
	seller := reviewUser(t, db, "seller")
	buyer := reviewUser(t, db, "buyer")
	listing := reviewListing(t, db, seller)

	_, err := svc.Create(context.Background(), buyer.ID, listing.ID, 0, "")
	require.Error(t, err)
	assert.Equal(t, "Rating must be between 1 and 5", err.Error())

	_, err = svc.Create(context.Background(), seller.ID, listing.ID, 4, "")
	require.Error(t, err)
	assert.Equal(t, "You cannot review your own listing", err.Error())

	_, err = svc.Create(context.Background(), buyer.ID, listing.ID, 4, "ok")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), buyer.ID, listing.ID, 5, "changed my mind")
	require.Error(t, err)
	assert.Equal(t, "You have already reviewed this listing", err.Error())
}

func TestListForSeller(t *testing.T) {
	db := setupReviewDB(t)
	svc := &Service{DB: db}
	seller := reviewUser(t, db, "seller")
	buyer := reviewUser(t, db, "buyer")
	listing := reviewListing(t, db, seller)

	created, err := svc.Create(context.Background(), buyer.ID, listing.ID, 4, "ok")
	require.NoError(t, err)

	reviews, err := svc.ListForSeller(context.Background(), seller.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, created.ID, reviews[0].ID)
	assert.Equal(t, seller.ID, reviews[0].SellerID)
}
