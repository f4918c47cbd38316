package users

import (
	"context"
	"testing"

	"bookbridge-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func setupUserDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.User{}, &domain.Wallet{},
		&domain.SchoolProfile{}, &domain.BookshopProfile{},
	))
	return db
}

func parentInput(email string) RegisterInput {
	return RegisterInput{
		Email:       email,
		Password:    "s3cret!pass",
		FullName:    "Jane Wanjiku",
		Role:        domain.RoleParent,
		Location:    "Nyeri",
		PhoneNumber: "0712345678",
	}
}

func TestRegister_ParentGetsWallet(t *testing.T) {
	db := setupUserDB(t)
	svc := &Service{DB: db}

	user, err := svc.Register(context.Background(), parentInput("jane@test.com"))
	require.NoError(t, err)
	assert.Equal(t, "254712345678", user.PhoneNumber, "phone is normalized")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret!pass")))

	var wallet domain.Wallet
	require.NoError(t, db.First(&wallet, "user_id = ?", user.ID).Error)
	assert.Equal(t, 0.0, wallet.Balance)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db := setupUserDB(t)
	svc := &Service{DB: db}

	_, err := svc.Register(context.Background(), parentInput("jane@test.com"))
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), parentInput("jane@test.com"))
	require.Error(t, err)
	assert.Equal(t, "Email already registered", err.Error())
}

func TestRegister_WeakPassword(t *testing.T) {
	db := setupUserDB(t)
	svc := &Service{DB: db}

	in := parentInput("jane@test.com")
	in.Password = "letters"
	_, err := svc.Register(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, "Password must be at least 8 characters with a letter, a number and a special character", err.Error())
}

func TestRegister_RoleProfiles(t *testing.T) {
	db := setupUserDB(t)
	svc := &Service{DB: db}

	school := parentInput("school@test.com")
	school.Role = domain.RoleSchool
	school.SchoolName = ""
	_, err := svc.Register(context.Background(), school)
	require.Error(t, err)
	assert.Equal(t, "School name is required", err.Error())

	school.SchoolName = "Nyeri Primary"
	school.Address = "Box 12, Nyeri"
	user, err := svc.Register(context.Background(), school)
	require.NoError(t, err)
	var profile domain.SchoolProfile
	require.NoError(t, db.First(&profile, "user_id = ?", user.ID).Error)
	assert.Equal(t, "Nyeri Primary", profile.SchoolName)

	shop := parentInput("shop@test.com")
	shop.Role = domain.RoleBookshop
	shop.ShopName = "Text Centre"
	user, err = svc.Register(context.Background(), shop)
	require.NoError(t, err)
	var shopProfile domain.BookshopProfile
	require.NoError(t, db.First(&shopProfile, "user_id = ?", user.ID).Error)
	assert.Equal(t, "Text Centre", shopProfile.ShopName)
}

func TestRegister_RiderRequiresNationalID(t *testing.T) {
	db := setupUserDB(t)
	svc := &Service{DB: db}

	rider := parentInput("rider@test.com")
	rider.Role = domain.RoleRider
	_, err := svc.Register(context.Background(), rider)
	require.Error(t, err)
	assert.Equal(t, "National ID is required for riders", err.Error())

	rider.NationalID = "12345678"
	user, err := svc.Register(context.Background(), rider)
	require.NoError(t, err)
	require.NotNil(t, user.NationalID)
	assert.Equal(t, "12345678", *user.NationalID)
}

func TestUpdateProfile_AllowedFieldsOnly(t *testing.T) {
	db := setupUserDB(t)
	svc := &Service{DB: db}

	user, err := svc.Register(context.Background(), parentInput("jane@test.com"))
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(context.Background(), user.ID, map[string]interface{}{
		"full_name": "Jane W. Kamau",
		"location":  "Karatina",
		"role":      "rider", // silently dropped
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane W. Kamau", updated.FullName)
	assert.Equal(t, "Karatina", updated.Location)
	assert.Equal(t, domain.RoleParent, updated.Role)

	_, err = svc.UpdateProfile(context.Background(), user.ID, map[string]interface{}{"role": "rider"})
	require.Error(t, err)
	assert.Equal(t, "No valid update fields provided", err.Error())
}

func TestGetProfile_IncludesRoleExtension(t *testing.T) {
	db := setupUserDB(t)
	svc := &Service{DB: db}

	school := parentInput("school@test.com")
	school.Role = domain.RoleSchool
	school.SchoolName = "Nyeri Primary"
	created, err := svc.Register(context.Background(), school)
	require.NoError(t, err)

	user, profile, err := svc.GetProfile(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	schoolProfile, ok := profile.(*domain.SchoolProfile)
	require.True(t, ok)
	assert.Equal(t, "Nyeri Primary", schoolProfile.SchoolName)
}
