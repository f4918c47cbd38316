package users

import (
	"context"
	"errors"
	"strings"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/pkg/constants"
	"bookbridge-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

// RegisterInput matches the signup form. Role-specific fields (SchoolName,
// ShopName, NationalID) are required only for their role.
type RegisterInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"full_name"`
	Role        string `json:"role"`
	Location    string `json:"location"`
	PhoneNumber string `json:"phone_number"`

	SchoolName string `json:"school_name"`
	ShopName   string `json:"shop_name"`
	Address    string `json:"address"`
	NationalID string `json:"national_id"`
}

// Register creates the user, their wallet and any role profile in one
// transaction. Returns the created user with PasswordHash still set; the
// handler relies on the json:"-" tag to keep it out of responses.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !validation.IsValidEmail(email) {
		return nil, errors.New("Invalid email format")
	}
	if !validation.IsValidPassword(in.Password) {
		return nil, errors.New("Password must be at least 8 characters with a letter, a number and a special character")
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, errors.New("Full name is required")
	}
	if in.Role == "" {
		in.Role = domain.RoleParent
	}
	if !constants.IsValidRole(in.Role) {
		return nil, errors.New("Invalid role")
	}
	phone := strings.TrimSpace(in.PhoneNumber)
	if phone != "" {
		if !validation.IsValidPhone(phone) {
			return nil, errors.New("Invalid phone number")
		}
		phone = validation.NormalizePhone(phone)
	}
	switch in.Role {
	case domain.RoleSchool:
		if strings.TrimSpace(in.SchoolName) == "" {
			return nil, errors.New("School name is required")
		}
	case domain.RoleBookshop:
		if strings.TrimSpace(in.ShopName) == "" {
			return nil, errors.New("Shop name is required")
		}
	case domain.RoleRider:
		if strings.TrimSpace(in.NationalID) == "" {
			return nil, errors.New("National ID is required for riders")
		}
		if phone == "" {
			return nil, errors.New("Phone number is required for riders")
		}
	}

	var existing domain.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, errors.New("Email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), 10)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(in.FullName),
		Role:         in.Role,
		Location:     strings.TrimSpace(in.Location),
		PhoneNumber:  phone,
	}
	if in.Role == domain.RoleRider {
		nid := strings.TrimSpace(in.NationalID)
		u.NationalID = &nid
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		if err := tx.Create(&domain.Wallet{UserID: u.ID}).Error; err != nil {
			return err
		}
		switch in.Role {
		case domain.RoleSchool:
			return tx.Create(&domain.SchoolProfile{
				UserID:     u.ID,
				SchoolName: strings.TrimSpace(in.SchoolName),
				Address:    strings.TrimSpace(in.Address),
			}).Error
		case domain.RoleBookshop:
			return tx.Create(&domain.BookshopProfile{
				UserID:      u.ID,
				ShopName:    strings.TrimSpace(in.ShopName),
				Address:     strings.TrimSpace(in.Address),
				PhoneNumber: phone,
			}).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetProfile returns a user's public profile with any role extension.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.User, interface{}, error) {
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&u).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, errors.New("User not found")
		}
		return nil, nil, err
	}
	switch u.Role {
	case domain.RoleSchool:
		var p domain.SchoolProfile
		if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err == nil {
			return &u, &p, nil
		}
	case domain.RoleBookshop:
		var p domain.BookshopProfile
		if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err == nil {
			return &u, &p, nil
		}
	}
	return &u, nil, nil
}

// UpdateProfile updates the mutable account fields.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, fields map[string]interface{}) (*domain.User, error) {
	allowed := map[string]bool{"full_name": true, "location": true, "phone_number": true}
	upd := make(map[string]interface{})
	for k, v := range fields {
		if allowed[k] {
			upd[k] = v
		}
	}
	if len(upd) == 0 {
		return nil, errors.New("No valid update fields provided")
	}
	if p, ok := upd["phone_number"].(string); ok && p != "" {
		if !validation.IsValidPhone(p) {
			return nil, errors.New("Invalid phone number")
		}
		upd["phone_number"] = validation.NormalizePhone(p)
	}
	res := s.DB.WithContext(ctx).Model(&domain.User{}).Where("id = ?", userID).Updates(upd)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errors.New("User not found")
	}
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
