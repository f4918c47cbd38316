package directory

import (
	"context"
	"errors"
	"strings"

	"bookbridge-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service serves the public school and bookshop directory.
type Service struct {
	DB *gorm.DB
}

// ListSchools returns registered schools, optionally filtered by name.
func (s *Service) ListSchools(ctx context.Context, query string) ([]domain.SchoolProfile, error) {
	q := s.DB.WithContext(ctx).Model(&domain.SchoolProfile{})
	if query != "" {
		q = q.Where("LOWER(school_name) LIKE ?", "%"+strings.ToLower(query)+"%")
	}
	var schools []domain.SchoolProfile
	if err := q.Order("school_name ASC").Find(&schools).Error; err != nil {
		return nil, err
	}
	return schools, nil
}

// ListBookshops returns registered bookshops, optionally filtered by name.
func (s *Service) ListBookshops(ctx context.Context, query string) ([]domain.BookshopProfile, error) {
	q := s.DB.WithContext(ctx).Model(&domain.BookshopProfile{})
	if query != "" {
		q = q.Where("LOWER(shop_name) LIKE ?", "%"+strings.ToLower(query)+"%")
	}
	var shops []domain.BookshopProfile
	if err := q.Order("shop_name ASC").Find(&shops).Error; err != nil {
		return nil, err
	}
	return shops, nil
}

// ShopInventory returns a bookshop's active listings.
func (s *Service) ShopInventory(ctx context.Context, shopUserID uuid.UUID) ([]domain.Listing, error) {
	var owner domain.User
	if err := s.DB.WithContext(ctx).Where("id = ?", shopUserID).First(&owner).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New("Bookshop not found")
		}
		return nil, err
	}
	if owner.Role != domain.RoleBookshop {
		return nil, errors.New("Bookshop not found")
	}
	var listings []domain.Listing
	err := s.DB.WithContext(ctx).Preload("Textbook").
		Where("listed_by_id = ? AND is_active = ?", shopUserID, true).
		Order("created_at DESC").Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}
