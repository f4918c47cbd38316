package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User role enum values (enum_Users_role).
const (
	RoleParent   = "parent"
	RoleSchool   = "school"
	RoleBookshop = "bookshop"
	RoleRider    = "rider"
)

// User is the account record for every marketplace participant.
// Email is the login identifier; role decides which profile extension applies.
type User struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"column:email;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;not null" json:"-"`
	FullName     string    `gorm:"column:full_name;not null" json:"full_name"`
	Role         string    `gorm:"column:role;type:varchar(10);not null;default:'parent'" json:"role"`
	Location     string    `gorm:"column:location" json:"location"`
	PhoneNumber  string    `gorm:"column:phone_number" json:"phone_number"`
	NationalID   *string   `gorm:"column:national_id;uniqueIndex" json:"national_id,omitempty"`
	Rating       float64   `gorm:"column:rating;default:0" json:"rating"`
	ReviewCount  int       `gorm:"column:review_count;default:0" json:"review_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "Users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// SchoolProfile extends a school-role user.
type SchoolProfile struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex;not null" json:"user_id"`
	SchoolName string    `gorm:"column:school_name;not null" json:"school_name"`
	Address    string    `gorm:"column:address" json:"address"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (SchoolProfile) TableName() string {
	return "SchoolProfiles"
}

func (p *SchoolProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// BookshopProfile extends a bookshop-role user.
type BookshopProfile struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex;not null" json:"user_id"`
	ShopName     string    `gorm:"column:shop_name;not null" json:"shop_name"`
	Address      string    `gorm:"column:address" json:"address"`
	PhoneNumber  string    `gorm:"column:phone_number" json:"phone_number"`
	OpeningHours string    `gorm:"column:opening_hours" json:"opening_hours"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (BookshopProfile) TableName() string {
	return "BookshopProfiles"
}

func (p *BookshopProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
