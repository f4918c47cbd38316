package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Delivery status enum values. Transitions are strictly forward
// (pending -> paid -> shipped -> delivered); cancellation is legal
// only from pending or paid.
const (
	DeliveryPending   = "pending"
	DeliveryPaid      = "paid"
	DeliveryShipped   = "shipped"
	DeliveryDelivered = "delivered"
	DeliveryCancelled = "cancelled"
)

// Delivery is the physical handoff record. Its subject is exactly one of:
// a set of orders (purchase, one-way) or a swap (round trip).
type Delivery struct {
	ID              uuid.UUID    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SwapID          *uuid.UUID   `gorm:"column:swap_id;type:uuid;index" json:"swap_id,omitempty"`
	Swap            *SwapRequest `gorm:"foreignKey:SwapID" json:"swap,omitempty"`
	Orders          []Order      `gorm:"many2many:delivery_orders" json:"orders,omitempty"`
	PickupLocation  string       `gorm:"column:pickup_location;not null" json:"pickup_location"`
	DropoffLocation string       `gorm:"column:dropoff_location;not null" json:"dropoff_location"`
	TransportCost   int          `gorm:"column:transport_cost;default:0" json:"transport_cost"`
	DistanceText    string       `gorm:"column:distance_text" json:"distance_text"`
	RouteGeometry   datatypes.JSON `gorm:"column:route_geometry;type:jsonb" json:"route_geometry,omitempty"`
	Status          string       `gorm:"column:status;type:varchar(20);default:'pending';index" json:"status"`
	RiderID         *uuid.UUID   `gorm:"column:rider_id;type:uuid;index" json:"rider_id,omitempty"`
	Rider           *User        `gorm:"foreignKey:RiderID" json:"rider,omitempty"`
	RiderPhone      string       `gorm:"column:rider_phone" json:"rider_phone"`
	TrackingCode    *string      `gorm:"column:tracking_code;uniqueIndex" json:"tracking_code,omitempty"`
	CurrentLat      *float64     `gorm:"column:current_lat" json:"current_lat,omitempty"`
	CurrentLng      *float64     `gorm:"column:current_lng" json:"current_lng,omitempty"`
	LocationUpdatedAt *time.Time `gorm:"column:location_updated_at" json:"location_updated_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func (Delivery) TableName() string {
	return "Deliveries"
}

func (d *Delivery) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// IsSwap reports whether the delivery's subject is a swap (round trip).
func (d *Delivery) IsSwap() bool {
	return d.SwapID != nil
}

// CanCancel reports whether cancellation is still legal (pre-transit).
func (d *Delivery) CanCancel() bool {
	return d.Status == DeliveryPending || d.Status == DeliveryPaid
}
