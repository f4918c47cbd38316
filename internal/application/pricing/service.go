package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
)

// Pricing formula constants (KES).
const (
	baseFee     = 50
	costPerKm   = 3
	minimumFare = 50
)

// Coordinates is a geocoded point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geocoder resolves a free-text address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Coordinates, error)
}

// RouteClient resolves the road route between two points.
type RouteClient interface {
	Route(ctx context.Context, from, to Coordinates) (distanceMeters float64, geometry json.RawMessage, err error)
}

// Quote is the priced route returned to callers; the distance/route
// payload is surfaced unchanged to the frontend map.
type Quote struct {
	Fee           int             `json:"fee"`
	DistanceText  string          `json:"distance_text"`
	PickupCoords  Coordinates     `json:"pickup_coords"`
	DropoffCoords Coordinates     `json:"dropoff_coords"`
	RouteGeometry json.RawMessage `json:"route_geometry"`
}

// Service prices a delivery from two location strings and a round-trip
// flag. External failures surface as errors; nothing is retried.
type Service struct {
	Geocoder Geocoder
	Routes   RouteClient
	Region   string // local search hint in error messages, e.g. "Nyeri"
}

// Quote geocodes both endpoints, routes between them and applies the fee
// formula: base + per-km * distance (doubled for round trips), floored at
// the minimum fare, rounded to the nearest 10.
func (s *Service) Quote(ctx context.Context, pickup, dropoff string, roundTrip bool) (*Quote, error) {
	from, err := s.Geocoder.Geocode(ctx, pickup)
	if err != nil {
		return nil, fmt.Errorf("Map could not find: '%s'. Try adding '%s'.", pickup, s.Region)
	}
	to, err := s.Geocoder.Geocode(ctx, dropoff)
	if err != nil {
		return nil, fmt.Errorf("Map could not find: '%s'. Try adding '%s'.", dropoff, s.Region)
	}

	meters, geometry, err := s.Routes.Route(ctx, *from, *to)
	if err != nil {
		return nil, fmt.Errorf("Could not calculate road path.")
	}
	km := meters / 1000

	return &Quote{
		Fee:           ComputeFee(km, roundTrip),
		DistanceText:  distanceText(km, roundTrip),
		PickupCoords:  *from,
		DropoffCoords: *to,
		RouteGeometry: geometry,
	}, nil
}

// ComputeFee applies the pricing formula to a one-way distance.
func ComputeFee(distanceKm float64, roundTrip bool) int {
	calcKm := distanceKm
	if roundTrip {
		calcKm *= 2
	}
	total := float64(baseFee) + calcKm*float64(costPerKm)
	if total < minimumFare {
		total = minimumFare
	}
	return int(math.Round(total/10) * 10)
}

func distanceText(distanceKm float64, roundTrip bool) string {
	val := math.Round(distanceKm*10) / 10
	if roundTrip {
		return fmt.Sprintf("%.1f km x 2 (Round Trip)", val)
	}
	return fmt.Sprintf("%.1f km", val)
}
