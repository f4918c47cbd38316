package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeFee_OneWay(t *testing.T) {
	// 50 base + 3/km * 10km = 80
	assert.Equal(t, 80, ComputeFee(10, false))
}

func TestComputeFee_RoundTrip(t *testing.T) {
	// 50 base + 3/km * 20km = 110
	assert.Equal(t, 110, ComputeFee(10, true))
}

func TestComputeFee_MinimumFare(t *testing.T) {
	assert.Equal(t, 50, ComputeFee(0, false))
	assert.Equal(t, 50, ComputeFee(0.1, true))
}

func TestComputeFee_RoundsToNearestTen(t *testing.T) {
	// 50 + 3*7.5 = 72.5 -> 70
	assert.Equal(t, 70, ComputeFee(7.5, false))
	// 50 + 3*8.4 = 75.2 -> 80
	assert.Equal(t, 80, ComputeFee(8.4, false))
}

type fakeGeocoder struct {
	coords map[string]Coordinates
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (*Coordinates, error) {
	if c, ok := f.coords[address]; ok {
		return &c, nil
	}
	return nil, errors.New("no results")
}

type fakeRoutes struct {
	meters float64
	err    error
}

func (f *fakeRoutes) Route(ctx context.Context, from, to Coordinates) (float64, json.RawMessage, error) {
	if f.err != nil {
		return 0, nil, f.err
	}
	return f.meters, json.RawMessage(`{"type":"LineString"}`), nil
}

func TestQuote_Success(t *testing.T) {
	svc := &Service{
		Geocoder: &fakeGeocoder{coords: map[string]Coordinates{
			"Kamakwa": {Lat: -0.41, Lng: 36.93},
			"Skuta":   {Lat: -0.43, Lng: 36.95},
		}},
		Routes: &fakeRoutes{meters: 10000},
		Region: "Nyeri",
	}

	quote, err := svc.Quote(context.Background(), "Kamakwa", "Skuta", false)
	require.NoError(t, err)
	assert.Equal(t, 80, quote.Fee)
	assert.Equal(t, "10.0 km", quote.DistanceText)
	assert.NotEmpty(t, quote.RouteGeometry)
}

func TestQuote_RoundTripLabel(t *testing.T) {
	svc := &Service{
		Geocoder: &fakeGeocoder{coords: map[string]Coordinates{
			"A": {Lat: 1, Lng: 1},
			"B": {Lat: 2, Lng: 2},
		}},
		Routes: &fakeRoutes{meters: 10000},
		Region: "Nyeri",
	}

	quote, err := svc.Quote(context.Background(), "A", "B", true)
	require.NoError(t, err)
	assert.Equal(t, 110, quote.Fee)
	assert.Equal(t, "10.0 km x 2 (Round Trip)", quote.DistanceText)
}

func TestQuote_GeocodeFailureNamesAddress(t *testing.T) {
	svc := &Service{
		Geocoder: &fakeGeocoder{coords: map[string]Coordinates{}},
		Routes:   &fakeRoutes{meters: 1000},
		Region:   "Nyeri",
	}

	_, err := svc.Quote(context.Background(), "Nowhere", "Skuta", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nowhere")
	assert.Contains(t, err.Error(), "Nyeri")
}

func TestQuote_RouteFailure(t *testing.T) {
	svc := &Service{
		Geocoder: &fakeGeocoder{coords: map[string]Coordinates{
			"A": {Lat: 1, Lng: 1},
			"B": {Lat: 2, Lng: 2},
		}},
		Routes: &fakeRoutes{err: errors.New("osrm down")},
		Region: "Nyeri",
	}

	_, err := svc.Quote(context.Background(), "A", "B", false)
	require.Error(t, err)
	assert.Equal(t, "Could not calculate road path.", err.Error())
}
