package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// VenueArea is a hall or zone of the venue that contains booths.
type VenueArea struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"area_name"`
	Description  *string   `json:"area_description,omitempty"`
	AreaType     string    `json:"area_type"`
	Capacity     int       `json:"capacity"`
	WidthMeters  *float64  `json:"width_meters,omitempty"`
	HeightMeters *float64  `json:"height_meters,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// BoothType classifies a booth position.
type BoothType string

const (
	BoothStandard BoothType = "standard"
	BoothPremium  BoothType = "premium"
	BoothCorner   BoothType = "corner"
	BoothIsland   BoothType = "island"
)

// Valid reports whether t is a known booth type.
func (t BoothType) Valid() bool {
	switch t {
	case BoothStandard, BoothPremium, BoothCorner, BoothIsland:
		return true
	}
	return false
}

// BoothPosition is a physical exhibition space.  BoothNumber is unique
// within its venue area.
type BoothPosition struct {
	ID           uint64          `json:"id"`
	VenueAreaID  uint64          `json:"venue_area_id"`
	AreaName     string          `json:"area_name,omitempty"`
	BoothNumber  string          `json:"booth_number"`
	PositionX    float64         `json:"position_x"`
	PositionY    float64         `json:"position_y"`
	WidthMeters  float64         `json:"width_meters"`
	HeightMeters float64         `json:"height_meters"`
	BoothType    BoothType       `json:"booth_type"`
	HasPower     bool            `json:"has_power"`
	HasInternet  bool            `json:"has_internet"`
	HasWater     bool            `json:"has_water"`
	PricePerDay  decimal.Decimal `json:"price_per_day"`
	IsAvailable  bool            `json:"is_available"`
	CreatedAt    time.Time       `json:"created_at"`
}

// VenueFacility is a service point inside an area: restrooms, first aid,
// food court, information desk.  Positions are optional map coordinates.
type VenueFacility struct {
	ID           uint64    `json:"id"`
	VenueAreaID  uint64    `json:"venue_area_id"`
	AreaName     string    `json:"area_name,omitempty"`
	Name         string    `json:"facility_name"`
	FacilityType string    `json:"facility_type"`
	PositionX    *float64  `json:"position_x,omitempty"`
	PositionY    *float64  `json:"position_y,omitempty"`
	Description  *string   `json:"description,omitempty"`
	IsAccessible bool      `json:"is_accessible"`
	CreatedAt    time.Time `json:"created_at"`
}
