package feed

import "time"

// BedType is the closed set of normalized bed kinds.
type BedType string

const (
	BedSingle  BedType = "single"
	BedDouble  BedType = "double"
	BedFull    BedType = "full"
	BedTwin    BedType = "twin"
	BedQueen   BedType = "queen"
	BedKing    BedType = "king"
	BedBunk    BedType = "bunk"
	BedSofabed BedType = "sofabed"
	BedMurphy  BedType = "murphy"
)

// AmenityType is the closed set of normalized amenities.
type AmenityType string

const (
	AmenityWifi                  AmenityType = "wifi"
	AmenityPool                  AmenityType = "pool"
	AmenityParking               AmenityType = "parking"
	AmenityGym                   AmenityType = "gym"
	AmenitySpa                   AmenityType = "spa"
	AmenityRestaurant            AmenityType = "restaurant"
	AmenityRoomService           AmenityType = "room_service"
	AmenityLaundry               AmenityType = "laundry"
	AmenityConcierge             AmenityType = "concierge"
	AmenityPetsAllowed           AmenityType = "pets_allowed"
	AmenityBusinessCentre        AmenityType = "business_centre"
	AmenityLounge                AmenityType = "lounge"
	AmenityChildcareService      AmenityType = "childcare_service"
	AmenityCashMachine           AmenityType = "cash_machine"
	Amenity24HourFrontDesk       AmenityType = "24_hour_front_desk"
	AmenityAccessibilityMobility AmenityType = "accessibility_mobility"
	AmenityAccessibilityHearing  AmenityType = "accessibility_hearing"
	AmenityAdultOnly             AmenityType = "adult_only"
)

// BoardType is the meal plan of a rate.
type BoardType string

const (
	BoardRoomOnly     BoardType = "room_only"
	BoardBreakfast    BoardType = "breakfast"
	BoardAllInclusive BoardType = "all_inclusive"
)

// Attribute keys recognized in NormalizedRoom.Attributes.
const (
	AttrClass = "class"
	AttrView  = "view"
)

// Rate defaults applied when the feed does not override them.
const (
	DefaultAmount      = "0.00"
	DefaultCurrency    = "USD"
	DefaultPaymentType = "pay_now"
	DefaultRateSource  = "feed"
	DefaultRateTTL     = 24 * time.Hour
)

// Bed is one bed entry of a room.
type Bed struct {
	Type  BedType `json:"bedType"`
	Count int     `json:"count"`
}

// Photo is a room image reference.
type Photo struct {
	URL string `json:"url"`
}

// Amenity is a normalized amenity with the supplier's wording.
type Amenity struct {
	Type        AmenityType `json:"amenityType"`
	Description string      `json:"description"`
}

// LoyaltyFlags describe loyalty program treatment of a rate.
type LoyaltyFlags struct {
	Eligible   bool `json:"eligible"`
	MemberRate bool `json:"memberRate"`
}

// RateRecord is one sellable rate offered for a room.
type RateRecord struct {
	ID   string `json:"id"`
	Code string `json:"code,omitempty"`

	TotalAmount                string `json:"totalAmount"`
	TotalCurrency              string `json:"totalCurrency"`
	BaseAmount                 string `json:"baseAmount"`
	BaseCurrency               string `json:"baseCurrency"`
	TaxAmount                  string `json:"taxAmount"`
	TaxCurrency                string `json:"taxCurrency"`
	FeeAmount                  string `json:"feeAmount"`
	FeeCurrency                string `json:"feeCurrency"`
	DueAtAccommodationAmount   string `json:"dueAtAccommodationAmount"`
	DueAtAccommodationCurrency string `json:"dueAtAccommodationCurrency"`

	PaymentType             string       `json:"paymentType"`
	BoardType               BoardType    `json:"boardType"`
	AvailablePaymentMethods []string     `json:"availablePaymentMethods,omitempty"`
	Conditions              []string     `json:"conditions,omitempty"`
	CancellationTimeline    []string     `json:"cancellationTimeline,omitempty"`
	Loyalty                 LoyaltyFlags `json:"loyalty"`
	Source                  string       `json:"source"`
	ExpiresAt               time.Time    `json:"expiresAt"`
	Description             string       `json:"description,omitempty"`
	QuantityAvailable       *int         `json:"quantityAvailable,omitempty"`
}

// NewRateRecord returns a rate carrying the default amounts and terms.
func NewRateRecord(id, code string, now time.Time) RateRecord {
	return RateRecord{
		ID:                         id,
		Code:                       code,
		TotalAmount:                DefaultAmount,
		TotalCurrency:              DefaultCurrency,
		BaseAmount:                 DefaultAmount,
		BaseCurrency:               DefaultCurrency,
		TaxAmount:                  DefaultAmount,
		TaxCurrency:                DefaultCurrency,
		FeeAmount:                  DefaultAmount,
		FeeCurrency:                DefaultCurrency,
		DueAtAccommodationAmount:   DefaultAmount,
		DueAtAccommodationCurrency: DefaultCurrency,
		PaymentType:                DefaultPaymentType,
		BoardType:                  BoardRoomOnly,
		Source:                     DefaultRateSource,
		ExpiresAt:                  now.Add(DefaultRateTTL),
	}
}

// SetCurrency applies one currency to all five amount pairs.
func (r *RateRecord) SetCurrency(currency string) {
	r.TotalCurrency = currency
	r.BaseCurrency = currency
	r.TaxCurrency = currency
	r.FeeCurrency = currency
	r.DueAtAccommodationCurrency = currency
}

// NormalizedRoom is the canonical shape of one supplier room.
type NormalizedRoom struct {
	Name         string            `json:"name"`
	MaxOccupancy *int              `json:"maxOccupancy,omitempty"`
	Beds         []Bed             `json:"beds"`
	Photos       []Photo           `json:"photos"`
	Amenities    []Amenity         `json:"amenities"`
	Attributes   map[string]string `json:"attributes"`
	Rates        []RateRecord      `json:"rates"`
}

// NewNormalizedRoom returns a room with empty, non-nil collections.
func NewNormalizedRoom(name string) NormalizedRoom {
	return NormalizedRoom{
		Name:       name,
		Beds:       []Bed{},
		Photos:     []Photo{},
		Amenities:  []Amenity{},
		Attributes: map[string]string{},
		Rates:      []RateRecord{},
	}
}

// Record is one room emitted by the parser with its optional source ids.
// Empty SourceID or HotelID means the feed did not carry one.
type Record struct {
	Room     NormalizedRoom
	SourceID string
	HotelID  string
}
