package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBedType(t *testing.T) {
	tests := []struct {
		raw  string
		want BedType
	}{
		{"King", BedKing},
		{"1 KING BED", BedKing},
		{"Queen Size", BedQueen},
		{"double", BedDouble},
		{"Twin beds", BedTwin},
		{"Sofa bed", BedSofabed},
		{"Sofabed", BedSofabed},
		{"Murphy", BedMurphy},
		{"Bunk", BedBunk},
		{"Full", BedFull},
		{"king or queen", BedKing},
		{"double sofa", BedDouble},
		{"", BedSingle},
		{"futon", BedSingle},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeBedType(tt.raw))
		})
	}
}

func TestMapAmenity(t *testing.T) {
	tests := []struct {
		code string
		want AmenityType
	}{
		{"WIFI", AmenityWifi},
		{"Free High Speed Wi-Fi", AmenityWifi},
		{"pool", AmenityPool},
		{"Outdoor Pool", AmenityPool},
		{"PARKING", AmenityParking},
		{"Fitness Center", AmenityGym},
		{"SPA", AmenitySpa},
		{"restaurant", AmenityRestaurant},
		{"Room Service", AmenityRoomService},
		{"24-hour room service", AmenityRoomService},
		{"24 Hour Front Desk", Amenity24HourFrontDesk},
		{"laundry", AmenityLaundry},
		{"Concierge", AmenityConcierge},
		{"Pets allowed", AmenityPetsAllowed},
		{"Business Centre", AmenityBusinessCentre},
		{"Executive Lounge", AmenityLounge},
		{"Childcare", AmenityChildcareService},
		{"Cash machine", AmenityCashMachine},
		{"Wheelchair accessible", AmenityAccessibilityMobility},
		{"Hearing loop", AmenityAccessibilityHearing},
		{"Adults only", AmenityAdultOnly},
		{"Spacious balcony", AmenityWifi},
		{"Workspace", AmenityWifi},
		{"Carpets", AmenityWifi},
		{"Carpeted floors, pets allowed", AmenityPetsAllowed},
		{"Spa access, spacious room", AmenitySpa},
		{"Spacious room with pool view", AmenityPool},
		{"", AmenityWifi},
		{"minibar", AmenityWifi},
		{"!!!", AmenityWifi},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, MapAmenity(tt.code))
		})
	}
}

func TestMapAmenityTotal(t *testing.T) {
	known := make(map[AmenityType]bool)
	for _, a := range AmenityTypes() {
		known[a] = true
	}
	assert.Len(t, known, 18)

	inputs := []string{"", " ", "ß", "日本語", "POOL POOL", "x\x00y", "room-service/pool", "1234567890", "Ünïcödé wifi"}
	for _, in := range inputs {
		assert.True(t, known[MapAmenity(in)], "input %q", in)
	}

	// every table entry resolves into the enum
	for _, rule := range amenityRules {
		assert.True(t, known[rule.amenity], rule.keyword)
	}
}

func TestDetectBoard(t *testing.T) {
	tests := []struct {
		text string
		want BoardType
	}{
		{"Breakfast included", BoardBreakfast},
		{"All Inclusive", BoardAllInclusive},
		{"breakfast for all guests", BoardBreakfast},
		{"Room only", BoardRoomOnly},
		{"", BoardRoomOnly},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectBoard(tt.text))
		})
	}
}
