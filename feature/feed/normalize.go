package feed

import (
	"strings"
	"unicode"
)

type bedRule struct {
	keyword string
	bed     BedType
}

// Checked in order; the first substring hit wins.
var bedRules = [...]bedRule{
	{"king", BedKing},
	{"queen", BedQueen},
	{"double", BedDouble},
	{"twin", BedTwin},
	{"sofa", BedSofabed},
	{"murphy", BedMurphy},
	{"bunk", BedBunk},
	{"full", BedFull},
}

// NormalizeBedType maps a raw bed description to a BedType, defaulting to single.
func NormalizeBedType(raw string) BedType {
	s := strings.ToLower(raw)
	for _, rule := range bedRules {
		if strings.Contains(s, rule.keyword) {
			return rule.bed
		}
	}
	return BedSingle
}

type amenityRule struct {
	keyword string
	amenity AmenityType
}

// amenityExclusions lists, per keyword, longer words that contain the keyword
// without meaning it. They are removed from the key before that keyword is tested.
var amenityExclusions = map[string][]string{
	"SPA":  {"SPACIOUS", "SPACE"},
	"PETS": {"CARPET", "TRUMPETS", "SNIPPETS"},
}

// Keywords match against the upper-cased alphanumeric form of the code.
// ROOMSERVICE precedes the 24 hour entries so "24HOURROOMSERVICE" is room service.
var amenityRules = [...]amenityRule{
	{"ROOMSERVICE", AmenityRoomService},
	{"FRONTDESK", Amenity24HourFrontDesk},
	{"24HOUR", Amenity24HourFrontDesk},
	{"24HR", Amenity24HourFrontDesk},
	{"RECEPTION", Amenity24HourFrontDesk},
	{"WHEELCHAIR", AmenityAccessibilityMobility},
	{"MOBILITY", AmenityAccessibilityMobility},
	{"HEARING", AmenityAccessibilityHearing},
	{"DEAF", AmenityAccessibilityHearing},
	{"ADULTONLY", AmenityAdultOnly},
	{"ADULTSONLY", AmenityAdultOnly},
	{"WIFI", AmenityWifi},
	{"INTERNET", AmenityWifi},
	{"POOL", AmenityPool},
	{"PARKING", AmenityParking},
	{"GARAGE", AmenityParking},
	{"GYM", AmenityGym},
	{"FITNESS", AmenityGym},
	{"SPA", AmenitySpa},
	{"SAUNA", AmenitySpa},
	{"RESTAURANT", AmenityRestaurant},
	{"DINING", AmenityRestaurant},
	{"LAUNDRY", AmenityLaundry},
	{"DRYCLEAN", AmenityLaundry},
	{"CONCIERGE", AmenityConcierge},
	{"PETS", AmenityPetsAllowed},
	{"PETFRIENDLY", AmenityPetsAllowed},
	{"BUSINESS", AmenityBusinessCentre},
	{"LOUNGE", AmenityLounge},
	{"CHILDCARE", AmenityChildcareService},
	{"BABYSIT", AmenityChildcareService},
	{"KIDSCLUB", AmenityChildcareService},
	{"CASHMACHINE", AmenityCashMachine},
	{"ATMMACHINE", AmenityCashMachine},
	{"CASHPOINT", AmenityCashMachine},
}

// MapAmenity maps a supplier amenity code or label to an AmenityType, defaulting to wifi.
func MapAmenity(code string) AmenityType {
	key := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return unicode.ToUpper(r)
		}
		return -1
	}, code)

	for _, rule := range amenityRules {
		if rule.matches(key) {
			return rule.amenity
		}
	}
	return AmenityWifi
}

func (r amenityRule) matches(key string) bool {
	for _, word := range amenityExclusions[r.keyword] {
		key = strings.ReplaceAll(key, word, "")
	}
	return strings.Contains(key, r.keyword)
}

// AmenityTypes lists every AmenityType.
func AmenityTypes() []AmenityType {
	return []AmenityType{
		AmenityWifi, AmenityPool, AmenityParking, AmenityGym, AmenitySpa,
		AmenityRestaurant, AmenityRoomService, AmenityLaundry, AmenityConcierge,
		AmenityPetsAllowed, AmenityBusinessCentre, AmenityLounge,
		AmenityChildcareService, AmenityCashMachine, Amenity24HourFrontDesk,
		AmenityAccessibilityMobility, AmenityAccessibilityHearing, AmenityAdultOnly,
	}
}

// DetectBoard reads a meal plan out of free text. "breakfast" is checked
// before "all" so "breakfast for all guests" stays breakfast.
func DetectBoard(text string) BoardType {
	s := strings.ToLower(text)
	switch {
	case strings.Contains(s, "breakfast"):
		return BoardBreakfast
	case strings.Contains(s, "all"):
		return BoardAllInclusive
	default:
		return BoardRoomOnly
	}
}
