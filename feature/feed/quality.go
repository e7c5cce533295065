package feed

// Completeness weights. They sum to MaxScore.
const (
	WeightName         = 10
	WeightMaxOccupancy = 10
	WeightBeds         = 20
	WeightPhotos       = 20
	WeightAmenities    = 20
	WeightClassOrView  = 10
	WeightRates        = 10

	MaxScore = 100
)

// Score returns the completeness of a room in [0, MaxScore].
func Score(room NormalizedRoom) int {
	score := 0
	if room.Name != "" {
		score += WeightName
	}
	if room.MaxOccupancy != nil {
		score += WeightMaxOccupancy
	}
	if len(room.Beds) > 0 {
		score += WeightBeds
	}
	if len(room.Photos) > 0 {
		score += WeightPhotos
	}
	if len(room.Amenities) > 0 {
		score += WeightAmenities
	}
	if room.Attributes[AttrClass] != "" || room.Attributes[AttrView] != "" {
		score += WeightClassOrView
	}
	if len(room.Rates) > 0 {
		score += WeightRates
	}
	return min(score, MaxScore)
}
