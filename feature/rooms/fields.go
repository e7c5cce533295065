package rooms

import (
	"fmt"

	"room-mapper/core/reconcile"
	"room-mapper/core/utils"
	"room-mapper/feature/feed"
)

// trackedField describes one canonical room field watched for source disagreement.
type trackedField struct {
	name   string
	column string
	// canonical reads the stored value.
	canonical func(r *Room) any
	// incoming reads the reported value; nil when the feed did not carry it.
	incoming func(room feed.NormalizedRoom) any
	// convert turns a recorded conflict value back into the column type.
	convert func(v any) (any, error)
}

var trackedRoomFields = []trackedField{
	{
		name:      "maxOccupancy",
		column:    "max_occupancy",
		canonical: func(r *Room) any { return r.MaxOccupancy },
		incoming: func(room feed.NormalizedRoom) any {
			if room.MaxOccupancy == nil {
				return nil
			}
			return *room.MaxOccupancy
		},
		convert: func(v any) (any, error) {
			n, err := utils.ToInt(v)
			if err != nil {
				return nil, err
			}
			if n < 1 {
				return nil, fmt.Errorf("occupancy %d is not positive", n)
			}
			return n, nil
		},
	},
}

func lookupTrackedField(name string) (trackedField, bool) {
	for _, f := range trackedRoomFields {
		if f.name == name {
			return f, true
		}
	}
	return trackedField{}, false
}

func observeRoom(canonical *Room, incoming feed.NormalizedRoom) []reconcile.Observation {
	obs := make([]reconcile.Observation, 0, len(trackedRoomFields))
	for _, f := range trackedRoomFields {
		obs = append(obs, reconcile.Observation{
			Field:    f.name,
			Internal: f.canonical(canonical),
			Incoming: f.incoming(incoming),
		})
	}
	return obs
}
