package rooms

import (
	"time"

	"room-mapper/feature/feed"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MappingType records how a room mapping was established.
type MappingType string

const (
	MappingAutomatic MappingType = "automatic"
	MappingManual    MappingType = "manual"
	MappingVerified  MappingType = "verified"
)

// Valid reports whether m is a known mapping type.
func (m MappingType) Valid() bool {
	switch m {
	case MappingAutomatic, MappingManual, MappingVerified:
		return true
	}
	return false
}

// Quality is the review tier of an enrichment.
type Quality string

const (
	QualityPending  Quality = "pending"
	QualityApproved Quality = "approved"
)

// Valid reports whether q is a known quality tier.
func (q Quality) Valid() bool {
	return q == QualityPending || q == QualityApproved
}

// Enrichment field names written by MapRoom.
const (
	FieldImages    = "images"
	FieldAmenities = "amenities"
)

// EntityRoom is the conflict entity type of canonical rooms.
const EntityRoom = "room"

// DefaultMaxOccupancy is used for new rooms whose feed carries no occupancy.
const DefaultMaxOccupancy = 2

// SnapshotVersion is the current RoomSnapshot layout.
const SnapshotVersion = 1

// RoomSnapshot is the stored copy of the last room a source reported.
type RoomSnapshot struct {
	Version int                 `json:"version"`
	Room    feed.NormalizedRoom `json:"room"`
}

// NewRoomSnapshot wraps room in the current snapshot version.
func NewRoomSnapshot(room feed.NormalizedRoom) RoomSnapshot {
	return RoomSnapshot{Version: SnapshotVersion, Room: room}
}

// HotelMapping binds a source's hotel id to an internal hotel id.
type HotelMapping struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Source    string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_hotel_mapping_source,priority:1" json:"source"`
	SourceID  string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_hotel_mapping_source,priority:2" json:"sourceId"`
	HotelID   string    `gorm:"type:varchar(64);not null;index" json:"hotelId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Room is the canonical, source-agnostic room.
type Room struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	HotelID      string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_room_hotel_name,priority:1" json:"hotelId"`
	Name         string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_room_hotel_name,priority:2" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	MaxOccupancy int       `gorm:"not null;default:2" json:"maxOccupancy"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RoomMapping binds one source's room to a canonical room.
type RoomMapping struct {
	ID             string                            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RoomID         string                            `gorm:"type:varchar(36);not null;index" json:"roomId"`
	HotelMappingID string                            `gorm:"type:varchar(36);not null;uniqueIndex:idx_room_mapping_source,priority:3" json:"hotelMappingId"`
	Source         string                            `gorm:"type:varchar(64);not null;uniqueIndex:idx_room_mapping_source,priority:1" json:"source"`
	SourceID       string                            `gorm:"type:varchar(128);not null;uniqueIndex:idx_room_mapping_source,priority:2" json:"sourceId"`
	SourceData     datatypes.JSONType[RoomSnapshot] `json:"sourceData"`
	Confidence     float64                           `gorm:"not null" json:"confidence"`
	MappingType    MappingType                       `gorm:"type:varchar(16);not null" json:"mappingType"`
	IsPrimary      bool                              `gorm:"not null;default:false" json:"isPrimary"`
	LastSyncedAt   time.Time                         `gorm:"not null;index" json:"lastSyncedAt"`
	QualityScore   int                               `gorm:"not null" json:"qualityScore"`
	CreatedAt      time.Time                         `json:"createdAt"`
	UpdatedAt      time.Time                         `json:"updatedAt"`
}

// RoomContentEnrichment is per-source supplementary content for one field of a room.
type RoomContentEnrichment struct {
	ID         string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RoomID     string         `gorm:"type:varchar(36);not null;uniqueIndex:idx_enrichment_key,priority:1" json:"roomId"`
	Source     string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_enrichment_key,priority:2" json:"source"`
	FieldName  string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_enrichment_key,priority:3" json:"fieldName"`
	Content    datatypes.JSON `json:"content"`
	Quality    Quality        `gorm:"type:varchar(16);not null;default:pending" json:"quality"`
	EnrichedAt time.Time      `gorm:"not null" json:"enrichedAt"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

func (m *HotelMapping) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

func (r *Room) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (m *RoomMapping) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

func (e *RoomContentEnrichment) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
