package rooms

import (
	"context"
	"errors"
	"fmt"

	"room-mapper/core/reconcile"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the set of catalog operations available inside a unit of work.
// Find and Get methods return nil without error when nothing matches.
type Repository interface {
	reconcile.ConflictStore

	FindHotelMapping(ctx context.Context, source, sourceID string) (*HotelMapping, error)
	CreateHotelMapping(ctx context.Context, m *HotelMapping) error
	UpdateHotelMapping(ctx context.Context, id, hotelID string) error

	FindRoomMapping(ctx context.Context, source, sourceID, hotelMappingID string) (*RoomMapping, error)
	GetRoomMapping(ctx context.Context, id string) (*RoomMapping, error)
	CreateRoomMapping(ctx context.Context, m *RoomMapping) error
	UpdateRoomMapping(ctx context.Context, id string, fields map[string]any) error
	ListRoomMappings(ctx context.Context, roomID string) ([]RoomMapping, error)

	GetRoom(ctx context.Context, id string) (*Room, error)
	FindRoomByName(ctx context.Context, hotelID, name string) (*Room, error)
	CreateRoom(ctx context.Context, r *Room) error
	UpdateRoom(ctx context.Context, id string, fields map[string]any) error

	FindEnrichment(ctx context.Context, roomID, source, fieldName string) (*RoomContentEnrichment, error)
	CreateEnrichment(ctx context.Context, e *RoomContentEnrichment) error
	UpdateEnrichment(ctx context.Context, id string, fields map[string]any) error
	ListEnrichments(ctx context.Context, roomID string) ([]RoomContentEnrichment, error)

	ListConflicts(ctx context.Context, status reconcile.Status) ([]reconcile.Conflict, error)
}

// Store is a Repository that can also run units of work and batch scans.
type Store interface {
	Repository

	// Transaction runs fn atomically. Returning an error rolls back every write made through repo.
	Transaction(ctx context.Context, fn func(repo Repository) error) error

	// ScanRoomMappings visits every room mapping in primary key order, batchSize rows at a time.
	ScanRoomMappings(ctx context.Context, batchSize int, fn func(batch []RoomMapping) error) error
}

// Models lists every table owned by the catalog, in migration order.
func Models() []any {
	return []any{&HotelMapping{}, &Room{}, &RoomMapping{}, &RoomContentEnrichment{}, &reconcile.Conflict{}}
}

type gormStore struct {
	db *gorm.DB
}

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Transaction(ctx context.Context, fn func(repo Repository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) ScanRoomMappings(ctx context.Context, batchSize int, fn func(batch []RoomMapping) error) error {
	if batchSize <= 0 {
		batchSize = 500
	}
	var batch []RoomMapping
	res := s.db.WithContext(ctx).FindInBatches(&batch, batchSize, func(*gorm.DB, int) error {
		return fn(batch)
	})
	return res.Error
}

// first returns the first row matching q, or nil when there is none.
func first[T any](q *gorm.DB) (*T, error) {
	var out T
	err := q.Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *gormStore) FindHotelMapping(ctx context.Context, source, sourceID string) (*HotelMapping, error) {
	return first[HotelMapping](s.db.WithContext(ctx).Where("source = ? AND source_id = ?", source, sourceID))
}

func (s *gormStore) CreateHotelMapping(ctx context.Context, m *HotelMapping) error {
	return s.db.WithContext(ctx).Create(m).Error
}

func (s *gormStore) UpdateHotelMapping(ctx context.Context, id, hotelID string) error {
	return updateByID[HotelMapping](ctx, s.db, id, map[string]any{"hotel_id": hotelID})
}

func (s *gormStore) FindRoomMapping(ctx context.Context, source, sourceID, hotelMappingID string) (*RoomMapping, error) {
	return first[RoomMapping](s.db.WithContext(ctx).
		Where("source = ? AND source_id = ? AND hotel_mapping_id = ?", source, sourceID, hotelMappingID))
}

func (s *gormStore) GetRoomMapping(ctx context.Context, id string) (*RoomMapping, error) {
	return first[RoomMapping](s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *gormStore) CreateRoomMapping(ctx context.Context, m *RoomMapping) error {
	return s.db.WithContext(ctx).Create(m).Error
}

func (s *gormStore) UpdateRoomMapping(ctx context.Context, id string, fields map[string]any) error {
	return updateByID[RoomMapping](ctx, s.db, id, fields)
}

func (s *gormStore) ListRoomMappings(ctx context.Context, roomID string) ([]RoomMapping, error) {
	var out []RoomMapping
	err := s.db.WithContext(ctx).Where("room_id = ?", roomID).
		Order("is_primary DESC").Order("last_synced_at DESC").Order("id").
		Find(&out).Error
	return out, err
}

func (s *gormStore) GetRoom(ctx context.Context, id string) (*Room, error) {
	return first[Room](s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *gormStore) FindRoomByName(ctx context.Context, hotelID, name string) (*Room, error) {
	return first[Room](s.db.WithContext(ctx).Where("hotel_id = ? AND name = ?", hotelID, name))
}

func (s *gormStore) CreateRoom(ctx context.Context, r *Room) error {
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *gormStore) UpdateRoom(ctx context.Context, id string, fields map[string]any) error {
	return updateByID[Room](ctx, s.db, id, fields)
}

func (s *gormStore) FindEnrichment(ctx context.Context, roomID, source, fieldName string) (*RoomContentEnrichment, error) {
	return first[RoomContentEnrichment](s.db.WithContext(ctx).
		Where("room_id = ? AND source = ? AND field_name = ?", roomID, source, fieldName))
}

func (s *gormStore) CreateEnrichment(ctx context.Context, e *RoomContentEnrichment) error {
	return s.db.WithContext(ctx).Create(e).Error
}

func (s *gormStore) UpdateEnrichment(ctx context.Context, id string, fields map[string]any) error {
	return updateByID[RoomContentEnrichment](ctx, s.db, id, fields)
}

func (s *gormStore) ListEnrichments(ctx context.Context, roomID string) ([]RoomContentEnrichment, error) {
	var out []RoomContentEnrichment
	err := s.db.WithContext(ctx).Where("room_id = ?", roomID).
		Order("field_name").Order("enriched_at DESC").Order("id").
		Find(&out).Error
	return out, err
}

func (s *gormStore) FindOpenConflict(ctx context.Context, entityType, entityID, fieldName string) (*reconcile.Conflict, error) {
	return first[reconcile.Conflict](s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("entity_type = ? AND entity_id = ? AND field_name = ? AND status = ?",
			entityType, entityID, fieldName, reconcile.StatusOpen))
}

func (s *gormStore) GetConflict(ctx context.Context, id string) (*reconcile.Conflict, error) {
	return first[reconcile.Conflict](s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id))
}

func (s *gormStore) CreateConflict(ctx context.Context, c *reconcile.Conflict) error {
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *gormStore) SaveConflict(ctx context.Context, c *reconcile.Conflict) error {
	return s.db.WithContext(ctx).Save(c).Error
}

func (s *gormStore) ListConflicts(ctx context.Context, status reconcile.Status) ([]reconcile.Conflict, error) {
	var out []reconcile.Conflict
	q := s.db.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("detected_at DESC").Order("id").Find(&out).Error
	return out, err
}

func updateByID[T any](ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	if err := db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(fields).Error; err != nil {
		return fmt.Errorf("update %T %s: %w", *new(T), id, err)
	}
	return nil
}
