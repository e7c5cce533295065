package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "room-mapper/core/errors"
	"room-mapper/core/events"
	"room-mapper/core/metrics"
	"room-mapper/core/reconcile"
	"room-mapper/feature/feed"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultConfidence is applied when MapRoom is called without WithConfidence.
const DefaultConfidence = 0.8

// ViewCache caches unified room views.
type ViewCache interface {
	Fetch(ctx context.Context, key string, dst any, load func(context.Context) (any, error)) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// Service reconciles per-source room observations into the canonical catalog.
type Service struct {
	store     Store
	tracker   *reconcile.Tracker
	bus       *events.Bus
	cache     ViewCache
	logger    *zap.Logger
	now       func() time.Time
	batchSize int
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithBus publishes conflict events on bus after each commit.
func WithBus(bus *events.Bus) ServiceOption {
	return func(s *Service) { s.bus = bus }
}

// WithCache serves unified views through c and invalidates them on writes.
func WithCache(c ViewCache) ServiceOption {
	return func(s *Service) { s.cache = c }
}

// WithClock sets the time source for sync, detection and enrichment stamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithBatchSize sets the scan batch size of BulkRecalculateQualityScores.
func WithBatchSize(n int) ServiceOption {
	return func(s *Service) { s.batchSize = n }
}

// NewService creates a new rooms service.
func NewService(store Store, logger *zap.Logger, opts ...ServiceOption) *Service {
	s := &Service{store: store, logger: logger, now: time.Now, batchSize: 500}
	for _, opt := range opts {
		opt(s)
	}
	s.tracker = reconcile.NewTracker(reconcile.WithTrackerClock(s.now))
	return s
}

type mapConfig struct {
	confidence  float64
	mappingType MappingType
	primary     bool
}

// MapOption adjusts how MapRoom records the mapping.
type MapOption func(*mapConfig)

// WithConfidence sets the mapping confidence in [0, 1].
func WithConfidence(c float64) MapOption {
	return func(m *mapConfig) { m.confidence = c }
}

// WithMappingType sets the mapping type.
func WithMappingType(t MappingType) MapOption {
	return func(m *mapConfig) { m.mappingType = t }
}

// AsPrimary marks the mapping as the room's primary source.
func AsPrimary() MapOption {
	return func(m *mapConfig) { m.primary = true }
}

// MapResult describes the outcome of MapRoom.
type MapResult struct {
	RoomID      string `json:"roomId,omitempty"`
	MappingID   string `json:"mappingId,omitempty"`
	Created     bool   `json:"created"`
	RoomCreated bool   `json:"roomCreated"`
	Skipped     bool   `json:"skipped"`
	// ConflictsOpened counts conflicts first detected by this call.
	ConflictsOpened int `json:"conflictsOpened"`
}

// MapRoom folds one source observation of a room into the catalog inside a
// single transaction. A room whose hotel has no mapping for source is
// skipped without error.
func (s *Service) MapRoom(ctx context.Context, hotelSourceID, roomSourceID, source string, room feed.NormalizedRoom, opts ...MapOption) (MapResult, error) {
	cfg := mapConfig{confidence: DefaultConfidence, mappingType: MappingAutomatic}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validateMapInput(source, roomSourceID, cfg); err != nil {
		return MapResult{}, err
	}

	start := time.Now()
	res, track, err := s.mapRoomOnce(ctx, hotelSourceID, roomSourceID, source, room, cfg)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// A concurrent call created the same room or mapping; the retry finds it.
		s.logger.Debug("retrying map room after duplicate key",
			zap.String("source", source), zap.String("room_source_id", roomSourceID))
		res, track, err = s.mapRoomOnce(ctx, hotelSourceID, roomSourceID, source, room, cfg)
	}

	outcome := "updated"
	switch {
	case err != nil:
		outcome = "failed"
	case res.Skipped:
		outcome = "skipped"
	case res.Created:
		outcome = "created"
	}
	metrics.ObserveMapRoom(source, outcome, time.Since(start))

	if err != nil {
		return MapResult{}, fmt.Errorf("map room %s/%s: %w", source, roomSourceID, err)
	}
	if res.Skipped {
		return res, nil
	}

	s.invalidate(ctx, res.RoomID)
	for _, c := range track.Opened {
		metrics.ObserveConflict(c.FieldName, "opened")
		s.publish(events.TopicConflictDetected, c)
	}
	for _, c := range track.Updated {
		metrics.ObserveConflict(c.FieldName, "merged")
	}
	res.ConflictsOpened = len(track.Opened)
	return res, nil
}

func validateMapInput(source, roomSourceID string, cfg mapConfig) error {
	if strings.TrimSpace(source) == "" {
		return apperrors.NewValidationError("source", source, "must not be empty")
	}
	if strings.TrimSpace(roomSourceID) == "" {
		return apperrors.NewValidationError("roomSourceId", roomSourceID, "must not be empty")
	}
	if cfg.confidence < 0 || cfg.confidence > 1 {
		return apperrors.NewValidationError("confidence", cfg.confidence, "must be between 0 and 1")
	}
	if !cfg.mappingType.Valid() {
		return apperrors.NewValidationError("mappingType", cfg.mappingType, "must be automatic, manual or verified")
	}
	return nil
}

func (s *Service) mapRoomOnce(ctx context.Context, hotelSourceID, roomSourceID, source string, room feed.NormalizedRoom, cfg mapConfig) (MapResult, reconcile.TrackResult, error) {
	var (
		res   MapResult
		track reconcile.TrackResult
	)

	err := s.store.Transaction(ctx, func(repo Repository) error {
		hotel, err := repo.FindHotelMapping(ctx, source, hotelSourceID)
		if err != nil {
			return fmt.Errorf("find hotel mapping: %w", err)
		}
		if hotel == nil {
			s.logger.Warn("no hotel mapping for room, skipping",
				zap.String("source", source),
				zap.String("hotel_source_id", hotelSourceID),
				zap.String("room_source_id", roomSourceID))
			res = MapResult{Skipped: true}
			return nil
		}

		now := s.now().UTC()
		snapshot := datatypes.NewJSONType(NewRoomSnapshot(room))
		score := feed.Score(room)

		existing, err := repo.FindRoomMapping(ctx, source, roomSourceID, hotel.ID)
		if err != nil {
			return fmt.Errorf("find room mapping: %w", err)
		}

		var canonical *Room
		if existing != nil {
			fields := map[string]any{
				"source_data":    snapshot,
				"last_synced_at": now,
				"quality_score":  score,
			}
			if existing.MappingType != MappingVerified {
				fields["confidence"] = cfg.confidence
				fields["mapping_type"] = cfg.mappingType
			}
			if cfg.primary {
				fields["is_primary"] = true
			}
			if err := repo.UpdateRoomMapping(ctx, existing.ID, fields); err != nil {
				return err
			}

			canonical, err = repo.GetRoom(ctx, existing.RoomID)
			if err != nil {
				return fmt.Errorf("load room %s: %w", existing.RoomID, err)
			}
			if canonical == nil {
				return fmt.Errorf("mapping %s references missing room %s", existing.ID, existing.RoomID)
			}
			res = MapResult{RoomID: canonical.ID, MappingID: existing.ID}
		} else {
			canonical, err = repo.FindRoomByName(ctx, hotel.HotelID, room.Name)
			if err != nil {
				return fmt.Errorf("find room by name: %w", err)
			}
			roomCreated := false
			if canonical == nil {
				canonical = newCanonicalRoom(hotel.HotelID, room)
				if err := repo.CreateRoom(ctx, canonical); err != nil {
					return fmt.Errorf("create room: %w", err)
				}
				roomCreated = true
			}

			mapping := &RoomMapping{
				RoomID:         canonical.ID,
				HotelMappingID: hotel.ID,
				Source:         source,
				SourceID:       roomSourceID,
				SourceData:     snapshot,
				Confidence:     cfg.confidence,
				MappingType:    cfg.mappingType,
				IsPrimary:      cfg.primary,
				LastSyncedAt:   now,
				QualityScore:   score,
			}
			if err := repo.CreateRoomMapping(ctx, mapping); err != nil {
				return fmt.Errorf("create room mapping: %w", err)
			}
			res = MapResult{RoomID: canonical.ID, MappingID: mapping.ID, Created: true, RoomCreated: roomCreated}
		}

		track, err = s.tracker.Track(ctx, repo, EntityRoom, canonical.ID, source, observeRoom(canonical, room)...)
		if err != nil {
			return err
		}

		if len(room.Photos) > 0 {
			if err := s.upsertEnrichment(ctx, repo, canonical.ID, source, FieldImages, room.Photos, QualityPending, false); err != nil {
				return err
			}
		}
		if len(room.Amenities) > 0 {
			if err := s.upsertEnrichment(ctx, repo, canonical.ID, source, FieldAmenities, room.Amenities, QualityPending, false); err != nil {
				return err
			}
		}
		return nil
	})
	return res, track, err
}

func newCanonicalRoom(hotelID string, room feed.NormalizedRoom) *Room {
	var parts []string
	for _, key := range []string{feed.AttrClass, feed.AttrView} {
		if v := room.Attributes[key]; v != "" {
			parts = append(parts, v)
		}
	}
	occupancy := DefaultMaxOccupancy
	if room.MaxOccupancy != nil {
		occupancy = *room.MaxOccupancy
	}
	return &Room{
		HotelID:      hotelID,
		Name:         room.Name,
		Description:  strings.Join(parts, ", "),
		MaxOccupancy: occupancy,
	}
}

// upsertEnrichment writes content for (roomID, source, field). Quality is set
// on create, and on update only when setQuality is true.
func (s *Service) upsertEnrichment(ctx context.Context, repo Repository, roomID, source, field string, content any, quality Quality, setQuality bool) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return apperrors.NewValidationError("content", field, "not JSON encodable: "+err.Error())
	}
	now := s.now().UTC()

	existing, err := repo.FindEnrichment(ctx, roomID, source, field)
	if err != nil {
		return fmt.Errorf("find enrichment %s: %w", field, err)
	}
	if existing == nil {
		err = repo.CreateEnrichment(ctx, &RoomContentEnrichment{
			RoomID:     roomID,
			Source:     source,
			FieldName:  field,
			Content:    datatypes.JSON(raw),
			Quality:    quality,
			EnrichedAt: now,
		})
		if err != nil {
			return fmt.Errorf("create enrichment %s: %w", field, err)
		}
		return nil
	}

	fields := map[string]any{"content": datatypes.JSON(raw), "enriched_at": now}
	if setQuality {
		fields["quality"] = quality
	}
	return repo.UpdateEnrichment(ctx, existing.ID, fields)
}

// EnrichmentItem is caller-supplied content for one field of a room.
type EnrichmentItem struct {
	FieldName string  `json:"fieldName"`
	Content   any     `json:"content"`
	Source    string  `json:"source"`
	Quality   Quality `json:"quality"`
}

// EnrichRoomContent upserts the items for roomID in one transaction. An empty
// quality defaults to pending.
func (s *Service) EnrichRoomContent(ctx context.Context, roomID string, items []EnrichmentItem) error {
	if len(items) == 0 {
		return apperrors.NewValidationError("items", nil, "at least one enrichment is required")
	}
	for i := range items {
		if items[i].Quality == "" {
			items[i].Quality = QualityPending
		}
		switch {
		case strings.TrimSpace(items[i].FieldName) == "":
			return apperrors.NewValidationError("fieldName", items[i].FieldName, "must not be empty")
		case strings.TrimSpace(items[i].Source) == "":
			return apperrors.NewValidationError("source", items[i].Source, "must not be empty")
		case !items[i].Quality.Valid():
			return apperrors.NewValidationError("quality", items[i].Quality, "must be pending or approved")
		}
	}

	err := s.store.Transaction(ctx, func(repo Repository) error {
		room, err := repo.GetRoom(ctx, roomID)
		if err != nil {
			return fmt.Errorf("load room %s: %w", roomID, err)
		}
		if room == nil {
			return apperrors.NewNotFoundError("room", roomID)
		}
		for _, item := range items {
			if err := s.upsertEnrichment(ctx, repo, roomID, item.Source, item.FieldName, item.Content, item.Quality, true); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, roomID)
	return nil
}

// UnifiedRoom is the merged read view of a canonical room.
type UnifiedRoom struct {
	Room
	// Images is the approved images enrichment when one exists, otherwise the
	// photos of the canonical snapshot.
	Images []feed.Photo `json:"images"`
	// ImagesSource names where Images came from: "canonical" or "enrichment:<source>".
	ImagesSource string                  `json:"imagesSource"`
	Mappings     []RoomMapping           `json:"mappings"`
	Enrichments  []RoomContentEnrichment `json:"enrichments"`
}

// GetUnifiedRoomData returns the merged view of roomID, or nil if the room does not exist.
func (s *Service) GetUnifiedRoomData(ctx context.Context, roomID string) (*UnifiedRoom, error) {
	if s.cache == nil {
		return s.loadUnifiedRoom(ctx, roomID)
	}

	var view UnifiedRoom
	found, err := s.cache.Fetch(ctx, roomCacheKey(roomID), &view, func(ctx context.Context) (any, error) {
		v, err := s.loadUnifiedRoom(ctx, roomID)
		if err != nil || v == nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &view, nil
}

func (s *Service) loadUnifiedRoom(ctx context.Context, roomID string) (*UnifiedRoom, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", roomID, err)
	}
	if room == nil {
		return nil, nil
	}
	mappings, err := s.store.ListRoomMappings(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list mappings of %s: %w", roomID, err)
	}
	enrichments, err := s.store.ListEnrichments(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list enrichments of %s: %w", roomID, err)
	}

	view := &UnifiedRoom{
		Room:         *room,
		Images:       []feed.Photo{},
		ImagesSource: "canonical",
		Mappings:     mappings,
		Enrichments:  enrichments,
	}

	// Mappings are ordered primary first, then most recently synced.
	if len(mappings) > 0 {
		if photos := mappings[0].SourceData.Data().Room.Photos; photos != nil {
			view.Images = photos
		}
	}

	// Enrichments are ordered newest first within a field.
	for _, e := range enrichments {
		if e.FieldName != FieldImages || e.Quality != QualityApproved {
			continue
		}
		var photos []feed.Photo
		if err := json.Unmarshal(e.Content, &photos); err != nil {
			s.logger.Warn("approved images enrichment is not a photo list",
				zap.String("room_id", roomID), zap.String("enrichment_id", e.ID), zap.Error(err))
			continue
		}
		view.Images = photos
		view.ImagesSource = "enrichment:" + e.Source
		break
	}
	return view, nil
}

// GetConflicts lists conflicts with status, most recently detected first.
// An empty status lists every conflict.
func (s *Service) GetConflicts(ctx context.Context, status reconcile.Status) ([]reconcile.Conflict, error) {
	if status != "" && status != reconcile.StatusOpen && status != reconcile.StatusResolved {
		return nil, apperrors.NewValidationError("status", status, "must be open or resolved")
	}
	conflicts, err := s.store.ListConflicts(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	return conflicts, nil
}

// ResolveConflict closes conflict id with strategy. For apply_source the value
// recorded for sourceToApply is written into the canonical room. A
// conflict:resolved event carrying the updated conflict follows the commit.
func (s *Service) ResolveConflict(ctx context.Context, id string, strategy reconcile.Strategy, sourceToApply string) (*reconcile.Conflict, error) {
	var resolved *reconcile.Conflict
	err := s.store.Transaction(ctx, func(repo Repository) error {
		c, err := s.tracker.Resolve(ctx, repo, id, strategy, sourceToApply, func(ctx context.Context, c *reconcile.Conflict, value any) error {
			return applyConflictValue(ctx, repo, c, value)
		})
		resolved = c
		return err
	})
	if err != nil {
		return nil, err
	}

	if resolved.EntityType == EntityRoom {
		s.invalidate(ctx, resolved.EntityID)
	}
	metrics.ObserveConflict(resolved.FieldName, "resolved")
	s.publish(events.TopicConflictResolved, *resolved)
	return resolved, nil
}

func applyConflictValue(ctx context.Context, repo Repository, c *reconcile.Conflict, value any) error {
	if c.EntityType != EntityRoom {
		return apperrors.NewValidationError("entityType", c.EntityType, "no writer for entity type")
	}
	field, ok := lookupTrackedField(c.FieldName)
	if !ok {
		return apperrors.NewValidationError("fieldName", c.FieldName, "field is not tracked")
	}
	room, err := repo.GetRoom(ctx, c.EntityID)
	if err != nil {
		return fmt.Errorf("load room %s: %w", c.EntityID, err)
	}
	if room == nil {
		return apperrors.NewNotFoundError("room", c.EntityID)
	}
	converted, err := field.convert(value)
	if err != nil {
		return apperrors.NewValidationError(c.FieldName, value, err.Error())
	}
	return repo.UpdateRoom(ctx, room.ID, map[string]any{field.column: converted})
}

// BulkRecalculateQualityScores rescores every mapping from its stored snapshot
// and rewrites only the scores that changed. It returns the number rewritten.
func (s *Service) BulkRecalculateQualityScores(ctx context.Context) (int, error) {
	updated := 0
	touched := map[string]struct{}{}

	err := s.store.ScanRoomMappings(ctx, s.batchSize, func(batch []RoomMapping) error {
		for _, m := range batch {
			score := feed.Score(m.SourceData.Data().Room)
			if score == m.QualityScore {
				continue
			}
			if err := s.store.UpdateRoomMapping(ctx, m.ID, map[string]any{"quality_score": score}); err != nil {
				return err
			}
			touched[m.RoomID] = struct{}{}
			updated++
		}
		return nil
	})
	if err != nil {
		return updated, fmt.Errorf("recalculate quality scores: %w", err)
	}

	for roomID := range touched {
		s.invalidate(ctx, roomID)
	}
	metrics.ObserveQualityRewrites(updated)
	s.logger.Info("quality scores recalculated", zap.Int("updated", updated))
	return updated, nil
}

// MapHotel binds (source, sourceID) to hotelID, rebinding an existing mapping.
func (s *Service) MapHotel(ctx context.Context, source, sourceID, hotelID string) (*HotelMapping, error) {
	for field, v := range map[string]string{"source": source, "sourceId": sourceID, "hotelId": hotelID} {
		if strings.TrimSpace(v) == "" {
			return nil, apperrors.NewValidationError(field, v, "must not be empty")
		}
	}

	var out *HotelMapping
	err := s.store.Transaction(ctx, func(repo Repository) error {
		existing, err := repo.FindHotelMapping(ctx, source, sourceID)
		if err != nil {
			return err
		}
		if existing == nil {
			out = &HotelMapping{Source: source, SourceID: sourceID, HotelID: hotelID}
			return repo.CreateHotelMapping(ctx, out)
		}
		out = existing
		if existing.HotelID == hotelID {
			return nil
		}
		// Rebinding moves the hotel; the unique index still holds (source, source_id).
		out.HotelID = hotelID
		return repo.UpdateHotelMapping(ctx, existing.ID, hotelID)
	})
	if err != nil {
		return nil, fmt.Errorf("map hotel %s/%s: %w", source, sourceID, err)
	}
	return out, nil
}

// MappingCuration is a manual edit of a room mapping.
type MappingCuration struct {
	MappingType *MappingType `json:"mappingType"`
	Confidence  *float64     `json:"confidence"`
	IsPrimary   *bool        `json:"isPrimary"`
}

// CurateMapping applies a manual edit to mapping id. Setting the type to
// verified protects confidence and type from later automatic ingestion.
func (s *Service) CurateMapping(ctx context.Context, id string, in MappingCuration) (*RoomMapping, error) {
	fields := map[string]any{}
	if in.MappingType != nil {
		if !in.MappingType.Valid() {
			return nil, apperrors.NewValidationError("mappingType", *in.MappingType, "must be automatic, manual or verified")
		}
		fields["mapping_type"] = *in.MappingType
	}
	if in.Confidence != nil {
		if *in.Confidence < 0 || *in.Confidence > 1 {
			return nil, apperrors.NewValidationError("confidence", *in.Confidence, "must be between 0 and 1")
		}
		fields["confidence"] = *in.Confidence
	}
	if in.IsPrimary != nil {
		fields["is_primary"] = *in.IsPrimary
	}
	if len(fields) == 0 {
		return nil, apperrors.NewValidationError("", nil, "nothing to update")
	}

	var out *RoomMapping
	err := s.store.Transaction(ctx, func(repo Repository) error {
		m, err := repo.GetRoomMapping(ctx, id)
		if err != nil {
			return err
		}
		if m == nil {
			return apperrors.NewNotFoundError("room mapping", id)
		}
		if err := repo.UpdateRoomMapping(ctx, id, fields); err != nil {
			return err
		}
		out, err = repo.GetRoomMapping(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, out.RoomID)
	return out, nil
}

func roomCacheKey(roomID string) string {
	return "room:" + roomID
}

func (s *Service) invalidate(ctx context.Context, roomID string) {
	if s.cache == nil || roomID == "" {
		return
	}
	if err := s.cache.Del(ctx, roomCacheKey(roomID)); err != nil {
		s.logger.Warn("room view invalidation failed", zap.String("room_id", roomID), zap.Error(err))
	}
}

func (s *Service) publish(topic string, payload reconcile.Conflict) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(topic, payload)
}
