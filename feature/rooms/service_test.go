package rooms_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"room-mapper/core/cache"
	"room-mapper/core/database"
	"room-mapper/core/errors"
	"room-mapper/core/events"
	"room-mapper/core/reconcile"
	"room-mapper/feature/feed"
	"room-mapper/feature/rooms"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// stepClock advances one second per reading so stamps are strictly ordered.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, rooms.Migrate(db))
	return db
}

func newTestService(t *testing.T, opts ...rooms.ServiceOption) (*rooms.Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	clock := &stepClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]rooms.ServiceOption{rooms.WithClock(clock.Now)}, opts...)
	return rooms.NewService(rooms.NewStore(db), zap.NewNop(), opts...), db
}

func deluxe(occupancy int) feed.NormalizedRoom {
	r := feed.NewNormalizedRoom("Deluxe King")
	r.MaxOccupancy = &occupancy
	r.Beds = []feed.Bed{{Type: feed.BedKing, Count: 1}}
	r.Photos = []feed.Photo{{URL: "https://img.example/deluxe-1.jpg"}}
	r.Amenities = []feed.Amenity{{Type: feed.AmenityWifi, Description: "Free WiFi"}}
	return r
}

func mapHotels(t *testing.T, svc *rooms.Service) {
	t.Helper()
	ctx := context.Background()
	_, err := svc.MapHotel(ctx, "provider_a", "A-H1", "hotel-1")
	require.NoError(t, err)
	_, err = svc.MapHotel(ctx, "provider_b", "B-H1", "hotel-1")
	require.NoError(t, err)
	_, err = svc.MapHotel(ctx, "provider_c", "C-H1", "hotel-1")
	require.NoError(t, err)
}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestMapRoom_CreatesCatalogEntries(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)
	mapHotels(t, svc)

	room := deluxe(2)
	room.Attributes[feed.AttrClass] = "Deluxe"
	room.Attributes[feed.AttrView] = "Sea"

	res, err := svc.MapRoom(ctx, "A-H1", "A-R1", "provider_a", room, rooms.AsPrimary())
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.True(t, res.RoomCreated)
	assert.False(t, res.Skipped)
	assert.Zero(t, res.ConflictsOpened)

	var canonical rooms.Room
	require.NoError(t, db.First(&canonical, "id = ?", res.RoomID).Error)
	assert.Equal(t, "hotel-1", canonical.HotelID)
	assert.Equal(t, "Deluxe King", canonical.Name)
	assert.Equal(t, "Deluxe, Sea", canonical.Description)
	assert.Equal(t, 2, canonical.MaxOccupancy)

	var mapping rooms.RoomMapping
	require.NoError(t, db.First(&mapping, "id = ?", res.MappingID).Error)
	assert.Equal(t, rooms.MappingAutomatic, mapping.MappingType)
	assert.InDelta(t, rooms.DefaultConfidence, mapping.Confidence, 1e-9)
	assert.True(t, mapping.IsPrimary)
	assert.Equal(t, feed.Score(room), mapping.QualityScore)
	assert.Equal(t, rooms.SnapshotVersion, mapping.SourceData.Data().Version)
	assert.Equal(t, "Deluxe King", mapping.SourceData.Data().Room.Name)

	var enrichments []rooms.RoomContentEnrichment
	require.NoError(t, db.Order("field_name").Find(&enrichments, "room_id = ?", res.RoomID).Error)
	require.Len(t, enrichments, 2)
	assert.Equal(t, rooms.FieldAmenities, enrichments[0].FieldName)
	assert.Equal(t, rooms.FieldImages, enrichments[1].FieldName)
	for _, e := range enrichments {
		assert.Equal(t, rooms.QualityPending, e.Quality)
		assert.Equal(t, "provider_a", e.Source)
	}
	assert.JSONEq(t, `[{"url":"https://img.example/deluxe-1.jpg"}]`, string(enrichments[1].Content))
}

func TestMapRoom_DefaultsOccupancyWhenFeedOmitsIt(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)
	mapHotels(t, svc)

	room := feed.NewNormalizedRoom("Standard Twin")
	res, err := svc.MapRoom(ctx, "A-H1", "A-R2", "provider_a", room)
	require.NoError(t, err)

	var canonical rooms.Room
	require.NoError(t, db.First(&canonical, "id = ?", res.RoomID).Error)
	assert.Equal(t, rooms.DefaultMaxOccupancy, canonical.MaxOccupancy)
	assert.Zero(t, count(t, db, &rooms.RoomContentEnrichment{}))
}

func TestMapRoom_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)
	mapHotels(t, svc)

	first, err := svc.MapRoom(ctx, "A-H1", "A-R1", "provider_a", deluxe(2))
	require.NoError(t, err)

	var before rooms.RoomMapping
	require.NoError(t, db.First(&before, "id = ?", first.MappingID).Error)

	second, err := svc.MapRoom(ctx, "A-H1", "A-R1", "provider_a", deluxe(2))
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.False(t, second.RoomCreated)
	assert.Equal(t, first.RoomID, second.RoomID)
	assert.Equal(t, first.MappingID, second.MappingID)

	assert.EqualValues(t, 1, count(t, db, &rooms.Room{}))
	assert.EqualValues(t, 1, count(t, db, &rooms.RoomMapping{}))
	assert.EqualValues(t, 2, count(t, db, &rooms.RoomContentEnrichment{}))
	assert.Zero(t, count(t, db, &reconcile.Conflict{}))

	var after rooms.RoomMapping
	require.NoError(t, db.First(&after, "id = ?", first.MappingID).Error)
	assert.True(t, after.LastSyncedAt.After(before.LastSyncedAt))
}

func TestMapRoom_SkipsUnmappedHotel(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)

	res, err := svc.MapRoom(ctx, "UNKNOWN", "R1", "provider_a", deluxe(2))
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Empty(t, res.RoomID)
	assert.Zero(t, count(t, db, &rooms.Room{}))
	assert.Zero(t, count(t, db, &rooms.RoomMapping{}))
}

func TestMapRoom_RejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	tests := []struct {
		name   string
		source string
		roomID string
		opts   []rooms.MapOption
	}{
		{name: "empty source", source: "", roomID: "R1"},
		{name: "empty room id", source: "provider_a", roomID: " "},
		{name: "confidence above one", source: "provider_a", roomID: "R1", opts: []rooms.MapOption{rooms.WithConfidence(1.5)}},
		{name: "negative confidence", source: "provider_a", roomID: "R1", opts: []rooms.MapOption{rooms.WithConfidence(-0.1)}},
		{name: "unknown mapping type", source: "provider_a", roomID: "R1", opts: []rooms.MapOption{rooms.WithMappingType("guessed")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.MapRoom(ctx, "A-H1", tt.roomID, tt.source, deluxe(2), tt.opts...)
			assert.ErrorIs(t, err, errors.ErrInvalidInput)
		})
	}
}

func TestMapRoom_VerifiedMappingKeepsCuration(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)
	mapHotels(t, svc)

	res, err := svc.MapRoom(ctx, "A-H1", "A-R1", "provider_a", deluxe(2))
	require.NoError(t, err)

	verified := rooms.MappingVerified
	confidence := 1.0
	_, err = svc.CurateMapping(ctx, res.MappingID, rooms.MappingCuration{MappingType: &verified, Confidence: &confidence})
	require.NoError(t, err)

	_, err = svc.MapRoom(ctx, "A-H1", "A-R1", "provider_a", deluxe(2),
		rooms.WithConfidence(0.3), rooms.WithMappingType(rooms.MappingAutomatic))
	require.NoError(t, err)

	var mapping rooms.RoomMapping
	require.NoError(t, db.First(&mapping, "id = ?", res.MappingID).Error)
	assert.Equal(t, rooms.MappingVerified, mapping.MappingType)
	assert.InDelta(t, 1.0, mapping.Confidence, 1e-9)
}

func TestMapRoom_ConflictLifecycle(t *testing.T) {
	ctx := context.Background()
	bus := events.NewBus(zap.NewNop(), 8)
	detected, cancelDetected := bus.Subscribe(events.TopicConflictDetected)
	defer cancelDetected()
	resolved, cancelResolved := bus.Subscribe(events.TopicConflictResolved)
	defer cancelResolved()

	svc, db := newTestService(t, rooms.WithBus(bus))
	mapHotels(t, svc)

	a, err := svc.MapRoom(ctx, "A-H1", "A-R1", "provider_a", deluxe(2))
	require.NoError(t, err)

	b, err := svc.MapRoom(ctx, "B-H1", "B-77", "provider_b", deluxe(4))
	require.NoError(t, err)
	assert.True(t, b.Created)
	assert.False(t, b.RoomCreated)
	assert.Equal(t, a.RoomID, b.RoomID)
	assert.Equal(t, 1, b.ConflictsOpened)

	select {
	case ev := <-detected:
		c, ok := ev.Payload.(reconcile.Conflict)
		require.True(t, ok)
		assert.Equal(t, "maxOccupancy", c.FieldName)
		assert.Equal(t, a.RoomID, c.EntityID)
	case <-time.After(time.Second):
		t.Fatal("no conflict:detected event")
	}

	_, err = svc.MapRoom(ctx, "C-H1", "C-9", "provider_c", deluxe(3))
	require.NoError(t, err)
	_, err = svc.MapRoom(ctx, "B-H1", "B-77", "provider_b", deluxe(4))
	require.NoError(t, err)

	open, err := svc.GetConflicts(ctx, reconcile.StatusOpen)
	require.NoError(t, err)
	require.Len(t, open, 1)
	conflict := open[0]
	assert.Equal(t, rooms.EntityRoom, conflict.EntityType)

	sources := map[string]any{}
	for _, s := range conflict.ConflictingSources {
		sources[s.Source] = s.Value
	}
	assert.Equal(t, map[string]any{
		reconcile.InternalSource: float64(2),
		"provider_b":             float64(4),
		"provider_c":             float64(3),
	}, sources)
	assert.Equal(t, reconcile.InternalSource, conflict.ConflictingSources[0].Source)

	out, err := svc.ResolveConflict(ctx, conflict.ID, reconcile.ApplySource, "provider_b")
	require.NoError(t, err)
	assert.Equal(t, reconcile.StatusResolved, out.Status)
	require.NotNil(t, out.Resolution)
	assert.Equal(t, reconcile.ApplySource, *out.Resolution)
	assert.NotNil(t, out.ResolvedAt)

	var canonical rooms.Room
	require.NoError(t, db.First(&canonical, "id = ?", a.RoomID).Error)
	assert.Equal(t, 4, canonical.MaxOccupancy)

	select {
	case ev := <-resolved:
		c := ev.Payload.(reconcile.Conflict)
		assert.Equal(t, conflict.ID, c.ID)
	case <-time.After(time.Second):
		t.Fatal("no conflict:resolved event")
	}

	open, err = svc.GetConflicts(ctx, reconcile.StatusOpen)
	require.NoError(t, err)
	assert.Empty(t, open)
	all, err := svc.GetConflicts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestResolveConflict_KeepInternal(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)
	mapHotels(t, svc)

	a, err := svc.MapRoom(ctx, "A-H1", "A-R1", "provider_a", deluxe(2))
	require.NoError(t, err)
	_, err = svc.MapRoom(ctx, "B-H1", "B-77", "provider_b", deluxe(4))
	require.NoError(t, err)

	open, err := svc.GetConflicts(ctx, reconcile.StatusOpen)
	require.NoError(t, err)
	require.Len(t, open, 1)

	_, err = svc.ResolveConflict(ctx, open[0].ID, reconcile.KeepInternal, "")
	require.NoError(t, err)

	var canonical rooms.Room
	require.NoError(t, db.First(&canonical, "id = ?", a.RoomID).Error)
	assert.Equal(t, 2, canonical.MaxOccupancy)

	// A later disagreement opens a fresh conflict.
	_, err = svc.MapRoom(ctx, "B-H1", "B-77", "provider_b", deluxe(4))
	require.NoError(t, err)
	open, err = svc.GetConflicts(ctx, reconcile.StatusOpen)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestResolveConflict_Errors(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	mapHotels(t, svc)

	_, err := svc.MapRoom(ctx, "A-H1", "A-R1", "provider_a", deluxe(2))
	require.NoError(t, err)
	_, err = svc.MapRoom(ctx, "B-H1", "B-77", "provider_b", deluxe(4))
	require.NoError(t, err)
	open, err := svc.GetConflicts(ctx, reconcile.StatusOpen)
	require.NoError(t, err)
	require.Len(t, open, 1)
	id := open[0].ID

	_, err = svc.ResolveConflict(ctx, "missing", reconcile.KeepInternal, "")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	_, err = svc.ResolveConflict(ctx, id, "merge", "")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = svc.ResolveConflict(ctx, id, reconcile.ApplySource, "provider_z")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = svc.ResolveConflict(ctx, id, reconcile.KeepInternal, "")
	require.NoError(t, err)

	_, err = svc.ResolveConflict(ctx, id, reconcile.KeepInternal, "")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestResolveConflict_RejectsUnusableValue(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)
	mapHotels(t, svc)

	a, err := svc.MapRoom(ctx, "A-H1", "A-R1", "provider_a", deluxe(2))
	require.NoError(t, err)
	_, err = svc.MapRoom(ctx, "B-H1", "B-77", "provider_b", deluxe(4))
	require.NoError(t, err)
	open, err := svc.GetConflicts(ctx, reconcile.StatusOpen)
	require.NoError(t, err)
	require.Len(t, open, 1)

	c := open[0]
	c.ConflictingSources = append(c.ConflictingSources,
		reconcile.ConflictSource{Source: "provider_x", Value: "four"},
		reconcile.ConflictSource{Source: "provider_y", Value: 2.5},
		reconcile.ConflictSource{Source: "provider_z", Value: 0},
	)
	require.NoError(t, db.Save(&c).Error)

	for _, src := range []string{"provider_x", "provider_y", "provider_z"} {
		_, err = svc.ResolveConflict(ctx, c.ID, reconcile.ApplySource, src)
		assert.ErrorIs(t, err, errors.ErrInvalidInput, src)
	}

	var stored reconcile.Conflict
	require.NoError(t, db.First(&stored, "id = ?", c.ID).Error)
	assert.Equal(t, reconcile.StatusOpen, stored.Status)
	assert.Nil(t, stored.ResolvedAt)

	var room rooms.Room
	require.NoError(t, db.First(&room, "id = ?", a.RoomID).Error)
	assert.Equal(t, 2, room.MaxOccupancy)

	resolved, err := svc.ResolveConflict(ctx, c.ID, reconcile.ApplySource, "provider_b")
	require.NoError(t, err)
	assert.Equal(t, reconcile.StatusResolved, resolved.Status)
}

func TestGetConflicts_RejectsUnknownStatus(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GetConflicts(context.Background(), "pending")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestGetUnifiedRoomData(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	mapHotels(t, svc)

	view, err := svc.GetUnifiedRoomData(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, view)

	a, err := svc.MapRoom(ctx, "A-H1", "A-R1", "provider_a", deluxe(2))
	require.NoError(t, err)
	other := deluxe(2)
	other.Photos = []feed.Photo{{URL: "https://img.example/b.jpg"}}
	_, err = svc.MapRoom(ctx, "B-H1", "B-77", "provider_b", other, rooms.AsPrimary())
	require.NoError(t, err)

	view, err = svc.GetUnifiedRoomData(ctx, a.RoomID)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, "Deluxe King", view.Name)
	require.Len(t, view.Mappings, 2)
	assert.Equal(t, "provider_b", view.Mappings[0].Source)
	assert.Equal(t, "canonical", view.ImagesSource)
	assert.Equal(t, []feed.Photo{{URL: "https://img.example/b.jpg"}}, view.Images)
	assert.Len(t, view.Enrichments, 4)

	err = svc.EnrichRoomContent(ctx, a.RoomID, []rooms.EnrichmentItem{
		{FieldName: rooms.FieldImages, Source: "curator", Quality: rooms.QualityApproved,
			Content: []feed.Photo{{URL: "https://cdn.example/hero.jpg"}}},
		{FieldName: rooms.FieldImages, Source: "scraper",
			Content: []feed.Photo{{URL: "https://cdn.example/unreviewed.jpg"}}},
	})
	require.NoError(t, err)

	view, err = svc.GetUnifiedRoomData(ctx, a.RoomID)
	require.NoError(t, err)
	assert.Equal(t, "enrichment:curator", view.ImagesSource)
	assert.Equal(t, []feed.Photo{{URL: "https://cdn.example/hero.jpg"}}, view.Images)
}

func TestGetUnifiedRoomData_IgnoresMalformedApprovedImages(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	mapHotels(t, svc)

	a, err := svc.MapRoom(ctx, "A-H1", "A-R1", "provider_a", deluxe(2))
	require.NoError(t, err)

	err = svc.EnrichRoomContent(ctx, a.RoomID, []rooms.EnrichmentItem{
		{FieldName: rooms.FieldImages, Source: "curator", Quality: rooms.QualityApproved, Content: "not a list"},
	})
	require.NoError(t, err)

	view, err := svc.GetUnifiedRoomData(ctx, a.RoomID)
	require.NoError(t, err)
	assert.Equal(t, "canonical", view.ImagesSource)
	assert.Equal(t, []feed.Photo{{URL: "https://img.example/deluxe-1.jpg"}}, view.Images)
}

func TestEnrichRoomContent(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)
	mapHotels(t, svc)

	a, err := svc.MapRoom(ctx, "A-H1", "A-R1", "provider_a", deluxe(2))
	require.NoError(t, err)

	t.Run("missing room", func(t *testing.T) {
		err := svc.EnrichRoomContent(ctx, "missing", []rooms.EnrichmentItem{
			{FieldName: "description", Source: "curator", Content: "Ocean view"},
		})
		assert.ErrorIs(t, err, errors.ErrNotFound)
	})

	t.Run("invalid quality", func(t *testing.T) {
		err := svc.EnrichRoomContent(ctx, a.RoomID, []rooms.EnrichmentItem{
			{FieldName: "description", Source: "curator", Content: "x", Quality: "gold"},
		})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("empty items", func(t *testing.T) {
		assert.ErrorIs(t, svc.EnrichRoomContent(ctx, a.RoomID, nil), errors.ErrInvalidInput)
	})

	t.Run("upsert replaces content and quality", func(t *testing.T) {
		require.NoError(t, svc.EnrichRoomContent(ctx, a.RoomID, []rooms.EnrichmentItem{
			{FieldName: "description", Source: "curator", Content: "Ocean view"},
		}))
		require.NoError(t, svc.EnrichRoomContent(ctx, a.RoomID, []rooms.EnrichmentItem{
			{FieldName: "description", Source: "curator", Content: "Ocean view, refurbished", Quality: rooms.QualityApproved},
		}))

		var rows []rooms.RoomContentEnrichment
		require.NoError(t, db.Find(&rows, "room_id = ? AND field_name = ?", a.RoomID, "description").Error)
		require.Len(t, rows, 1)
		assert.Equal(t, rooms.QualityApproved, rows[0].Quality)
		assert.JSONEq(t, `"Ocean view, refurbished"`, string(rows[0].Content))
	})

	t.Run("mapping refresh keeps reviewed quality", func(t *testing.T) {
		require.NoError(t, svc.EnrichRoomContent(ctx, a.RoomID, []rooms.EnrichmentItem{
			{FieldName: rooms.FieldImages, Source: "provider_a", Quality: rooms.QualityApproved,
				Content: []feed.Photo{{URL: "https://img.example/deluxe-1.jpg"}}},
		}))
		_, err := svc.MapRoom(ctx, "A-H1", "A-R1", "provider_a", deluxe(2))
		require.NoError(t, err)

		var row rooms.RoomContentEnrichment
		require.NoError(t, db.First(&row, "room_id = ? AND source = ? AND field_name = ?",
			a.RoomID, "provider_a", rooms.FieldImages).Error)
		assert.Equal(t, rooms.QualityApproved, row.Quality)
	})
}

func TestBulkRecalculateQualityScores(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t, rooms.WithBatchSize(1))
	mapHotels(t, svc)

	a, err := svc.MapRoom(ctx, "A-H1", "A-R1", "provider_a", deluxe(2))
	require.NoError(t, err)
	_, err = svc.MapRoom(ctx, "B-H1", "B-77", "provider_b", deluxe(2))
	require.NoError(t, err)

	n, err := svc.BulkRecalculateQualityScores(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, db.Model(&rooms.RoomMapping{}).Where("id = ?", a.MappingID).
		Update("quality_score", 0).Error)

	n, err = svc.BulkRecalculateQualityScores(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var m rooms.RoomMapping
	require.NoError(t, db.First(&m, "id = ?", a.MappingID).Error)
	assert.Equal(t, feed.Score(deluxe(2)), m.QualityScore)
}

func TestMapHotel(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)

	m, err := svc.MapHotel(ctx, "provider_a", "A-H1", "hotel-1")
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)

	again, err := svc.MapHotel(ctx, "provider_a", "A-H1", "hotel-2")
	require.NoError(t, err)
	assert.Equal(t, m.ID, again.ID)
	assert.Equal(t, "hotel-2", again.HotelID)
	assert.EqualValues(t, 1, count(t, db, &rooms.HotelMapping{}))

	_, err = svc.MapHotel(ctx, "provider_a", "", "hotel-1")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestCurateMapping(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	mapHotels(t, svc)

	_, err := svc.CurateMapping(ctx, "missing", rooms.MappingCuration{IsPrimary: new(bool)})
	assert.ErrorIs(t, err, errors.ErrNotFound)

	_, err = svc.CurateMapping(ctx, "missing", rooms.MappingCuration{})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	a, err := svc.MapRoom(ctx, "A-H1", "A-R1", "provider_a", deluxe(2))
	require.NoError(t, err)

	primary := true
	manual := rooms.MappingManual
	m, err := svc.CurateMapping(ctx, a.MappingID, rooms.MappingCuration{IsPrimary: &primary, MappingType: &manual})
	require.NoError(t, err)
	assert.True(t, m.IsPrimary)
	assert.Equal(t, rooms.MappingManual, m.MappingType)

	bad := 2.0
	_, err = svc.CurateMapping(ctx, a.MappingID, rooms.MappingCuration{Confidence: &bad})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

// duplicateOnce fails the first unit of work as if a concurrent writer won the insert.
type duplicateOnce struct {
	rooms.Store
	calls int
}

func (d *duplicateOnce) Transaction(ctx context.Context, fn func(rooms.Repository) error) error {
	d.calls++
	if d.calls == 1 {
		return fmt.Errorf("create room: %w", gorm.ErrDuplicatedKey)
	}
	return d.Store.Transaction(ctx, fn)
}

func TestMapRoom_RetriesDuplicateKeyOnce(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	base := rooms.NewStore(db)
	_, err := rooms.NewService(base, zap.NewNop()).MapHotel(ctx, "provider_a", "A-H1", "hotel-1")
	require.NoError(t, err)

	store := &duplicateOnce{Store: base}
	svc := rooms.NewService(store, zap.NewNop())

	res, err := svc.MapRoom(ctx, "A-H1", "A-R1", "provider_a", deluxe(2))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, 2, store.calls)
}

func TestMapRoom_DuplicateRoomNameAcrossSources(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)
	mapHotels(t, svc)

	// The unique (hotel_id, name) index is what makes the retry converge.
	require.NoError(t, db.Create(&rooms.Room{HotelID: "hotel-1", Name: "Deluxe King", MaxOccupancy: 2}).Error)
	err := db.Create(&rooms.Room{HotelID: "hotel-1", Name: "Deluxe King", MaxOccupancy: 2}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	res, err := svc.MapRoom(ctx, "A-H1", "A-R1", "provider_a", deluxe(2))
	require.NoError(t, err)
	assert.False(t, res.RoomCreated)
}

func TestService_CachesUnifiedView(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := cache.NewWithClient(client, time.Minute, "test:")

	svc, _ := newTestService(t, rooms.WithCache(c))
	mapHotels(t, svc)

	a, err := svc.MapRoom(ctx, "A-H1", "A-R1", "provider_a", deluxe(2))
	require.NoError(t, err)
	key := "test:room:" + a.RoomID

	view, err := svc.GetUnifiedRoomData(ctx, a.RoomID)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.True(t, mr.Exists(key))

	cached, err := svc.GetUnifiedRoomData(ctx, a.RoomID)
	require.NoError(t, err)
	assert.Equal(t, view.ID, cached.ID)
	assert.Equal(t, view.Images, cached.Images)
	require.Len(t, cached.Mappings, 1)
	assert.Equal(t, "Deluxe King", cached.Mappings[0].SourceData.Data().Room.Name)

	require.NoError(t, svc.EnrichRoomContent(ctx, a.RoomID, []rooms.EnrichmentItem{
		{FieldName: "description", Source: "curator", Content: "Ocean view"},
	}))
	assert.False(t, mr.Exists(key))

	missing, err := svc.GetUnifiedRoomData(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.False(t, mr.Exists("test:room:missing"))
}
