package reconcile

import (
	"context"
	"fmt"
	"time"

	"room-mapper/core/errors"
	"room-mapper/core/utils"
)

// Observation pairs the canonical value of a field with the value a source reported.
// A nil Incoming means the source did not report the field.
type Observation struct {
	Field    string
	Internal any
	Incoming any
}

// Applier writes a resolved value into the canonical entity.
type Applier func(ctx context.Context, c *Conflict, value any) error

// TrackResult describes what Track changed.
type TrackResult struct {
	// Opened holds conflicts created by this call.
	Opened []Conflict
	// Updated holds existing open conflicts that received the observation.
	Updated []Conflict
}

// Tracker detects, merges and resolves per-field conflicts.
type Tracker struct {
	now func() time.Time
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithTrackerClock sets the time source for detection and resolution stamps.
func WithTrackerClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a tracker.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track records the observations of source against the entity. Each mismatch
// either opens a conflict seeded with the internal and incoming values, or
// upserts the source's entry into the already open conflict. Values compare
// by their string form so JSON round-trips do not produce false mismatches.
func (t *Tracker) Track(ctx context.Context, store ConflictStore, entityType, entityID, source string, observations ...Observation) (TrackResult, error) {
	var res TrackResult
	now := t.now().UTC()

	for _, obs := range observations {
		if obs.Incoming == nil || sameValue(obs.Internal, obs.Incoming) {
			continue
		}

		existing, err := store.FindOpenConflict(ctx, entityType, entityID, obs.Field)
		if err != nil {
			return res, fmt.Errorf("find open conflict on %s: %w", obs.Field, err)
		}

		incoming := ConflictSource{Source: source, Value: obs.Incoming, DetectedAt: now}

		if existing == nil {
			c := &Conflict{
				EntityType: entityType,
				EntityID:   entityID,
				FieldName:  obs.Field,
				ConflictingSources: []ConflictSource{
					{Source: InternalSource, Value: obs.Internal, DetectedAt: now},
					incoming,
				},
				Status:     StatusOpen,
				DetectedAt: now,
			}
			if err := store.CreateConflict(ctx, c); err != nil {
				return res, fmt.Errorf("create conflict on %s: %w", obs.Field, err)
			}
			res.Opened = append(res.Opened, *c)
			continue
		}

		existing.upsertSource(incoming)
		if err := store.SaveConflict(ctx, existing); err != nil {
			return res, fmt.Errorf("update conflict %s: %w", existing.ID, err)
		}
		res.Updated = append(res.Updated, *existing)
	}

	return res, nil
}

// Resolve closes a conflict. With ApplySource the value recorded for
// sourceToApply is handed to apply before the conflict is marked resolved.
// Resolution is terminal: resolving a resolved conflict is rejected.
func (t *Tracker) Resolve(ctx context.Context, store ConflictStore, id string, strategy Strategy, sourceToApply string, apply Applier) (*Conflict, error) {
	if !strategy.Valid() {
		return nil, errors.NewValidationError("strategy", strategy, "must be keep_internal or apply_source")
	}

	c, err := store.GetConflict(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load conflict %s: %w", id, err)
	}
	if c == nil {
		return nil, errors.NewNotFoundError("conflict", id)
	}
	if c.Status != StatusOpen {
		return nil, errors.NewValidationError("status", c.Status, "conflict is already resolved")
	}

	if strategy == ApplySource {
		value, ok := c.SourceValue(sourceToApply)
		if !ok {
			return nil, errors.NewValidationError("sourceToApply", sourceToApply, "source has no recorded value in this conflict")
		}
		if err := apply(ctx, c, value); err != nil {
			return nil, fmt.Errorf("apply %s value: %w", sourceToApply, err)
		}
	}

	resolvedAt := t.now().UTC()
	c.Status = StatusResolved
	c.Resolution = &strategy
	c.ResolvedAt = &resolvedAt
	if err := store.SaveConflict(ctx, c); err != nil {
		return nil, fmt.Errorf("save conflict %s: %w", id, err)
	}
	return c, nil
}

func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	return utils.ToString(a) == utils.ToString(b)
}
