// Package reconcile tracks disagreements between data sources about the
// fields of canonical entities.
//
// A Conflict is opened the first time a source reports a value that differs
// from the canonical one, seeded with the canonical value under the
// "internal" source and the reporting source's value. Further reports merge
// into the open conflict: a source that reports again replaces its previous
// entry, a new source is appended. Resolve closes a conflict either keeping
// the canonical value or applying one source's value through an Applier.
//
// The tracker is field agnostic. Callers decide which fields to observe and
// how a resolved value is written back:
//
//	res, err := tracker.Track(ctx, repo, "room", room.ID, "provider_a",
//	    reconcile.Observation{Field: "maxOccupancy", Internal: room.MaxOccupancy, Incoming: 4})
//
// All persistence goes through ConflictStore, which the caller scopes to its
// own transaction.
package reconcile
