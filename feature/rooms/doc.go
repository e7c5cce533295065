// Package rooms is the canonical room catalog and its reconciliation engine.
//
// Every supplier observation of a room goes through Service.MapRoom, which in a
// single transaction resolves the hotel mapping, finds or creates the
// canonical Room, records the per-source RoomMapping with a versioned
// snapshot and quality score, tracks field conflicts and stores photo and
// amenity enrichments. Mappings marked verified keep their confidence and
// type across later automatic ingestion.
//
// # Components
//
//   - Store: gorm persistence with Transaction as the unit of work.
//   - Service: mapping, unified views, enrichment, conflicts and rescoring.
//   - Handler: HTTP endpoints for the catalog.
//   - Feature: registers the handler with the loader.
//
// # HTTP Endpoints
//
//   - GET   /rooms/:id                 : Unified room view.
//   - PUT   /rooms/:id/enrichments     : Upsert enrichment items.
//   - GET   /conflicts?status=         : List conflicts, newest first.
//   - POST  /conflicts/:id/resolve     : Resolve with keep_internal or apply_source.
//   - POST  /mappings/hotels           : Bind a source hotel to an internal hotel.
//   - POST  /mappings/rooms            : Map one room observation.
//   - PATCH /mappings/rooms/:id        : Curate a room mapping.
//   - POST  /quality/recalculate       : Rescore every mapping.
package rooms
