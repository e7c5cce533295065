// Package ingest drives supplier feeds into the room catalog.
//
// An Ingestor parses a feed with feed.Parser and hands each room to the
// catalog. Rooms without a source id are keyed by their name; rooms outside
// any hotel wrapper use Config.DefaultHotel. Per-room failures are counted
// in the Summary and do not abort the feed.
//
// Feeds are read from a request body, a single bucket object, or every .xml
// object under a bucket prefix, the latter Config.Workers at a time.
//
// # HTTP Endpoints
//
//   - POST /feeds/:source : Ingest the XML request body.
//   - POST /feeds         : Ingest every feed object under {"prefix": "..."}.
package ingest
