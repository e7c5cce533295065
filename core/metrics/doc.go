// Package metrics exposes Prometheus collectors for mapping throughput,
// conflict activity, feed ingestion, cache use and HTTP traffic.
//
// Collectors are package-level so any package can record without plumbing;
// InitRegistry binds them to a registry served by Serve on its own listener.
package metrics
