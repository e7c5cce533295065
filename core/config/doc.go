// Package config loads room-mapper settings from the environment.
//
// A .env file in the given directory is loaded first and overrides the
// process environment. Every key has a default taken from the `default`
// struct tag of its section; environment variables are named SECTION_KEY,
// for example DATABASE_DRIVER or CACHE_TTL_SECONDS.
//
// # Configuration Structure
//
//   - Server: HTTP port, API key, body limit, shutdown budget
//   - Database: mysql or sqlite connection
//   - Storage: MinIO/S3 feed bucket and prefix
//   - Log: level and format
//   - Cache: Redis view cache
//   - Metrics: Prometheus listener address
//   - Ingest: worker count, default hotel, batch size
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    return err
//	}
//	db, err := database.Connect(cfg.Database)
package config
