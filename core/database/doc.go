// Package database opens the gorm connection used by the room catalog.
//
// Connect supports the mysql driver for deployments and sqlite for local runs
// and tests. Duplicate-key errors are translated to gorm.ErrDuplicatedKey.
//
// # Schema Inspection
//
// GetTableColumns and MissingColumns read the live table layout so that the
// migrate command can verify the catalog tables after AutoMigrate.
//
//	db, err := database.Connect(cfg.Database)
//	missing, err := database.MissingColumns(db, "room_mappings", []string{"source_data"})
package database
