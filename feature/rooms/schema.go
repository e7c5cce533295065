package rooms

import (
	"fmt"
	"strings"

	"room-mapper/core/database"

	"gorm.io/gorm"
)

// Migrate creates or updates every catalog table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migrate catalog: %w", err)
	}
	return nil
}

// VerifySchema checks that every column the catalog models map to exists in
// the connected database.
func VerifySchema(db *gorm.DB) error {
	var problems []string
	for _, model := range Models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return fmt.Errorf("parse model %T: %w", model, err)
		}

		missing, err := database.MissingColumns(db, stmt.Schema.Table, stmt.Schema.DBNames)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			problems = append(problems, fmt.Sprintf("%s: %s", stmt.Schema.Table, strings.Join(missing, ", ")))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("schema out of date, missing columns in %s", strings.Join(problems, "; "))
	}
	return nil
}
