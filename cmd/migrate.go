package cmd

import (
	"room-mapper/feature/rooms"

	"github.com/spf13/cobra"
)

// migrateCmd creates or updates the catalog tables.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the catalog schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		if err := rooms.Migrate(rt.db); err != nil {
			return err
		}
		if err := rooms.VerifySchema(rt.db); err != nil {
			return err
		}
		rt.log.Info("Catalog schema is up to date")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}
