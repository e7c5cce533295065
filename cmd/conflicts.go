package cmd

import (
	"encoding/json"
	"os"

	"room-mapper/core/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	conflictStatus  string
	resolveStrategy string
	resolveSource   string
)

// conflictsCmd is the parent command for conflict review.
var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Review and resolve field conflicts between suppliers",
}

var conflictsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print conflicts as JSON, most recently detected first",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		conflicts, err := rt.service().GetConflicts(cmd.Context(), reconcile.Status(conflictStatus))
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(conflicts)
	},
}

var conflictsResolveCmd = &cobra.Command{
	Use:   "resolve <id>",
	Short: "Resolve a conflict",
	Long: `Resolve a conflict by keeping the canonical value or applying one source's value.

Examples:
  conflicts resolve 5b1c... --strategy keep_internal
  conflicts resolve 5b1c... --strategy apply_source --source provider_b`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()
		rt.withCache(cmd.Context())

		c, err := rt.service().ResolveConflict(cmd.Context(), args[0], reconcile.Strategy(resolveStrategy), resolveSource)
		if err != nil {
			return err
		}
		rt.log.Info("Conflict resolved",
			zap.String("id", c.ID),
			zap.String("field", c.FieldName),
			zap.String("entity_id", c.EntityID),
			zap.String("strategy", resolveStrategy))
		return nil
	},
}

func init() {
	conflictsListCmd.Flags().StringVar(&conflictStatus, "status", string(reconcile.StatusOpen), "Filter by status (open, resolved); empty lists all")
	conflictsResolveCmd.Flags().StringVar(&resolveStrategy, "strategy", string(reconcile.KeepInternal), "keep_internal or apply_source")
	conflictsResolveCmd.Flags().StringVar(&resolveSource, "source", "", "Source whose value is applied with apply_source")

	conflictsCmd.AddCommand(conflictsListCmd, conflictsResolveCmd)
	RootCmd.AddCommand(conflictsCmd)
}
