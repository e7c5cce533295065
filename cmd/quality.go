package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Maintain mapping quality scores",
}

var qualityRecalcCmd = &cobra.Command{
	Use:   "recalc",
	Short: "Rescore every room mapping from its stored snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()
		rt.withCache(cmd.Context())

		n, err := rt.service().BulkRecalculateQualityScores(cmd.Context())
		if err != nil {
			return err
		}
		rt.log.Info("Quality scores rewritten", zap.Int("count", n))
		return nil
	},
}

func init() {
	qualityCmd.AddCommand(qualityRecalcCmd)
	RootCmd.AddCommand(qualityCmd)
}
