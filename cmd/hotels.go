package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var hotelsCmd = &cobra.Command{
	Use:   "hotels",
	Short: "Manage supplier hotel mappings",
}

var hotelsMapCmd = &cobra.Command{
	Use:   "map <source> <source-hotel-id> <hotel-id>",
	Short: "Bind a supplier hotel id to an internal hotel",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		m, err := rt.service().MapHotel(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		rt.log.Info("Hotel mapped",
			zap.String("id", m.ID),
			zap.String("source", m.Source),
			zap.String("source_id", m.SourceID),
			zap.String("hotel_id", m.HotelID))
		return nil
	},
}

func init() {
	hotelsCmd.AddCommand(hotelsMapCmd)
	RootCmd.AddCommand(hotelsCmd)
}
