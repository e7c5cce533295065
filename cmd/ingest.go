package cmd

import (
	"fmt"
	"os"

	"room-mapper/feature/ingest"
	"room-mapper/feature/rooms"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	ingestConfidence  float64
	ingestMappingType string
	ingestPrimary     bool
)

// ingestCmd is the parent command for feed ingestion.
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest supplier room feeds",
	Long: `Ingest supplier XML feeds into the room catalog.

Examples:
  # A local file from provider_a
  ingest file provider_a ./feeds/provider_a.xml

  # One object from the feed bucket
  ingest object provider_a incoming/provider_a/2025-03-01.xml

  # Everything under the configured prefix, one source per sub folder
  ingest prefix`,
}

var ingestFileCmd = &cobra.Command{
	Use:   "file <source> <path>",
	Short: "Ingest a feed from the local filesystem",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		f, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("open feed: %w", err)
		}
		defer f.Close()

		ing := ingest.NewIngestor(rt.service(), nil, "", rt.cfg.Ingest, rt.log)
		sum, err := ing.IngestFeed(cmd.Context(), f, args[0], ingestMapOptions()...)
		logSummary(rt.log, sum)
		return err
	},
}

var ingestObjectCmd = &cobra.Command{
	Use:   "object <source> <key>",
	Short: "Ingest one feed object from the bucket",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()
		rt.withCache(cmd.Context())

		sum, err := rt.ingestor(cmd.Context(), rt.service()).IngestObject(cmd.Context(), args[1], args[0], ingestMapOptions()...)
		logSummary(rt.log, sum)
		return err
	},
}

var ingestPrefixCmd = &cobra.Command{
	Use:   "prefix [prefix]",
	Short: "Ingest every feed object under a bucket prefix",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()
		rt.withCache(cmd.Context())

		prefix := rt.cfg.Storage.FeedPrefix
		if len(args) == 1 {
			prefix = args[0]
		}
		summaries, err := rt.ingestor(cmd.Context(), rt.service()).IngestPrefix(cmd.Context(), prefix, ingestMapOptions()...)
		for _, sum := range summaries {
			logSummary(rt.log, sum)
		}
		return err
	},
}

func ingestMapOptions() []rooms.MapOption {
	opts := []rooms.MapOption{rooms.WithConfidence(ingestConfidence)}
	if ingestMappingType != "" {
		opts = append(opts, rooms.WithMappingType(rooms.MappingType(ingestMappingType)))
	}
	if ingestPrimary {
		opts = append(opts, rooms.AsPrimary())
	}
	return opts
}

func logSummary(l *zap.Logger, sum ingest.Summary) {
	l.Info("Ingest summary",
		zap.String("source", sum.Source),
		zap.String("object", sum.Object),
		zap.Int("rooms", sum.Rooms),
		zap.Int("created", sum.Created),
		zap.Int("updated", sum.Updated),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
		zap.Int("conflicts_opened", sum.ConflictsOpened),
	)
}

func init() {
	for _, c := range []*cobra.Command{ingestFileCmd, ingestObjectCmd, ingestPrefixCmd} {
		c.Flags().Float64Var(&ingestConfidence, "confidence", rooms.DefaultConfidence, "Confidence recorded on new and updated mappings")
		c.Flags().StringVar(&ingestMappingType, "mapping-type", "", "Mapping type (automatic, manual, verified)")
		c.Flags().BoolVar(&ingestPrimary, "primary", false, "Mark the mappings as primary")
		ingestCmd.AddCommand(c)
	}
	RootCmd.AddCommand(ingestCmd)
}
