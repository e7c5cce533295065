package ingest

// Config holds configuration for feed ingestion.
type Config struct {
	// Workers caps how many feed objects are ingested concurrently.
	Workers int `mapstructure:"workers" default:"4"`
	// DefaultHotel is the hotel source id used for rooms outside any hotel wrapper.
	DefaultHotel string `mapstructure:"default_hotel" default:""`
	// BatchSize is the row batch size for quality score recalculation.
	BatchSize int `mapstructure:"batch_size" default:"500"`
}
