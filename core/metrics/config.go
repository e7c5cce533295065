package metrics

// Config holds configuration for the metrics listener.
type Config struct {
	// Addr is the listen address of the /metrics endpoint. Empty disables it.
	Addr string `mapstructure:"addr" default:":9090"`
}
